package visit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks input that is missing or malformed. The concrete
	// error is a *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is the parent of every "id does not resolve" error.
	ErrNotFound      = errors.New("not found")
	ErrHostNotFound  = fmt.Errorf("host %w", ErrNotFound)
	ErrVisitNotFound = fmt.Errorf("visit %w", ErrNotFound)
	// ErrAlreadyCheckedOut is returned when closing a visit that is already closed.
	ErrAlreadyCheckedOut = errors.New("visit already checked out")
	ErrDuplicateHost     = errors.New("host email already registered")
	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage failure")
)

// ValidationError carries a message per offending input field, keyed by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
