package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var spaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)

// Text trims kiosk input and collapses runs of whitespace (including
// non-breaking and full-width spaces) into a single space.
func Text(raw string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
}

// OptionalText is Text for nullable fields: blank input becomes nil.
func OptionalText(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := Text(*raw)
	if s == "" {
		return nil
	}
	return &s
}

// ID parses a positive path identifier.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// BoundedInt parses an optional positive query value. Empty input yields def;
// values above max are clamped to max.
func BoundedInt(raw string, def, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value %q: must be a positive integer", raw)
	}
	if max > 0 && n > max {
		return max, nil
	}
	return n, nil
}
