// Package visit implements the visit lifecycle: check-in, photo attachment,
// check-out and the active-visit queries used by the security desk.
package visit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"visitor-kiosk-backend/internal/media"
	"visitor-kiosk-backend/internal/metrics"
	"visitor-kiosk-backend/internal/model"
	"visitor-kiosk-backend/internal/parse"
	"visitor-kiosk-backend/internal/store"
)

// Store is the persistence the lifecycle needs.
type Store interface {
	CheckIn(ctx context.Context, params store.CheckInParams) (model.Visit, error)
	CloseVisit(ctx context.Context, visitID int64, now time.Time) (model.Visit, error)
	GetVisit(ctx context.Context, visitID int64) (model.Visit, error)
	GetActiveVisit(ctx context.Context, visitID int64) (model.Visit, error)
	ListActiveVisits(ctx context.Context) ([]model.Visit, error)
	UpsertPhoto(ctx context.Context, visit model.Visit, path string, now time.Time) (string, error)
	ListHosts(ctx context.Context) ([]model.Host, error)
	CreateHost(ctx context.Context, host *model.Host) error
}

// PhotoStore persists photo bytes and maps stored paths to URLs.
type PhotoStore interface {
	SaveVisitPhoto(visitID int64, data []byte) (string, error)
	URL(path string) string
	Remove(path string) error
}

// Notifier tells a host that their visitor has arrived. Delivery is best-effort.
type Notifier interface {
	NotifyHost(ctx context.Context, visitID int64) error
}

// CheckInInput is the kiosk check-in form.
type CheckInInput struct {
	FullName string  `json:"full_name" validate:"required,max=255"`
	Company  *string `json:"company" validate:"omitempty,max=255"`
	Phone    string  `json:"phone" validate:"required,max=50"`
	HostID   int64   `json:"host_id" validate:"required,gt=0"`
	Purpose  *string `json:"purpose" validate:"omitempty,max=1000"`
}

// HostInput is the admin form for registering a host.
type HostInput struct {
	FullName   string `json:"full_name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Department string `json:"department" validate:"required,max=255"`
}

// VisitView is an active visit as shown on the security dashboard.
// Fields taken from a missing relation are nil.
type VisitView struct {
	VisitID     int64     `json:"visit_id"`
	VisitorName *string   `json:"visitor_name"`
	Company     *string   `json:"company"`
	HostName    *string   `json:"host_name"`
	Department  *string   `json:"department"`
	Purpose     *string   `json:"purpose"`
	CheckInAt   time.Time `json:"check_in_at"`
	PhotoURL    *string   `json:"photo_url"`
}

// PhotoRef identifies a stored visit photo.
type PhotoRef struct {
	VisitID int64  `json:"visit_id"`
	Path    string `json:"-"`
	URL     string `json:"photo_url"`
}

// Service runs the visit lifecycle.
type Service struct {
	store    Store
	photos   PhotoStore
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the lifecycle. notifier may be nil.
func NewService(st Store, photos PhotoStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    st,
		photos:   photos,
		notifier: notifier,
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn opens a visit, creating the visitor on first sight of their phone number.
// An existing visitor keeps the name and company they first registered with.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput) (model.Visit, error) {
	in.FullName = parse.Text(in.FullName)
	// Phone is the visitor key; only whitespace is normalised.
	in.Phone = parse.Text(in.Phone)
	in.Company = parse.OptionalText(in.Company)
	in.Purpose = parse.OptionalText(in.Purpose)

	if err := validateStruct(s.validate, in); err != nil {
		return model.Visit{}, err
	}

	v, err := s.store.CheckIn(ctx, store.CheckInParams{
		FullName: in.FullName,
		Company:  in.Company,
		Phone:    in.Phone,
		HostID:   in.HostID,
		Purpose:  in.Purpose,
		Now:      s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Visit{}, fmt.Errorf("%w: id %d", ErrHostNotFound, in.HostID)
		}
		return model.Visit{}, storageError("check in", err)
	}

	metrics.CheckIns.Inc()
	s.notify(ctx, v.ID)
	return v, nil
}

// CheckOut closes an open visit. Closing is one-way: a second call fails with
// ErrAlreadyCheckedOut and leaves the stored check-out time untouched.
func (s *Service) CheckOut(ctx context.Context, visitID int64) (model.Visit, error) {
	v, err := s.store.CloseVisit(ctx, visitID, s.now().UTC())
	switch {
	case err == nil:
		metrics.CheckOuts.Inc()
		return v, nil
	case errors.Is(err, store.ErrNotFound):
		return model.Visit{}, fmt.Errorf("%w: id %d", ErrVisitNotFound, visitID)
	case errors.Is(err, store.ErrAlreadyClosed):
		metrics.CheckOutConflicts.Inc()
		return model.Visit{}, fmt.Errorf("%w: id %d", ErrAlreadyCheckedOut, visitID)
	default:
		return model.Visit{}, storageError("check out", err)
	}
}

// AttachPhoto stores a photo for the visit, replacing any earlier one, and
// records it as the visitor's latest photo. The visit may be open or closed.
func (s *Service) AttachPhoto(ctx context.Context, visitID int64, data []byte) (PhotoRef, error) {
	if len(data) == 0 {
		return PhotoRef{}, fieldError("photo", "is required")
	}

	v, err := s.store.GetVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return PhotoRef{}, fmt.Errorf("%w: id %d", ErrVisitNotFound, visitID)
		}
		return PhotoRef{}, storageError("load visit", err)
	}

	path, err := s.photos.SaveVisitPhoto(v.ID, data)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			return PhotoRef{}, fieldError("photo", "must be a JPEG, PNG, GIF, BMP or TIFF image")
		}
		return PhotoRef{}, storageError("write photo", err)
	}

	previous, err := s.store.UpsertPhoto(ctx, v, path, s.now().UTC())
	if err != nil {
		s.removePhoto(path)
		return PhotoRef{}, storageError("record photo", err)
	}
	if previous != "" && previous != path {
		s.removePhoto(previous)
	}

	metrics.PhotoUploads.Inc()
	s.notify(ctx, v.ID)
	return PhotoRef{VisitID: v.ID, Path: path, URL: s.photos.URL(path)}, nil
}

// ListActive returns every checked-in visit, most recent check-in first.
func (s *Service) ListActive(ctx context.Context) ([]VisitView, error) {
	visits, err := s.store.ListActiveVisits(ctx)
	if err != nil {
		return nil, storageError("list active visits", err)
	}
	views := make([]VisitView, 0, len(visits))
	for _, v := range visits {
		views = append(views, s.view(v))
	}
	return views, nil
}

// GetActive returns one visit while it is still checked in.
func (s *Service) GetActive(ctx context.Context, visitID int64) (VisitView, error) {
	v, err := s.store.GetActiveVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VisitView{}, fmt.Errorf("%w: no active visit with id %d", ErrVisitNotFound, visitID)
		}
		return VisitView{}, storageError("load active visit", err)
	}
	return s.view(v), nil
}

// ListHosts returns the hosts a visitor can pick.
func (s *Service) ListHosts(ctx context.Context) ([]model.Host, error) {
	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return nil, storageError("list hosts", err)
	}
	return hosts, nil
}

// CreateHost registers a host. Emails are unique, compared case-insensitively.
func (s *Service) CreateHost(ctx context.Context, in HostInput) (model.Host, error) {
	in.FullName = parse.Text(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Department = parse.Text(in.Department)

	if err := validateStruct(s.validate, in); err != nil {
		return model.Host{}, err
	}

	host := model.Host{FullName: in.FullName, Email: in.Email, Department: in.Department}
	if err := s.store.CreateHost(ctx, &host); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Host{}, fmt.Errorf("%w: %s", ErrDuplicateHost, in.Email)
		}
		return model.Host{}, storageError("create host", err)
	}
	return host, nil
}

func (s *Service) view(v model.Visit) VisitView {
	out := VisitView{
		VisitID:   v.ID,
		Purpose:   v.Purpose,
		CheckInAt: v.CheckInAt,
	}
	if v.Visitor != nil {
		out.VisitorName = &v.Visitor.FullName
		out.Company = v.Visitor.Company
	}
	if v.Host != nil {
		out.HostName = &v.Host.FullName
		out.Department = &v.Host.Department
	}
	if v.Photo != nil && v.Photo.FilePath != "" {
		url := s.photos.URL(v.Photo.FilePath)
		out.PhotoURL = &url
	}
	return out
}

// notify must never fail the operation that triggered it.
func (s *Service) notify(ctx context.Context, visitID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyHost(context.WithoutCancel(ctx), visitID); err != nil {
		log.Printf("Failed to queue host notification for visit %d: %v", visitID, err)
	}
}

func (s *Service) removePhoto(path string) {
	if err := s.photos.Remove(path); err != nil {
		log.Printf("Failed to remove photo %s: %v", path, err)
	}
}
