package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitor-kiosk-backend/internal/model"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyClosed is returned when closing a visit that is no longer checked in.
	ErrAlreadyClosed = errors.New("visit already closed")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// Store defines the interface for all database operations.
type Store interface {
	CheckIn(ctx context.Context, params CheckInParams) (model.Visit, error)
	CloseVisit(ctx context.Context, visitID int64, now time.Time) (model.Visit, error)
	GetVisit(ctx context.Context, visitID int64) (model.Visit, error)
	GetActiveVisit(ctx context.Context, visitID int64) (model.Visit, error)
	ListActiveVisits(ctx context.Context) ([]model.Visit, error)
	UpsertPhoto(ctx context.Context, visit model.Visit, path string, now time.Time) (string, error)

	CountCheckInsBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountActiveVisits(ctx context.Context) (int64, error)
	ListClosedVisits(ctx context.Context) ([]model.Visit, error)
	ListRecentVisits(ctx context.Context, limit int) ([]model.Visit, error)
	ListVisitsBetween(ctx context.Context, from, to time.Time) ([]model.Visit, error)

	ListHosts(ctx context.Context) ([]model.Host, error)
	GetHost(ctx context.Context, hostID int64) (model.Host, error)
	CreateHost(ctx context.Context, host *model.Host) error

	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListHostSubscriptions(ctx context.Context, hostID int64) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CheckIn resolves the host, finds or creates the visitor by phone and opens a visit,
// all in one transaction.
func (s *gormStore) CheckIn(ctx context.Context, p CheckInParams) (model.Visit, error) {
	var created model.Visit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var host model.Host
		if err := tx.Select("id").First(&host, p.HostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("host %d: %w", p.HostID, ErrNotFound)
			}
			return fmt.Errorf("failed to look up host %d: %w", p.HostID, err)
		}

		visitor, err := findOrCreateVisitor(tx, p)
		if err != nil {
			return err
		}

		visit := model.Visit{
			VisitorID: visitor.ID,
			HostID:    host.ID,
			Purpose:   p.Purpose,
			CheckInAt: p.Now,
			Status:    model.StatusCheckedIn,
		}
		if err := tx.Create(&visit).Error; err != nil {
			return fmt.Errorf("failed to create visit for visitor %d: %w", visitor.ID, err)
		}

		return tx.Preload("Visitor").Preload("Host").First(&created, visit.ID).Error
	})
	if err != nil {
		return model.Visit{}, err
	}
	return created, nil
}

// findOrCreateVisitor inserts the visitor unless the phone is already known, then reads
// the stored row back. Concurrent first check-ins with one phone end up on the same row.
func findOrCreateVisitor(tx *gorm.DB, p CheckInParams) (model.Visitor, error) {
	candidate := model.Visitor{
		FullName: p.FullName,
		Company:  p.Company,
		Phone:    p.Phone,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return model.Visitor{}, fmt.Errorf("failed to upsert visitor %q: %w", p.Phone, err)
	}

	var visitor model.Visitor
	if err := tx.Where("phone = ?", p.Phone).First(&visitor).Error; err != nil {
		return model.Visitor{}, fmt.Errorf("failed to load visitor %q: %w", p.Phone, err)
	}
	return visitor, nil
}

// CloseVisit moves a checked-in visit to checked-out. The update only matches rows that
// are still checked in, so of two concurrent calls exactly one succeeds.
func (s *gormStore) CloseVisit(ctx context.Context, visitID int64, now time.Time) (model.Visit, error) {
	var closed model.Visit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Visit{}).
			Where("id = ? AND status = ?", visitID, model.StatusCheckedIn).
			Updates(map[string]any{
				"status":       model.StatusCheckedOut,
				"check_out_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to close visit %d: %w", visitID, res.Error)
		}

		if res.RowsAffected == 0 {
			var existing model.Visit
			if err := tx.Select("id", "status").First(&existing, visitID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("visit %d: %w", visitID, ErrNotFound)
				}
				return fmt.Errorf("failed to look up visit %d: %w", visitID, err)
			}
			return fmt.Errorf("visit %d: %w", visitID, ErrAlreadyClosed)
		}

		return withRelations(tx).First(&closed, visitID).Error
	})
	if err != nil {
		return model.Visit{}, err
	}
	return closed, nil
}

// GetVisit loads a visit with its visitor, host and photo.
func (s *gormStore) GetVisit(ctx context.Context, visitID int64) (model.Visit, error) {
	var visit model.Visit
	if err := withRelations(s.db.WithContext(ctx)).First(&visit, visitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Visit{}, fmt.Errorf("visit %d: %w", visitID, ErrNotFound)
		}
		return model.Visit{}, err
	}
	return visit, nil
}

// GetActiveVisit loads a visit only while it is still checked in.
func (s *gormStore) GetActiveVisit(ctx context.Context, visitID int64) (model.Visit, error) {
	var visit model.Visit
	err := withRelations(s.db.WithContext(ctx)).
		Where("status = ?", model.StatusCheckedIn).
		First(&visit, visitID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Visit{}, fmt.Errorf("active visit %d: %w", visitID, ErrNotFound)
		}
		return model.Visit{}, err
	}
	return visit, nil
}

// ListActiveVisits returns every checked-in visit, most recent check-in first.
func (s *gormStore) ListActiveVisits(ctx context.Context) ([]model.Visit, error) {
	var visits []model.Visit
	err := withRelations(s.db.WithContext(ctx)).
		Where("status = ?", model.StatusCheckedIn).
		Order("check_in_at DESC").
		Order("id DESC").
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active visits: %w", err)
	}
	return visits, nil
}

// UpsertPhoto records path as the visit's photo and as the visitor's latest photo.
// It returns the path it replaced, or "" for a first upload.
func (s *gormStore) UpsertPhoto(ctx context.Context, visit model.Visit, path string, now time.Time) (string, error) {
	var previous string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Photo
		err := tx.Where("visit_id = ?", visit.ID).Take(&existing).Error
		switch {
		case err == nil:
			previous = existing.FilePath
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to read photo for visit %d: %w", visit.ID, err)
		}

		photo := model.Photo{
			VisitID:   visit.ID,
			FilePath:  path,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "visit_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_path", "updated_at"}),
		}).Create(&photo).Error; err != nil {
			return fmt.Errorf("failed to upsert photo for visit %d: %w", visit.ID, err)
		}

		if err := tx.Model(&model.Visitor{}).
			Where("id = ?", visit.VisitorID).
			Update("photo_path", path).Error; err != nil {
			return fmt.Errorf("failed to update photo of visitor %d: %w", visit.VisitorID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func withRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Visitor").Preload("Host").Preload("Photo")
}
