package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"visitor-kiosk-backend/internal/model"
)

// ListHosts returns all hosts ordered by name.
func (s *gormStore) ListHosts(ctx context.Context) ([]model.Host, error) {
	var hosts []model.Host
	if err := s.db.WithContext(ctx).Order("full_name").Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	return hosts, nil
}

// GetHost loads a single host.
func (s *gormStore) GetHost(ctx context.Context, hostID int64) (model.Host, error) {
	var host model.Host
	if err := s.db.WithContext(ctx).First(&host, hostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Host{}, fmt.Errorf("host %d: %w", hostID, ErrNotFound)
		}
		return model.Host{}, err
	}
	return host, nil
}

// CreateHost inserts a host; a taken email yields ErrDuplicate.
func (s *gormStore) CreateHost(ctx context.Context, host *model.Host) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Host{}).Where("email = ?", host.Email).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check host email: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("host email %q: %w", host.Email, ErrDuplicate)
		}
		if err := tx.Create(host).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("host email %q: %w", host.Email, ErrDuplicate)
			}
			return fmt.Errorf("failed to create host: %w", err)
		}
		return nil
	})
}

// isUniqueViolation recognises duplicate keys from gorm's translated errors
// and from the raw postgres and sqlite driver errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
