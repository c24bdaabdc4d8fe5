package store

import (
	"context"
	"fmt"
	"time"

	"visitor-kiosk-backend/internal/model"
)

// CountCheckInsBetween counts visits with from <= check_in_at < to.
func (s *gormStore) CountCheckInsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&model.Visit{}).
		Where("check_in_at >= ? AND check_in_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count check-ins: %w", err)
	}
	return n, nil
}

// CountActiveVisits counts visits that are still checked in.
func (s *gormStore) CountActiveVisits(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&model.Visit{}).
		Where("status = ?", model.StatusCheckedIn).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active visits: %w", err)
	}
	return n, nil
}

// ListClosedVisits returns the timestamps of every checked-out visit.
func (s *gormStore) ListClosedVisits(ctx context.Context) ([]model.Visit, error) {
	var visits []model.Visit
	err := s.db.WithContext(ctx).
		Select("id", "check_in_at", "check_out_at", "status").
		Where("status = ?", model.StatusCheckedOut).
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list closed visits: %w", err)
	}
	return visits, nil
}

// ListRecentVisits returns up to limit visits with visitor and host, newest first.
// A non-positive limit returns every visit.
func (s *gormStore) ListRecentVisits(ctx context.Context, limit int) ([]model.Visit, error) {
	if limit <= 0 {
		limit = -1
	}
	var visits []model.Visit
	err := s.db.WithContext(ctx).
		Preload("Visitor").
		Preload("Host").
		Order("check_in_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent visits: %w", err)
	}
	return visits, nil
}

// ListVisitsBetween returns visits checked in within [from, to), oldest first, with host.
func (s *gormStore) ListVisitsBetween(ctx context.Context, from, to time.Time) ([]model.Visit, error) {
	var visits []model.Visit
	err := s.db.WithContext(ctx).
		Preload("Host").
		Where("check_in_at >= ? AND check_in_at < ?", from.UTC(), to.UTC()).
		Order("check_in_at ASC").
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list visits between %s and %s: %w",
			from.Format(time.RFC3339), to.Format(time.RFC3339), err)
	}
	return visits, nil
}
