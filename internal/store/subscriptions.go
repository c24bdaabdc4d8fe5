package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"visitor-kiosk-backend/internal/model"
)

// UpsertSubscription creates or replaces the subscription for an endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"host_id", "p256dh", "auth"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription; unknown endpoints are not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ListHostSubscriptions returns every push subscription registered for a host.
func (s *gormStore) ListHostSubscriptions(ctx context.Context, hostID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("host_id = ?", hostID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for host %d: %w", hostID, err)
	}
	return subs, nil
}
