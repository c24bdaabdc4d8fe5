package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitor-kiosk-backend/config"
	"visitor-kiosk-backend/internal/model"
)

// SeedHosts inserts the configured hosts, skipping any whose email already exists.
// It returns the number of rows inserted.
func SeedHosts(ctx context.Context, db *gorm.DB, seeds []config.SeedHost) (int64, error) {
	hosts := make([]model.Host, 0, len(seeds))
	for _, s := range seeds {
		email := strings.ToLower(strings.TrimSpace(s.Email))
		if email == "" || strings.TrimSpace(s.FullName) == "" {
			continue
		}
		hosts = append(hosts, model.Host{
			FullName:   strings.TrimSpace(s.FullName),
			Email:      email,
			Department: strings.TrimSpace(s.Department),
		})
	}
	if len(hosts) == 0 {
		return 0, nil
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&hosts)
	if res.Error != nil {
		return 0, fmt.Errorf("seed hosts failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
