package model

import "time"

// Photo is the most recent photo uploaded for a visit. Re-uploads replace FilePath.
type Photo struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	VisitID   int64     `gorm:"uniqueIndex;not null" json:"visit_id"`
	FilePath  string    `gorm:"size:512;not null" json:"file_path"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
