package model

import "time"

// Host is a staff member a visitor is registered to see.
type Host struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	FullName   string    `gorm:"size:255;not null" json:"full_name"`
	Email      string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Department string    `gorm:"size:255;not null" json:"department"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
