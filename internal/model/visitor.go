package model

import "time"

// Visitor is a guest identity keyed by phone number.
// Name and company are kept from the first check-in; only PhotoPath changes later.
type Visitor struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	Company   *string   `gorm:"size:255" json:"company"`
	Phone     string    `gorm:"uniqueIndex;size:50;not null" json:"phone"`
	PhotoPath *string   `gorm:"size:512" json:"photo_path"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
