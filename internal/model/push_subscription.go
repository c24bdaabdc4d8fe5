package model

import "time"

// PushSubscription holds a host's browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	HostID    int64     `gorm:"index;not null" json:"host_id"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Host *Host `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
