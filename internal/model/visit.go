package model

import "time"

// VisitStatus is the lifecycle state of a visit.
type VisitStatus string

const (
	StatusCheckedIn  VisitStatus = "checked_in"
	StatusCheckedOut VisitStatus = "checked_out"
)

// Visit is one check-in/check-out episode linking a visitor to a host.
// CheckOutAt is set iff Status is StatusCheckedOut.
type Visit struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	VisitorID  int64       `gorm:"index;not null" json:"visitor_id"`
	HostID     int64       `gorm:"index;not null" json:"host_id"`
	Purpose    *string     `gorm:"type:text" json:"purpose"`
	CheckInAt  time.Time   `gorm:"index;not null" json:"check_in_at"`
	CheckOutAt *time.Time  `json:"check_out_at"`
	Status     VisitStatus `gorm:"size:16;index;not null;default:'checked_in'" json:"status"`
	CreatedAt  time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null" json:"updated_at"`

	// Associations
	Visitor *Visitor `gorm:"constraint:OnDelete:CASCADE" json:"visitor,omitempty"`
	Host    *Host    `gorm:"constraint:OnDelete:CASCADE" json:"host,omitempty"`
	Photo   *Photo   `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE" json:"photo,omitempty"`
}

// Active reports whether the visit is still open.
func (v Visit) Active() bool {
	return v.Status == StatusCheckedIn
}
