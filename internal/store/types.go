package store

import "time"

// CheckInParams carries already-validated check-in input.
type CheckInParams struct {
	FullName string
	Company  *string
	Phone    string
	HostID   int64
	Purpose  *string
	Now      time.Time
}
