package domain

import "time"

// AttendanceStatus is the state of a daily attendance record.
type AttendanceStatus string

const (
	AttendanceCheckedIn  AttendanceStatus = "CHECKED_IN"
	AttendanceCheckedOut AttendanceStatus = "CHECKED_OUT"
)

// AttendanceToken is a short-lived single-use secret registered by a user
// and redeemed by an admin scan.
type AttendanceToken struct {
	ID        string
	Value     string
	Owner     UserRef
	IssuedAt  time.Time
	ExpiresAt time.Time
	Used      bool
}

// ExpiredAt reports whether the token is past its expiry at now.
// A token is still valid at exactly ExpiresAt.
func (t *AttendanceToken) ExpiredAt(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// AttendanceRecord is the single record kept per user and calendar day.
type AttendanceRecord struct {
	ID           string
	User         UserRef
	Date         time.Time
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	Status       AttendanceStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Completed reports whether the record reached its terminal state.
func (r *AttendanceRecord) Completed() bool {
	return r.Status == AttendanceCheckedOut || r.CheckOutTime != nil
}

// DateOf returns the calendar day of t in loc, as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
