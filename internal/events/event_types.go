package events

import (
	"time"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAttendanceTokenRegistered EventType = "attendance.token_registered"
	EventAttendanceCheckedIn       EventType = "attendance.checked_in"
	EventAttendanceCheckedOut      EventType = "attendance.checked_out"
	EventAttendanceScanRejected    EventType = "attendance.scan_rejected"
)

// Actor identifies who triggered the event.
type Actor struct {
	Username string `json:"username"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AttendanceMarkedPayload is carried by check-in and check-out events.
type AttendanceMarkedPayload struct {
	RecordID     string                  `json:"record_id"`
	Date         string                  `json:"date"`
	Status       domain.AttendanceStatus `json:"status"`
	CheckInTime  *time.Time              `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time              `json:"check_out_time,omitempty"`
}

// ScanRejectedPayload records why a scan was refused. TokenConsumed is set
// when the token was spent even though no record changed.
type ScanRejectedPayload struct {
	Reason        string `json:"reason"`
	TokenConsumed bool   `json:"token_consumed"`
}

// TokenRegisteredPayload payload.
type TokenRegisteredPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
