package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// AttendanceTokenRequest carries the opaque value encoded in the QR code.
// Any non-empty value is accepted; only its size is bounded.
type AttendanceTokenRequest struct {
	Token string `json:"token"`
}

// MaxAttendanceTokenLength bounds the opaque token value.
const MaxAttendanceTokenLength = 512

func (r AttendanceTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required, validation.Length(1, MaxAttendanceTokenLength)),
	)
}

// AttendanceTokenResponse acknowledges a registration.
type AttendanceTokenResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttendanceRecordResponse is the public view of a daily record.
type AttendanceRecordResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Date         string     `json:"date"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	Status       string     `json:"status"`
}

// NewAttendanceRecordResponse converts a domain record.
func NewAttendanceRecordResponse(record *domain.AttendanceRecord) AttendanceRecordResponse {
	return AttendanceRecordResponse{
		ID:           record.ID,
		Username:     record.User.Username,
		Date:         record.Date.Format(time.DateOnly),
		CheckInTime:  record.CheckInTime,
		CheckOutTime: record.CheckOutTime,
		Status:       string(record.Status),
	}
}
