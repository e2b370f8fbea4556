package domain

import (
	"errors"
	"fmt"
)

var (
	// Authentication
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("unauthenticated")

	// Account management
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// JWT validation
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrWrongTokenType = errors.New("wrong token type")

	// Attendance
	ErrAttendanceAlreadyMarked    = errors.New("attendance already marked for today")
	ErrTokenInvalidOrUsed         = errors.New("invalid or used attendance token")
	ErrAttendanceTokenExpired     = fmt.Errorf("attendance %w", ErrTokenExpired)
	ErrAttendanceAlreadyCompleted = errors.New("attendance already completed")

	ErrInvalidInput = errors.New("invalid input")
)
