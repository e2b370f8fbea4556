package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// sentinelMapping is checked in order; wrapping sentinels come before the
// sentinels they wrap.
var sentinelMapping = []struct {
	target  error
	code    string
	message string
	status  int
}{
	{domain.ErrUnauthenticated, "UNAUTHENTICATED", "authentication required", http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized},
	{domain.ErrAccountDeactivated, "ACCOUNT_DEACTIVATED", "account is deactivated", http.StatusForbidden},
	{domain.ErrUserNotFound, "USER_NOT_FOUND", "user not found", http.StatusUnauthorized},
	{domain.ErrAccountNotFound, "ACCOUNT_NOT_FOUND", "account not found", http.StatusNotFound},
	{domain.ErrAccountExists, "ACCOUNT_EXISTS", "account already exists", http.StatusConflict},
	{domain.ErrAttendanceTokenExpired, "ATTENDANCE_TOKEN_EXPIRED", "attendance token expired", http.StatusGone},
	{domain.ErrTokenExpired, "TOKEN_EXPIRED", "token expired", http.StatusUnauthorized},
	{domain.ErrTokenMalformed, "TOKEN_MALFORMED", "invalid token", http.StatusBadRequest},
	{domain.ErrWrongTokenType, "WRONG_TOKEN_TYPE", "invalid token type", http.StatusBadRequest},
	{domain.ErrAttendanceAlreadyMarked, "ATTENDANCE_ALREADY_MARKED", "attendance already marked for today", http.StatusConflict},
	{domain.ErrTokenInvalidOrUsed, "ATTENDANCE_TOKEN_INVALID", "invalid or used attendance token", http.StatusNotFound},
	{domain.ErrAttendanceAlreadyCompleted, "ATTENDANCE_ALREADY_COMPLETED", "attendance already completed", http.StatusConflict},
	{domain.ErrInvalidInput, "VALIDATION_FAILED", "invalid input", http.StatusBadRequest},
}

// ToDomainError converts errors to DomainError. Domain sentinels get their
// own code and a fixed message so token values or credentials never leak.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, m := range sentinelMapping {
		if errors.Is(err, m.target) {
			return &DomainError{Code: m.code, Message: m.message, HTTPStatus: m.status, Err: err}
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
