package dto

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
	)
}

// ChangePasswordRequest payload for the first-login password change.
type ChangePasswordRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 200)),
	)
}

// TokenResponse carries a signed token and its expiry.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResponse is returned by login. Tokens are omitted when a password
// change is required.
type LoginResponse struct {
	RequirePasswordChange bool           `json:"requirePasswordChange"`
	Message               string         `json:"message,omitempty"`
	AccessToken           *TokenResponse `json:"accessToken,omitempty"`
	RefreshToken          *TokenResponse `json:"refreshToken,omitempty"`
	Roles                 []string       `json:"roles,omitempty"`
}

// ProfileResponse describes the authenticated caller.
type ProfileResponse struct {
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
	Enabled    bool     `json:"enabled"`
	FirstLogin bool     `json:"firstLogin"`
}

// NewTokenResponse converts an issued token.
func NewTokenResponse(token *domain.IssuedToken) *TokenResponse {
	if token == nil {
		return nil
	}
	return &TokenResponse{Token: token.Value, ExpiresAt: token.ExpiresAt}
}

// ValidationDetails flattens ozzo field errors for the error envelope.
func ValidationDetails(err error) map[string]any {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return details
}

// CreateAccountRequest is sent by an admin to open an account.
type CreateAccountRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

func (r CreateAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), validation.Match(emailPattern)),
		validation.Field(&r.Role, validation.Length(0, 50)),
	)
}

// AccountCreationResponse carries the one-time temporary password.
type AccountCreationResponse struct {
	Account           AccountResponse `json:"account"`
	TemporaryPassword string          `json:"temporaryPassword"`
	Message           string          `json:"message"`
}

// AccountResponse is the admin view of an account.
type AccountResponse struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Email      string   `json:"email,omitempty"`
	Roles      []string `json:"roles"`
	Enabled    bool     `json:"enabled"`
	FirstLogin bool     `json:"firstLogin"`
}

// NewAccountResponse converts a directory entry.
func NewAccountResponse(user *domain.User) AccountResponse {
	return AccountResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Roles:      user.Roles,
		Enabled:    user.Enabled,
		FirstLogin: user.FirstLogin,
	}
}
