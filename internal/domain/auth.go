package domain

import "time"

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Principal is the authenticated caller, reconstructed from an access token.
// Roles are the snapshot taken when the token was issued.
type Principal struct {
	Username string
	Roles    Roles
}

// IssuedToken is a signed token together with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Profile is the identity view returned for an access token.
type Profile struct {
	Username   string
	Roles      Roles
	Enabled    bool
	FirstLogin bool
}
