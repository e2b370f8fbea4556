package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/domain"
)

// TokenIssuer issues and validates signed access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

// TokenIssuerConfig carries the signing key and lifetimes.
type TokenIssuerConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewTokenIssuer builds an issuer. A nil clock falls back to the system clock.
func NewTokenIssuer(cfg TokenIssuerConfig, clk clock.Clock) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		clock:      clk,
	}
}

// Claims describes the JWT payload. Refresh tokens never carry roles.
type Claims struct {
	Type  domain.TokenType `json:"typ"`
	Roles []string         `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Username returns the subject.
func (c *Claims) Username() string {
	return c.Subject
}

// IssueAccess signs a short-lived access token carrying the user's current roles.
func (ti *TokenIssuer) IssueAccess(user *domain.User) (domain.IssuedToken, error) {
	return ti.issue(user.Username, domain.TokenTypeAccess, domain.NewRoles(user.Roles...), ti.accessTTL)
}

// IssueRefresh signs a long-lived refresh token without roles.
func (ti *TokenIssuer) IssueRefresh(user *domain.User) (domain.IssuedToken, error) {
	return ti.issue(user.Username, domain.TokenTypeRefresh, nil, ti.refreshTTL)
}

func (ti *TokenIssuer) issue(subject string, typ domain.TokenType, roles []string, ttl time.Duration) (domain.IssuedToken, error) {
	now := ti.clock.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Type:  typ,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ti.secret)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Value: tokenString, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate verifies signature and expiry, then checks the token type.
func (ti *TokenIssuer) Validate(tokenStr string, expected domain.TokenType) (*Claims, error) {
	claims, err := ti.parse(tokenStr,
		jwt.WithTimeFunc(ti.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Type != expected {
		return nil, fmt.Errorf("%w: expected %s, got %q", domain.ErrWrongTokenType, expected, claims.Type)
	}
	return claims, nil
}

// ExtractSubject returns the username of a correctly signed token without
// checking expiry or type.
func (ti *TokenIssuer) ExtractSubject(tokenStr string) (string, error) {
	claims, err := ti.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrTokenMalformed)
	}
	return claims.Subject, nil
}

func (ti *TokenIssuer) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenMalformed
	}
	return claims, nil
}
