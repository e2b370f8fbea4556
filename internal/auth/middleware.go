package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/domain"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer access tokens and stores the caller's principal.
type AuthMiddleware struct {
	tokens *TokenIssuer
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. Roles come from the
// token snapshot; they are not re-read from the directory.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.Validate(token, domain.TokenTypeAccess)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return domain.ErrTokenExpired
		}
		return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	c.Locals(principalKey, &domain.Principal{
		Username: claims.Username(),
		Roles:    domain.NewRoles(claims.Roles...),
	})
	return c.Next()
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: invalid authorization header", domain.ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}
