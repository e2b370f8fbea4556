package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/domain"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

func newMiddlewareApp(issuer *TokenIssuer) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.SendStatus(fe.Code)
			}
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(issuer)
	app.Get("/me", mw.Handle, RequireAuthenticated(), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.Username)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, bearer string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(testStart)
	issuer := newTestIssuer(clk)
	app := newMiddlewareApp(issuer)

	admin, err := issuer.IssueAccess(&domain.User{Username: "root", Roles: domain.NewRoles(domain.RoleAdmin)})
	require.NoError(t, err)
	member, err := issuer.IssueAccess(&domain.User{Username: "bob", Roles: domain.NewRoles("USER")})
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh(&domain.User{Username: "bob"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doGet(t, app, "/me", member.Value).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "/me", refresh.Value).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "/me", "junk").StatusCode)

	assert.Equal(t, http.StatusNoContent, doGet(t, app, "/admin", admin.Value).StatusCode)
	assert.Equal(t, http.StatusForbidden, doGet(t, app, "/admin", member.Value).StatusCode)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(testStart)
	issuer := newTestIssuer(clk)
	app := newMiddlewareApp(issuer)

	member, err := issuer.IssueAccess(&domain.User{Username: "bob"})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	resp := doGet(t, app, "/me", member.Value)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
