package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/attendance-service/internal/api/http/handlers"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Users             *handlers.UsersHandler
	Attendance        *handlers.AttendanceHandler
	Accounts          *handlers.AccountsHandler
	AuthMiddleware    *auth.AuthMiddleware
	Metrics           *observability.Metrics
	AuthRatePerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	api := app.Group("/api")

	authGroup := api.Group("/auth", rateLimitMiddleware(cfg.AuthRatePerMinute))
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/refresh-token", cfg.Users.Refresh)
	authGroup.Get("/me", cfg.Users.Me)

	users := api.Group("/users")
	users.Post("/change-password-first-login", rateLimitMiddleware(cfg.AuthRatePerMinute), cfg.Users.ChangeInitialPassword)
	if cfg.Accounts != nil {
		requireAdmin := auth.RequireRole(domain.RoleAdmin)
		users.Post("/", cfg.AuthMiddleware.Handle, requireAdmin, cfg.Accounts.Create)
		users.Get("/active", cfg.AuthMiddleware.Handle, requireAdmin, cfg.Accounts.ListActive)
		users.Get("/inactive", cfg.AuthMiddleware.Handle, requireAdmin, cfg.Accounts.ListInactive)
		users.Patch("/:id/deactivate", cfg.AuthMiddleware.Handle, requireAdmin, cfg.Accounts.Deactivate)
		users.Patch("/:id/reactivate", cfg.AuthMiddleware.Handle, requireAdmin, cfg.Accounts.Reactivate)
	}

	attendance := api.Group("/attendance", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	attendance.Post("/token/register", cfg.Attendance.RegisterToken)
	attendance.Get("/my", cfg.Attendance.Mine)
	attendance.Post("/mark", auth.RequireRole(domain.RoleAdmin), cfg.Attendance.Mark)
}
