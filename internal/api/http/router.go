package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diagnostic-login/internal/api/http/handlers"
	"github.com/spec-kit/diagnostic-login/internal/auth"
)

// APIPrefix is where the auth endpoints are mounted.
const APIPrefix = "/api/auth"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Diagnostic     *handlers.DiagnosticHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *RateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group(APIPrefix)
	authGroup.Post("/login/", cfg.Limiter.Handle, cfg.Users.Login)
	authGroup.Post("/refresh/", cfg.Users.Refresh)
	authGroup.Post("/exchange/", cfg.Limiter.Handle, cfg.Diagnostic.Exchange)
	authGroup.Get("/diagnostic-info/", cfg.Diagnostic.Info)

	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAuthenticated()}
	authGroup.Post("/logout/", append(authenticated, cfg.Users.Logout)...)
	authGroup.Get("/me/", append(authenticated, cfg.Users.Me)...)

	staffOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireStaff()}
	authGroup.Get("/users/", append(staffOnly, cfg.Staff.ListCustomers)...)
	authGroup.Post("/diagnostic-login/", append(staffOnly, cfg.Staff.DiagnosticLogin)...)
}
