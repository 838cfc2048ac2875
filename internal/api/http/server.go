package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/api/http/handlers"
	"github.com/spec-kit/diagnostic-login/internal/auth"
	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/observability"
	"github.com/spec-kit/diagnostic-login/internal/service"
)

// ServerDeps are the collaborators NewApp wires together.
type ServerDeps struct {
	Auth    *service.AuthService
	Users   auth.UserLookup
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Health  map[string]handlers.Pinger
}

// NewApp builds the fiber application with middlewares and routes registered.
func NewApp(cfg config.Config, deps ServerDeps) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, deps.Metrics, cfg.App.RequestTimeout())

	tokens := deps.Auth.TokenManager()
	cookies := handlers.NewCookies(cfg.Cookie, tokens.AccessTTL(), tokens.RefreshTTL())

	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Health, deps.Metrics),
		Users:          handlers.NewUsersHandler(deps.Auth, cookies),
		Staff:          handlers.NewStaffHandler(deps.Auth),
		Diagnostic:     handlers.NewDiagnosticHandler(deps.Auth, cookies),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, deps.Users, cfg.Cookie.AccessName),
		Limiter:        NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
	})
	return app
}
