package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assistant-auth/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	LoginLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes. The route guard itself is installed as a
// global middleware; only /health and /api/auth are on its public allowlist,
// so everything registered outside those prefixes is session-protected by
// default.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	if cfg.LoginLimiter != nil {
		authGroup.Post("/login", cfg.LoginLimiter, cfg.Auth.Login)
	} else {
		authGroup.Post("/login", cfg.Auth.Login)
	}
	authGroup.Post("/logout", cfg.Auth.Logout)

	protected := app.Group("/api/protected")
	protected.Get("/me", cfg.Profile.Me)
}
