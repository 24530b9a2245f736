package router

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/config"
	"github.com/noah-isme/assessment-ops-api/internal/handler"
	"github.com/noah-isme/assessment-ops-api/internal/middleware"
	"github.com/noah-isme/assessment-ops-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB                 *gorm.DB
	IngestHandler      *handler.IngestHandler
	AttemptHandler     *handler.AttemptHandler
	LeaderboardHandler *handler.LeaderboardHandler
	TestHandler        *handler.TestHandler
	ActivityHandler    *handler.ActivityHandler
	HealthProbes       map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	health := handler.HealthCheck(cfg, deps.DB, deps.HealthProbes)
	app.Get("/health", health)
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", health)

	reviewGuard := middleware.ReviewGuard(cfg.JWTSecret)

	if deps.IngestHandler != nil {
		ingestLimiter := middleware.RateLimit("ingest", cfg.IngestRateLimit, cfg.IngestRateWindow)
		deps.IngestHandler.Register(api.Group("/ingest"), ingestLimiter)
	}

	if deps.AttemptHandler != nil {
		deps.AttemptHandler.Register(api.Group("/attempts"), reviewGuard...)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(api.Group("/leaderboard"))
	}

	if deps.TestHandler != nil {
		deps.TestHandler.Register(api.Group("/tests"), reviewGuard...)
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity"), reviewGuard...)
	}
}
