package middleware

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

var (
	allowedHeaders = []string{
		fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization,
		"X-Correlation-ID", "X-Ingest-Batch-ID", "X-Request-ID",
	}
	exposedHeaders = []string{
		"X-Correlation-ID", "X-Request-ID",
		"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", fiber.HeaderRetryAfter,
	}
	allowedMethods = []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodOptions}
)

// Config controls the shared middleware stack.
type Config struct {
	Logger *zerolog.Logger
	// AccessLogging adds Fiber's plain access log, useful in development.
	AccessLogging bool
	// AllowOrigins is a comma separated CORS origin list, "*" when empty.
	AllowOrigins string
}

// Register installs panic recovery, request correlation, metrics and CORS on app.
func Register(app *fiber.App, cfg Config) {
	httpLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		httpLogger = cfg.Logger.With().Str("component", "http").Logger()
	}

	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.AccessLogging}))
	app.Use(CorrelationID())
	app.Use(Observability(httpLogger))
	if cfg.AccessLogging {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:correlation_id} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  strings.Join(allowedHeaders, ", "),
		AllowMethods:  strings.Join(allowedMethods, ","),
		ExposeHeaders: strings.Join(exposedHeaders, ", "),
	}))
}
