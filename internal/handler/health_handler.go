package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/assessment-ops-api/internal/config"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks an optional dependency such as the cache or the event broker.
type HealthProbe func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Database     string            `json:"database"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck reports service health. The database is required: when it does
// not answer the endpoint returns 503. Failing optional probes only mark the
// service degraded. A nil database reports "unknown".
func HealthCheck(cfg config.Config, db *gorm.DB, probes map[string]HealthProbe) fiber.Handler {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
		defer cancel()

		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Database:    "unknown",
		}

		if len(names) > 0 {
			payload.Dependencies = make(map[string]string, len(names))
			for _, name := range names {
				if err := probes[name](ctx); err != nil {
					payload.Dependencies[name] = "down"
					payload.Status = "degraded"
					continue
				}
				payload.Dependencies[name] = "up"
			}
		}

		if db == nil {
			return utils.SendSuccess(c, "service healthy", payload)
		}

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			payload.Status = "degraded"
			payload.Database = "down"
			return utils.Fail(c, fiber.StatusServiceUnavailable, "database unavailable", payload)
		}
		payload.Database = "up"

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
