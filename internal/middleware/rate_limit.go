package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/assessment-ops-api/internal/observability"
	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

const (
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
)

// RateLimit caps how many batches a caller may submit per window. Callers are
// keyed by token subject when authenticated and by IP otherwise. Rejections
// are counted per scope.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	retryAfter := strconv.Itoa(int(window.Round(time.Second) / time.Second))

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			if subject, ok := c.Locals("user_id").(string); ok && subject != "" {
				return scope + ":sub:" + subject
			}
			return scope + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited().WithLabelValues(scope).Inc()
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.Fail(c, fiber.StatusTooManyRequests, "rate limit exceeded", map[string]string{
				"scope":       scope,
				"retry_after": retryAfter + "s",
			})
		},
	})
}
