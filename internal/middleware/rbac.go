package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

// RequireRole admits callers whose user_role local matches one of roles,
// case-insensitively. Callers without a role get 401, other roles get 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			allowed[role] = true
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		switch role = strings.ToLower(strings.TrimSpace(role)); {
		case role == "":
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		case !allowed[role]:
			return utils.SendError(c, fiber.StatusForbidden, "reviewer or admin role required")
		}
		return c.Next()
	}
}
