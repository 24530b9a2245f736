package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Roles allowed to change the review state of attempts and tests.
const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
)

// ReviewGuard returns the handlers protecting recompute, flag and scoring
// configuration routes. An empty secret disables the guard.
func ReviewGuard(secret string) []fiber.Handler {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return []fiber.Handler{
		JWTProtected(secret),
		RequireRole(RoleAdmin, RoleReviewer),
	}
}
