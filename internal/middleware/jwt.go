package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/assessment-ops-api/internal/utils"
)

const tokenLeeway = 30 * time.Second

// JWTProtected validates HS256 bearer tokens signed with secret. The subject and
// role claims are stored as the user_id and user_role locals, which the review
// audit trail records as the acting reviewer.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
	)
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw, message := bearerToken(c.Get(fiber.HeaderAuthorization))
		if message != "" {
			return utils.SendError(c, fiber.StatusUnauthorized, message)
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if subject := subjectClaim(claims); subject != "" {
			c.Locals("user_id", subject)
		}
		if role := roleClaim(claims); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. The second
// value is the rejection message when the header is unusable.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "authorization header missing"
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "invalid token"
	}
	return token, ""
}

// subjectClaim reads sub, falling back to user_id for tokens minted by older
// admin tooling.
func subjectClaim(claims jwt.MapClaims) string {
	if subject, err := claims.GetSubject(); err == nil && strings.TrimSpace(subject) != "" {
		return strings.TrimSpace(subject)
	}
	switch v := claims["user_id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// roleClaim accepts either a role string or the first non-empty roles entry.
func roleClaim(claims jwt.MapClaims) string {
	if role, ok := claims["role"].(string); ok {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			return role
		}
	}
	roles, _ := claims["roles"].([]interface{})
	for _, item := range roles {
		if role, ok := item.(string); ok {
			if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
				return role
			}
		}
	}
	return ""
}
