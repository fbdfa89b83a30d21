package middleware

import (
	"crypto/subtle"

	"verdant-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const adminKeyHeader = "x-admin-key"

// RequireAdminKey guards operator endpoints (reconcile sweep, forced
// refresh) with a shared key. An empty configured key disables the routes.
func RequireAdminKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return response.Error(c, "Admin endpoints disabled", fiber.StatusForbidden, nil)
		}
		provided := c.Get(adminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			return response.Unauthorized(c, "Invalid admin key")
		}
		return c.Next()
	}
}
