package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/internal/pkg/env"
)

// ServiceKeyAuth authenticates service-to-service calls with a shared API
// key. When SERVICE_API_KEY is unset the middleware is a no-op, so local
// development needs no extra setup.
func ServiceKeyAuth() fiber.Handler {
	expected := env.GetEnv("SERVICE_API_KEY", "")

	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Next()
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}
		return c.Next()
	}
}

// extractAPIKeyFromHeader reads the key from X-API-Key or a bearer token.
func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
