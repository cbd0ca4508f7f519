package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const RoleAdmin = "admin"

// Locals key under which the calling service name is stored.
const KeyCallerService = "CALLER_SERVICE"

// RequireInternalService lets through requests that name the calling service
// in header. The gateway in front of the service strips the header from
// external traffic.
func RequireInternalService(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		service := strings.TrimSpace(c.Get(header))
		if service == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing " + header + " header"})
		}
		c.Locals(KeyCallerService, service)
		return c.Next()
	}
}

// RequireAdmin only lets through requests whose role header is "admin".
func RequireAdmin(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := strings.TrimSpace(c.Get(header))
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing " + header + " header"})
		}
		if !strings.EqualFold(role, RoleAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin role required"})
		}
		return c.Next()
	}
}

// CallerService returns the service name recorded by RequireInternalService.
func CallerService(c *fiber.Ctx) string {
	if v, ok := c.Locals(KeyCallerService).(string); ok {
		return v
	}
	return ""
}
