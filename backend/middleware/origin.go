package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ThomasByr/skyroulette/backend/utils"
)

// AllowedOrigin rejects requests whose Origin, or Referer when Origin is
// absent, does not start with allowed. An empty allowed disables the check.
func AllowedOrigin(allowed string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if allowed == "" {
			return c.Next()
		}

		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			origin = c.Get(fiber.HeaderReferer)
		}
		if origin == "" || !strings.HasPrefix(origin, allowed) {
			slog.Warn("Request from disallowed origin",
				slog.String("type", "http"),
				slog.String("origin", origin),
				slog.String("path", c.Path()),
				slog.String("ip", utils.GetIPAddress(c)))
			return utils.SendForbidden(c, "Forbidden")
		}
		return c.Next()
	}
}
