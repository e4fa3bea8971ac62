package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ThomasByr/skyroulette/backend/utils"
	"github.com/ThomasByr/skyroulette/internal/domain/roulette"
	"github.com/ThomasByr/skyroulette/skyroulette/logger"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 50
	pingTimeout     = 2 * time.Second
)

// Pinger is satisfied by database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WebApp carries what the web wheel handlers need. DB is nil when history
// lives in a file.
type WebApp struct {
	Service *roulette.Service
	DB      Pinger
	Version string
	Commit  string
}

// Spin triggers the wheel. Cooldown and an empty roster are normal answers;
// only a failed history write is reported as an outage.
func Spin(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp, err := webApp.Service.Spin(c.UserContext())
		logger.LogSpin("web", resp.Status, resp.Member, err)
		if err != nil {
			return utils.SendJSON(c, fiber.StatusServiceUnavailable, resp)
		}
		return utils.SendJSON(c, fiber.StatusOK, resp)
	}
}

func Status(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendJSON(c, fiber.StatusOK, webApp.Service.Status(c.UserContext()))
	}
}

func History(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendJSON(c, fiber.StatusOK, webApp.Service.History())
	}
}

// Top returns the restriction leaderboard, ?limit= rows (default 10).
func Top(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := defaultTopLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxTopLimit {
				return utils.SendBadRequest(c, "Invalid limit", map[string]string{
					"limit": "must be an integer between 1 and " + strconv.Itoa(maxTopLimit),
				})
			}
			limit = n
		}
		return utils.SendJSON(c, fiber.StatusOK, webApp.Service.TopRestricted(c.UserContext(), limit))
	}
}

// Config is kept for the frontend, which fetches it on load.
func Config(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendJSON(c, fiber.StatusOK, fiber.Map{})
	}
}

func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if webApp.DB != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
			defer cancel()
			if err := webApp.DB.Ping(ctx); err != nil {
				slog.Error("Health check failed",
					slog.String("type", "http"),
					slog.Any("error", err))
				return utils.SendError(c, fiber.StatusServiceUnavailable, "UNHEALTHY", "Database unreachable", nil)
			}
		}
		return utils.SendSuccess(c, fiber.Map{
			"status":  "healthy",
			"version": webApp.Version,
			"commit":  webApp.Commit,
		}, "Health check successful")
	}
}

// NotFound answers unknown routes in the API envelope.
func NotFound(c *fiber.Ctx) error {
	slog.Debug("Route not found",
		slog.String("type", "http"),
		slog.String("path", c.Path()))
	return utils.SendError(c, fiber.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}
