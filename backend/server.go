// Package backend serves the web wheel: the JSON API the page spins through
// and, optionally, the page itself.
package backend

import (
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ThomasByr/skyroulette/backend/handlers"
	"github.com/ThomasByr/skyroulette/backend/middleware"
)

type Config struct {
	AllowedOrigin  string
	StaticDir      string
	SpinsPerMinute int
}

// NewApp builds the fiber application. It does not listen.
func NewApp(webApp *handlers.WebApp, cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Skyroulette",
		ServerHeader:          "Skyroulette",
		ErrorHandler:          middleware.CustomErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(middleware.CORS(cfg.AllowedOrigin))
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp, cfg)
	return app
}

func setupRoutes(app *fiber.App, webApp *handlers.WebApp, cfg Config) {
	app.Get("/health", handlers.HealthCheck(webApp))

	if cfg.StaticDir != "" {
		app.Static("/static", cfg.StaticDir)
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendFile(filepath.Join(cfg.StaticDir, "index.html"))
		})
	}

	origin := middleware.AllowedOrigin(cfg.AllowedOrigin)
	app.Post("/spin", origin, middleware.RateLimit(cfg.SpinsPerMinute, time.Minute), handlers.Spin(webApp))
	app.Get("/status", origin, handlers.Status(webApp))
	app.Get("/history", origin, handlers.History(webApp))
	app.Get("/top", origin, handlers.Top(webApp))
	app.Get("/config", origin, handlers.Config(webApp))

	app.Use(handlers.NotFound)
}
