package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	exportrouter "github.com/goliatone/go-report/adapters/router"
	"github.com/goliatone/go-router"
)

// FiberApp builds the fiber application with health and metrics endpoints.
// Export routes are added by Server through go-router.
func (a *App) FiberApp() *fiber.App {
	cfg := fiber.Config{
		AppName:               "go-report",
		DisableStartupMessage: true,
	}
	if limit := a.Config.Export.MaxBodyBytes; limit > 0 {
		cfg.BodyLimit = int(limit)
	}
	fiberApp := fiber.New(cfg)

	fiberApp.Use(fiberrecover.New())
	fiberApp.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Content-Type,Accept",
		ExposeHeaders: "Content-Disposition,X-Export-Id,X-Export-Warning",
	}))

	fiberApp.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if a.Metrics != nil && a.Config.Metrics.Path != "" {
		fiberApp.Get(a.Config.Metrics.Path, adaptor.HTTPHandler(a.Metrics.Handler()))
	}
	return fiberApp
}

// Server returns a go-router server on fiber with the export routes mounted.
func (a *App) Server() router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return a.FiberApp()
	})
	exportrouter.NewHandler(a.HTTPConfig()).RegisterRoutes(srv.Router())
	return srv
}
