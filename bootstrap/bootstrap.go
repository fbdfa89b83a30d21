package bootstrap

import (
	"verdant-backend/internal/config"
	"verdant-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless deploys (the api handler imports
// this package, not internal). Background loops are not started here.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	return app.Fiber, nil
}
