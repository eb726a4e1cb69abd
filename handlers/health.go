package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/dars-api/database"
)

// HandleCheckHealth handles GET /api/v1/ping
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unavailable",
			"database": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
