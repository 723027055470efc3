package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cardvault/internal/repositories"
)

// HealthCheck reports process liveness plus database reachability.
func HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "ok",
		"database": "up",
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status["status"] = "degraded"
		status["database"] = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}

	return c.JSON(status)
}
