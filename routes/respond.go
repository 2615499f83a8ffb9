package routes

import (
	"errors"

	"fleetinventory/apperror"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeError maps error kinds to statuses: validation 400, not found 404,
// conflict 409, bad credentials 401, everything else 500.
func writeError(c *fiber.Ctx, err error) error {
	if v, ok := apperror.IsValidation(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": v.Violations,
		})
	}

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperror.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperror.ErrInvalidCredentials), errors.Is(err, apperror.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	requestLogger(c).Error("Request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Failed to parse request body: " + err.Error(),
	})
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperror.Validation("id", "must be a positive integer")
	}
	return uint(id), nil
}

// queryID reads an optional positive integer query parameter; 0 means absent.
func queryID(c *fiber.Ctx, key string) (uint, error) {
	if c.Query(key) == "" {
		return 0, nil
	}
	id := c.QueryInt(key, -1)
	if id <= 0 {
		return 0, apperror.Validation(key, "must be a positive integer")
	}
	return uint(id), nil
}
