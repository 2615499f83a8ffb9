package routes

import (
	"errors"
	"strconv"
	"time"

	"fleetinventory/logger"
	"fleetinventory/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requestContext tags each request with an id, stores a request logger in the user
// context and records request metrics.
func requestContext(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("X-Request-ID", requestID)

		log := base.With(zap.String("request_id", requestID))
		c.SetUserContext(logger.WithLogger(c.UserContext(), log))

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		metrics.RecordHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}

func requestLogger(c *fiber.Ctx) *zap.Logger {
	return logger.FromContext(c.UserContext())
}
