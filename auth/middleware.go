package auth

import (
	"errors"
	"strings"

	"fleetinventory/apperror"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID   = "user_id"
	localUsername = "username"
)

// Middleware resolves the caller from "Authorization: Bearer <jwt>",
// "Authorization: Token <key>" or a "token" query parameter and rejects the
// request when none is valid.
func (s *Service) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, credential := credentials(c)
		if credential == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication credentials were not provided",
			})
		}

		userID, username, err := s.identify(c, scheme, credential)
		if err != nil {
			if !errors.Is(err, apperror.ErrUnauthorized) {
				return err
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired credentials",
			})
		}

		c.Locals(localUserID, userID)
		c.Locals(localUsername, username)
		return c.Next()
	}
}

func (s *Service) identify(c *fiber.Ctx, scheme, credential string) (uint, string, error) {
	if scheme == "bearer" || scheme == "" {
		claims, err := s.ValidateToken(credential)
		if err == nil {
			return claims.UserID, claims.Username, nil
		}
		if scheme == "bearer" {
			return 0, "", err
		}
	}
	user, err := s.UserForAPIToken(c.UserContext(), credential)
	if err != nil {
		return 0, "", err
	}
	return user.ID, user.Username, nil
}

func credentials(c *fiber.Ctx) (scheme, credential string) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 {
			return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
		}
		return "", ""
	}
	return "", c.Query("token")
}

// UserID returns the authenticated caller's id set by Middleware.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localUserID).(uint)
	return id, ok
}

func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(localUsername).(string)
	return name
}
