package routes

import (
	"fleetinventory/apperror"
	"fleetinventory/auth"
	"fleetinventory/models"

	"github.com/gofiber/fiber/v2"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *handler) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := apperror.Struct(req); err != nil {
		return writeError(c, err)
	}

	token, user, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(LoginResponse{Token: token, User: user})
}

func (h *handler) me(c *fiber.Ctx) error {
	userID, _ := auth.UserID(c)
	user, err := h.auth.GetUser(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *handler) updateProfile(c *fiber.Ctx) error {
	userID, _ := auth.UserID(c)
	var in auth.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	profile, err := h.auth.UpdateProfile(c.UserContext(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(profile)
}
