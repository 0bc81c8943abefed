package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studylion/studypartner-backend/internal/httpx"
	"github.com/studylion/studypartner-backend/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	user, err := h.userService.GetByID(userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(user.ToResponse())
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	var input service.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(userID, input)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(user.ToResponse())
}
