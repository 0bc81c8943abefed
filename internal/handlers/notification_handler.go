package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studylion/studypartner-backend/internal/httpx"
	"github.com/studylion/studypartner-backend/internal/service"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	page := pageFromQuery(c)
	notifications, total, err := h.notifService.ListForUser(userID, page)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(paged(notifications, total, page))
}

func (h *NotificationHandler) ListUnread(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	notifications, err := h.notifService.ListUnread(userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"items": notifications})
}

func (h *NotificationHandler) CountUnread(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	count, err := h.notifService.CountUnread(userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	notifID, ok := paramUint(c, "id")
	if !ok {
		return httpx.BadRequest(c, "invalid_notification_id", "Invalid notification ID")
	}

	if err := h.notifService.MarkRead(notifID, userID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	if err := h.notifService.MarkAllRead(userID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	notifID, ok := paramUint(c, "id")
	if !ok {
		return httpx.BadRequest(c, "invalid_notification_id", "Invalid notification ID")
	}

	if err := h.notifService.Delete(notifID, userID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted successfully"})
}
