package httpx

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/studylion/studypartner-backend/internal/apperr"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusNotFound, code, message)
}

func Conflict(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusConflict, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError maps a service error onto the wire by its apperr kind. Plain
// errors become a 500 so storage details never leak to clients.
func FromError(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return NotFound(c, code, err.Error())
	case apperr.KindForbidden:
		return Forbidden(c, code, err.Error())
	case apperr.KindConflict:
		return Conflict(c, code, err.Error())
	case apperr.KindInvalid:
		return BadRequest(c, code, err.Error())
	case apperr.KindUnauthenticated:
		return Unauthorized(c, code, err.Error())
	case apperr.KindUnavailable:
		return Error(c, fiber.StatusServiceUnavailable, code, "Service temporarily unavailable")
	default:
		return Internal(c, "internal_error")
	}
}

func LocalUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Locals(key)
	if v == nil {
		return 0, fmt.Errorf("missing local %s", key)
	}
	u, ok := v.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid local %s", key)
	}
	return u, nil
}
