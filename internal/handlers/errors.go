package handlers

import (
	"errors"
	"strings"

	"github.com/dreamlog/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// serviceError translates service-layer sentinel errors into HTTP
// responses. The messages distinguish "out of quota" from "AI service
// unavailable" from "no permission" so the client can decide between an
// upgrade prompt, a retry button, or nothing.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "资源不存在")
	case errors.Is(err, services.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "无权访问该资源")
	case errors.Is(err, services.ErrQuotaExhausted):
		return fail(c, fiber.StatusBadRequest, "今日润色配额已用完，开通会员可无限润色")
	case errors.Is(err, services.ErrRewriteFailed):
		return fail(c, fiber.StatusBadRequest, "AI 润色服务暂时不可用，请稍后重试")
	case errors.Is(err, services.ErrQuotaUnavailable):
		return fail(c, fiber.StatusServiceUnavailable, "配额获取失败，请稍后重试")
	case errors.Is(err, services.ErrValidation):
		return fail(c, fiber.StatusBadRequest, validationMessage(err))
	default:
		return fail(c, fiber.StatusInternalServerError, "服务器内部错误")
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
