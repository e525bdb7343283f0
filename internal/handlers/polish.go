package handlers

import (
	"strings"

	"github.com/dreamlog/backend/internal/middleware"
	"github.com/dreamlog/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const maxPromptLength = 500

type PolishHandler struct {
	polish *services.PolishService
}

func NewPolishHandler(polish *services.PolishService) *PolishHandler {
	return &PolishHandler{polish: polish}
}

type polishDreamRequest struct {
	Prompt           string  `json:"prompt"`
	BasedOnVersionID *string `json:"based_on_version_id"`
}

type polishTextRequest struct {
	Content string `json:"content"`
	Prompt  string `json:"prompt"`
}

// PolishDream rewrites a dream's text with AI, creating a new polished
// version.
func (h *PolishHandler) PolishDream(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	dreamID := c.Params("dreamId")

	var req polishDreamRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if len([]rune(req.Prompt)) > maxPromptLength {
		return fail(c, fiber.StatusBadRequest, "润色要求过长")
	}

	result, err := h.polish.PolishDream(c.Context(), userID, dreamID, req.Prompt, req.BasedOnVersionID)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}

// PolishText rewrites free-standing text without saving anything.
func (h *PolishHandler) PolishText(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req polishTextRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return fail(c, fiber.StatusBadRequest, "润色内容不能为空")
	}
	if len([]rune(req.Prompt)) > maxPromptLength {
		return fail(c, fiber.StatusBadRequest, "润色要求过长")
	}

	result, err := h.polish.PolishText(c.Context(), userID, req.Content, req.Prompt)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}

// GetQuota returns today's polish quota snapshot.
func (h *PolishHandler) GetQuota(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	snapshot, err := h.polish.GetQuota(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, snapshot)
}
