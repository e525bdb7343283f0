package handlers

import (
	"github.com/dreamlog/backend/internal/middleware"
	"github.com/dreamlog/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AchievementHandler struct {
	achievements *services.AchievementService
}

func NewAchievementHandler(achievements *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

// List returns every achievement with the user's unlock state.
func (h *AchievementHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	result, err := h.achievements.ListForUser(userID)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}
