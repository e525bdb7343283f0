package handlers

import (
	"strconv"

	"github.com/dreamlog/backend/internal/middleware"
	"github.com/dreamlog/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DreamHandler struct {
	dreams *services.DreamService
}

func NewDreamHandler(dreams *services.DreamService) *DreamHandler {
	return &DreamHandler{dreams: dreams}
}

// Create records a new dream with its original version.
func (h *DreamHandler) Create(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var input services.CreateDreamInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	dream, err := h.dreams.Create(userID, input)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, dream)
}

// List returns the user's dreams with pagination and filters.
func (h *DreamHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	result, err := h.dreams.List(userID, services.DreamListQuery{
		Page:      page,
		PageSize:  pageSize,
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Tag:       c.Query("tag"),
		Emotion:   c.Query("emotion"),
		Keyword:   c.Query("keyword"),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}

// Get returns one dream.
func (h *DreamHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	dream, err := h.dreams.Get(userID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, dream)
}

// Update replaces a dream's text, recording an edited version.
func (h *DreamHandler) Update(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var input services.UpdateDreamInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	dream, err := h.dreams.Update(userID, c.Params("id"), input)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, dream)
}

// Delete soft-deletes a dream.
func (h *DreamHandler) Delete(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	if err := h.dreams.Delete(userID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.Map{"message": "删除成功"})
}

type batchDeleteRequest struct {
	DreamIDs []string `json:"dream_ids"`
}

// BatchDelete soft-deletes multiple dreams.
func (h *DreamHandler) BatchDelete(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req batchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	deleted, err := h.dreams.BatchDelete(userID, req.DreamIDs)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.Map{"deleted_count": deleted})
}

// TogglePrivacy flips a dream's public visibility.
func (h *DreamHandler) TogglePrivacy(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	isPublic, err := h.dreams.TogglePrivacy(userID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, fiber.Map{"is_public": isPublic})
}
