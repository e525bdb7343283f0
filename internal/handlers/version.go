package handlers

import (
	"github.com/dreamlog/backend/internal/middleware"
	"github.com/dreamlog/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type VersionHandler struct {
	versions *services.VersionService
}

func NewVersionHandler(versions *services.VersionService) *VersionHandler {
	return &VersionHandler{versions: versions}
}

// List returns a dream's version history with stats.
func (h *VersionHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	result, err := h.versions.ListVersions(c.Params("id"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}

// Detail returns a single version.
func (h *VersionHandler) Detail(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	result, err := h.versions.GetVersionDetail(c.Params("id"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}

// Switch makes the given version the dream's current version.
func (h *VersionHandler) Switch(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	result, err := h.versions.SwitchCurrentVersion(c.Params("id"), userID, c.Params("versionId"))
	if err != nil {
		return serviceError(c, err)
	}
	return ok(c, result)
}
