package services

import (
	"errors"
	"time"

	"github.com/dreamlog/backend/internal/models"
	"gorm.io/gorm"
)

// VersionService lists, reads and atomically switches the current
// version of a dream.
type VersionService struct {
	db *gorm.DB
}

func NewVersionService(db *gorm.DB) *VersionService {
	return &VersionService{db: db}
}

// VersionStats summarizes a dream's version history.
type VersionStats struct {
	Total    int `json:"total"`
	Original int `json:"original"`
	Edited   int `json:"edited"`
	Polished int `json:"polished"`
}

// VersionItem is one entry of a dream's version list.
type VersionItem struct {
	VersionID     string  `json:"version_id"`
	DreamID       string  `json:"dream_id"`
	Type          string  `json:"type"`
	Content       string  `json:"content"`
	PolishedFrom  *string `json:"polished_from"`
	PolishPrompt  string  `json:"polish_prompt,omitempty"`
	VersionNumber int     `json:"version_number"`
	IsCurrent     bool    `json:"is_current"`
	CreatedAt     string  `json:"created_at"`
}

// VersionListResult is the response of ListVersions.
type VersionListResult struct {
	DreamID          string        `json:"dream_id"`
	CurrentVersionID *string       `json:"current_version_id"`
	Stats            VersionStats  `json:"stats"`
	Versions         []VersionItem `json:"versions"`
}

// VersionDetail is the response of GetVersionDetail.
type VersionDetail struct {
	VersionItem
	AiModel    string `json:"ai_model,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// SwitchResult is the response of SwitchCurrentVersion.
type SwitchResult struct {
	Message          string `json:"message"`
	CurrentVersionID string `json:"current_version_id"`
	VersionNumber    int    `json:"version_number"`
	Type             string `json:"type"`
	Content          string `json:"content"`
}

// loadOwnedDream fetches a live dream and verifies ownership.
func loadOwnedDream(db *gorm.DB, dreamID, requesterID string) (*models.Dream, error) {
	var dream models.Dream
	if err := db.First(&dream, "id = ?", dreamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dream.Status == models.DreamStatusDeleted {
		return nil, ErrNotFound
	}
	if dream.UserID != requesterID {
		return nil, ErrForbidden
	}
	return &dream, nil
}

// ListVersions returns all versions of a dream ordered by version
// number, with per-type counts.
func (s *VersionService) ListVersions(dreamID, requesterID string) (*VersionListResult, error) {
	dream, err := loadOwnedDream(s.db, dreamID, requesterID)
	if err != nil {
		return nil, err
	}

	var versions []models.DreamVersion
	if err := s.db.Where("dream_id = ?", dreamID).
		Order("version_number ASC").
		Find(&versions).Error; err != nil {
		return nil, err
	}

	result := &VersionListResult{
		DreamID:          dreamID,
		CurrentVersionID: dream.CurrentVersionID,
		Versions:         make([]VersionItem, 0, len(versions)),
	}
	for _, v := range versions {
		result.Stats.Total++
		switch v.Type {
		case models.VersionTypeOriginal:
			result.Stats.Original++
		case models.VersionTypeEdited:
			result.Stats.Edited++
		case models.VersionTypePolished:
			result.Stats.Polished++
		}
		result.Versions = append(result.Versions, versionItem(&v))
	}

	return result, nil
}

// GetVersionDetail returns one version, resolving ownership through the
// version's dream.
func (s *VersionService) GetVersionDetail(versionID, requesterID string) (*VersionDetail, error) {
	var version models.DreamVersion
	if err := s.db.First(&version, "id = ?", versionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var dream models.Dream
	if err := s.db.First(&dream, "id = ?", version.DreamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dream.UserID != requesterID {
		return nil, ErrForbidden
	}

	return &VersionDetail{
		VersionItem: versionItem(&version),
		AiModel:     version.AiModel,
		TokensUsed:  version.TokensUsed,
	}, nil
}

// SwitchCurrentVersion makes versionID the current version of the
// dream. Switching to the already-current version is a no-op that still
// succeeds. The clear-then-set flip and the refresh of the dream's
// denormalized content run in one transaction so no reader observes
// zero or two current versions.
func (s *VersionService) SwitchCurrentVersion(dreamID, requesterID, versionID string) (*SwitchResult, error) {
	if _, err := loadOwnedDream(s.db, dreamID, requesterID); err != nil {
		return nil, err
	}

	var target models.DreamVersion
	if err := s.db.Where("id = ? AND dream_id = ?", versionID, dreamID).
		First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if target.IsCurrent {
		return &SwitchResult{
			Message:          "该版本已是当前版本",
			CurrentVersionID: target.ID,
			VersionNumber:    target.VersionNumber,
			Type:             string(target.Type),
			Content:          target.Content,
		}, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DreamVersion{}).
			Where("dream_id = ?", dreamID).
			Update("is_current", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.DreamVersion{}).
			Where("id = ?", versionID).
			Update("is_current", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.Dream{}).
			Where("id = ?", dreamID).
			Updates(map[string]interface{}{
				"content":            target.Content,
				"current_version_id": versionID,
				"updated_at":         time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return &SwitchResult{
		Message:          "版本切换成功",
		CurrentVersionID: target.ID,
		VersionNumber:    target.VersionNumber,
		Type:             string(target.Type),
		Content:          target.Content,
	}, nil
}

func versionItem(v *models.DreamVersion) VersionItem {
	return VersionItem{
		VersionID:     v.ID,
		DreamID:       v.DreamID,
		Type:          string(v.Type),
		Content:       v.Content,
		PolishedFrom:  v.PolishedFrom,
		PolishPrompt:  v.PolishPrompt,
		VersionNumber: v.VersionNumber,
		IsCurrent:     v.IsCurrent,
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
	}
}
