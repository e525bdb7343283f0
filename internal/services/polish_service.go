package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dreamlog/backend/internal/models"
	"gorm.io/gorm"
)

// Rewriter is the contract of the AI rewrite adapter. Chat must fail
// with a distinguishable error instead of silently returning the input;
// timeout policy belongs to the adapter.
type Rewriter interface {
	Chat(ctx context.Context, prompt string) (string, error)
	Model() string
}

// achievementNotifier receives best-effort notifications after a
// successful polish. Failures never fail the polish itself.
type achievementNotifier interface {
	CheckAndUnlock(userID string, conditionTypes []ConditionType) ([]UnlockedAchievement, error)
}

// PolishService coordinates quota check, AI call, version creation and
// current-pointer update as one user-visible "polish" action.
type PolishService struct {
	db           *gorm.DB
	rewriter     Rewriter
	quota        *QuotaService
	achievements achievementNotifier
}

func NewPolishService(db *gorm.DB, rewriter Rewriter, quota *QuotaService, achievements achievementNotifier) *PolishService {
	return &PolishService{
		db:           db,
		rewriter:     rewriter,
		quota:        quota,
		achievements: achievements,
	}
}

// QuotaSnapshot is the user-visible quota state. VIP users report
// unlimited quota as total = -1, remaining = -1.
type QuotaSnapshot struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	IsVip     bool   `json:"is_vip"`
}

// PolishDreamResult is the response of PolishDream.
type PolishDreamResult struct {
	VersionID     string         `json:"version_id"`
	Content       string         `json:"content"`
	VersionNumber int            `json:"version_number"`
	Quota         *QuotaSnapshot `json:"quota"`
}

// PolishTextResult is the response of PolishText.
type PolishTextResult struct {
	Content string         `json:"content"`
	Quota   *QuotaSnapshot `json:"quota"`
}

// PolishDream rewrites a dream's text with AI and records the result as
// a new polished version. Any failure before the version is created
// leaves all persisted state unchanged, including the quota counter.
func (s *PolishService) PolishDream(ctx context.Context, userID, dreamID, prompt string, basedOnVersionID *string) (*PolishDreamResult, error) {
	var dream models.Dream
	if err := s.db.First(&dream, "id = ?", dreamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dream.Status == models.DreamStatusDeleted {
		return nil, ErrNotFound
	}
	if dream.UserID != userID {
		return nil, ErrForbidden
	}

	isVip, err := s.userIsVip(userID)
	if err != nil {
		return nil, err
	}

	if !isVip {
		quota, err := s.quota.GetOrCreate(userID)
		if err != nil {
			return nil, err
		}
		if quota.Remaining <= 0 {
			return nil, ErrQuotaExhausted
		}
	}

	var versions []models.DreamVersion
	if err := s.db.Where("dream_id = ?", dreamID).
		Order("version_number DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}

	// Resolve the base content for the rewrite.
	var baseContent string
	var baseVersionID *string
	if basedOnVersionID != nil && *basedOnVersionID != "" {
		base := findVersion(versions, *basedOnVersionID)
		if base == nil {
			return nil, ErrNotFound
		}
		baseContent = base.Content
		baseVersionID = basedOnVersionID
	} else if dream.CurrentVersionID != nil {
		if current := findVersion(versions, *dream.CurrentVersionID); current != nil {
			baseContent = current.Content
		} else {
			baseContent = dream.Content
		}
		baseVersionID = dream.CurrentVersionID
	} else {
		baseContent = dream.Content
	}

	polished, err := s.callRewrite(ctx, baseContent, prompt)
	if err != nil {
		return nil, err
	}

	nextNumber := 2
	if len(versions) > 0 {
		nextNumber = versions[0].VersionNumber + 1
	}

	polishPrompt := prompt
	if polishPrompt == "" {
		polishPrompt = "默认润色"
	}

	newVersion := models.DreamVersion{
		DreamID:       dreamID,
		UserID:        userID,
		Type:          models.VersionTypePolished,
		Content:       polished,
		PolishedFrom:  baseVersionID,
		PolishPrompt:  polishPrompt,
		AiModel:       s.rewriter.Model(),
		VersionNumber: nextNumber,
		IsCurrent:     true,
	}

	// Version creation, current flip and dream refresh are one unit of
	// work; no reader may observe two current versions.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DreamVersion{}).
			Where("dream_id = ?", dreamID).
			Update("is_current", false).Error; err != nil {
			return err
		}
		if err := tx.Create(&newVersion).Error; err != nil {
			return err
		}
		return tx.Model(&models.Dream{}).
			Where("id = ?", dreamID).
			Updates(map[string]interface{}{
				"content":            polished,
				"current_version_id": newVersion.ID,
				"updated_at":         time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	// The version is already committed; a consume failure here grants a
	// free polish, which is harmless, but must be visible in the logs.
	if !isVip {
		if err := s.quota.Consume(userID); err != nil {
			log.Printf("Quota consume failed after polish for user %s (version %s): %v", userID, newVersion.ID, err)
		}
	}

	s.notifyPolish(userID)

	result := &PolishDreamResult{
		VersionID:     newVersion.ID,
		Content:       polished,
		VersionNumber: nextNumber,
	}
	if !isVip {
		if snapshot, err := s.GetQuota(userID); err == nil {
			result.Quota = snapshot
		}
	}
	return result, nil
}

// PolishText rewrites free-standing text without touching any dream or
// version rows. It is still subject to the daily quota.
func (s *PolishService) PolishText(ctx context.Context, userID, content, prompt string) (*PolishTextResult, error) {
	isVip, err := s.userIsVip(userID)
	if err != nil {
		return nil, err
	}

	if !isVip {
		quota, err := s.quota.GetOrCreate(userID)
		if err != nil {
			return nil, err
		}
		if quota.Remaining <= 0 {
			return nil, ErrQuotaExhausted
		}
	}

	polished, err := s.callRewrite(ctx, content, prompt)
	if err != nil {
		return nil, err
	}

	if !isVip {
		if err := s.quota.Consume(userID); err != nil {
			log.Printf("Quota consume failed after text polish for user %s: %v", userID, err)
		}
	}

	result := &PolishTextResult{Content: polished}
	if !isVip {
		if snapshot, err := s.GetQuota(userID); err == nil {
			result.Quota = snapshot
		}
	}
	return result, nil
}

// GetQuota returns today's quota snapshot for the user.
func (s *PolishService) GetQuota(userID string) (*QuotaSnapshot, error) {
	quota, err := s.quota.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	isVip, err := s.userIsVip(userID)
	if err != nil {
		return nil, err
	}

	snapshot := &QuotaSnapshot{
		Date:      quota.Date,
		Total:     quota.Total,
		Used:      quota.Used,
		Remaining: quota.Remaining,
		IsVip:     isVip,
	}
	if isVip {
		snapshot.Total = -1
		snapshot.Remaining = -1
	}
	return snapshot, nil
}

func (s *PolishService) userIsVip(userID string) (bool, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	return user.VipActive(time.Now()), nil
}

func (s *PolishService) callRewrite(ctx context.Context, content, customPrompt string) (string, error) {
	polished, err := s.rewriter.Chat(ctx, buildPolishPrompt(content, customPrompt))
	if err != nil {
		log.Printf("AI rewrite failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrRewriteFailed, err)
	}
	if polished == "" {
		return "", ErrRewriteFailed
	}
	return polished, nil
}

func (s *PolishService) notifyPolish(userID string) {
	if s.achievements == nil {
		return
	}
	go func() {
		if _, err := s.achievements.CheckAndUnlock(userID, []ConditionType{ConditionPolishCount}); err != nil {
			log.Printf("Polish achievement check failed for user %s: %v", userID, err)
		}
	}()
}

func buildPolishPrompt(content, customPrompt string) string {
	extra := ""
	if customPrompt != "" {
		extra = "特别要求：" + customPrompt + "\n\n"
	}
	return `你是一个专业的梦境记录润色助手。请将以下梦境内容润色得更具故事性和可读性，同时保持梦境的真实性和原始含义。

要求：
1. 保留所有关键事实和细节
2. 优化语言表达，使其更流畅、生动
3. 适当补充合理的描述性细节，但不改变核心内容
4. 保持梦境的情绪氛围
5. 字数控制在原文的 1.2-1.5 倍左右
6. 使用第一人称视角
7. 不要添加任何解释或分析

` + extra + `原始梦境记录：
` + content + `

请直接输出润色后的梦境内容，不要有其他说明：`
}

func findVersion(versions []models.DreamVersion, id string) *models.DreamVersion {
	for i := range versions {
		if versions[i].ID == id {
			return &versions[i]
		}
	}
	return nil
}
