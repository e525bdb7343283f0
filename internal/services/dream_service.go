package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dreamlog/backend/internal/database"
	"github.com/dreamlog/backend/internal/models"
	"gorm.io/gorm"
)

const (
	dreamMinLength = 25
	dreamMaxLength = 1000
)

// DreamService implements dream CRUD with version lineage: every create
// records an original version, every edit an edited version.
type DreamService struct {
	db           *gorm.DB
	achievements achievementNotifier
}

func NewDreamService(db *gorm.DB, achievements achievementNotifier) *DreamService {
	return &DreamService{db: db, achievements: achievements}
}

// CreateDreamInput is the payload for Create.
type CreateDreamInput struct {
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Emotion  string   `json:"emotion"`
	IsPublic *bool    `json:"is_public"`
}

// UpdateDreamInput is the payload for Update.
type UpdateDreamInput struct {
	Content string `json:"content"`
}

// DreamView is the display shape of a dream.
type DreamView struct {
	ID               string   `json:"id"`
	Content          string   `json:"content"`
	Tags             []string `json:"tags"`
	Emotion          string   `json:"emotion"`
	Status           string   `json:"status"`
	IsPublic         bool     `json:"is_public"`
	WordCount        int      `json:"word_count"`
	CurrentVersionID *string  `json:"current_version_id"`
	CreatedAt        string   `json:"created_at"`
}

// DreamListQuery carries list filters.
type DreamListQuery struct {
	Page      int
	PageSize  int
	StartDate string
	EndDate   string
	Tag       string
	Emotion   string
	Keyword   string
}

// DreamListResult is the paginated response of List.
type DreamListResult struct {
	List     []DreamView `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Create records a new dream with its original version (version 1,
// current). Only one dream may be recorded per calendar day.
func (s *DreamService) Create(userID string, input CreateDreamInput) (*DreamView, error) {
	content := strings.TrimSpace(input.Content)
	wordCount := utf8.RuneCountInString(content)
	if wordCount < dreamMinLength {
		return nil, fmt.Errorf("%w: 梦境内容至少需要%d字", ErrValidation, dreamMinLength)
	}
	if wordCount > dreamMaxLength {
		return nil, fmt.Errorf("%w: 梦境内容不能超过%d字", ErrValidation, dreamMaxLength)
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	if err := s.db.Model(&models.Dream{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ? AND status <> ?",
			userID, dayStart, dayStart.Add(24*time.Hour), models.DreamStatusDeleted).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: 今日已记录梦境，每天只能记录一次", ErrValidation)
	}

	tags := ""
	if len(input.Tags) > 0 {
		if b, err := json.Marshal(input.Tags); err == nil {
			tags = string(b)
		}
	}

	isPublic := false
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	dream := models.Dream{
		UserID:          userID,
		Content:         content,
		OriginalContent: content,
		Status:          models.DreamStatusPending,
		IsPublic:        isPublic,
		Emotion:         input.Emotion,
		Tags:            tags,
		WordCount:       wordCount,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dream).Error; err != nil {
			return err
		}
		version := models.DreamVersion{
			DreamID:       dream.ID,
			UserID:        userID,
			Type:          models.VersionTypeOriginal,
			Content:       content,
			VersionNumber: 1,
			IsCurrent:     true,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Dream{}).
			Where("id = ?", dream.ID).
			Update("current_version_id", version.ID).Error; err != nil {
			return err
		}
		dream.CurrentVersionID = &version.ID
		return s.bumpConsecutiveDays(tx, userID, now)
	})
	if err != nil {
		return nil, err
	}

	database.InvalidateDreamCache(dream.ID, userID)
	s.notifyDreamRecorded(userID)

	return dreamView(&dream), nil
}

// bumpConsecutiveDays extends or resets the user's journaling streak.
func (s *DreamService) bumpConsecutiveDays(tx *gorm.DB, userID string, now time.Time) error {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	streak := 1
	if user.LastDreamDate != nil {
		last := user.LastDreamDate.UTC()
		lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
		switch today.Sub(lastDay) {
		case 0:
			streak = user.ConsecutiveDays
		case 24 * time.Hour:
			streak = user.ConsecutiveDays + 1
		}
	}

	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"consecutive_days": streak,
			"last_dream_date":  today,
		}).Error
}

// List returns the user's dreams, newest first, with optional filters.
func (s *DreamService) List(userID string, query DreamListQuery) (*DreamListResult, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := s.db.Model(&models.Dream{}).
		Where("user_id = ? AND status <> ?", userID, models.DreamStatusDeleted)

	if query.StartDate != "" {
		if t, err := time.Parse("2006-01-02", query.StartDate); err == nil {
			q = q.Where("created_at >= ?", t)
		}
	}
	if query.EndDate != "" {
		if t, err := time.Parse("2006-01-02", query.EndDate); err == nil {
			q = q.Where("created_at < ?", t.Add(24*time.Hour))
		}
	}
	if query.Tag != "" {
		q = q.Where("tags LIKE ?", "%"+query.Tag+"%")
	}
	if query.Emotion != "" {
		q = q.Where("emotion = ?", query.Emotion)
	}
	if query.Keyword != "" {
		q = q.Where("content LIKE ?", "%"+query.Keyword+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var dreams []models.Dream
	if err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&dreams).Error; err != nil {
		return nil, err
	}

	result := &DreamListResult{
		List:     make([]DreamView, 0, len(dreams)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range dreams {
		result.List = append(result.List, *dreamView(&dreams[i]))
	}
	return result, nil
}

// cachedDream keeps the owner alongside the display data so cache hits
// can still enforce ownership.
type cachedDream struct {
	OwnerID string    `json:"owner_id"`
	View    DreamView `json:"view"`
}

// Get returns one dream, served from the display cache when possible.
func (s *DreamService) Get(userID, dreamID string) (*DreamView, error) {
	cacheKey := database.CacheKeyDream + dreamID
	if database.Redis != nil {
		var cached cachedDream
		if err := database.CacheGet(cacheKey, &cached); err == nil {
			if cached.OwnerID != userID {
				return nil, ErrForbidden
			}
			return &cached.View, nil
		}
	}

	dream, err := loadOwnedDream(s.db, dreamID, userID)
	if err != nil {
		return nil, err
	}

	view := dreamView(dream)
	if database.Redis != nil {
		entry := cachedDream{OwnerID: dream.UserID, View: *view}
		if err := database.CacheSet(cacheKey, entry, database.CacheTTLDream); err != nil {
			log.Printf("Failed to cache dream %s: %v", dreamID, err)
		}
	}
	return view, nil
}

// Update replaces a dream's text, recording the change as a new edited
// version that becomes current in the same transaction.
func (s *DreamService) Update(userID, dreamID string, input UpdateDreamInput) (*DreamView, error) {
	dream, err := loadOwnedDream(s.db, dreamID, userID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(input.Content)
	wordCount := utf8.RuneCountInString(content)
	if wordCount < dreamMinLength {
		return nil, fmt.Errorf("%w: 梦境内容至少需要%d字", ErrValidation, dreamMinLength)
	}
	if wordCount > dreamMaxLength {
		return nil, fmt.Errorf("%w: 梦境内容不能超过%d字", ErrValidation, dreamMaxLength)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var maxNumber int
		row := tx.Model(&models.DreamVersion{}).
			Where("dream_id = ?", dreamID).
			Select("COALESCE(MAX(version_number), 0)").
			Row()
		if err := row.Scan(&maxNumber); err != nil {
			return err
		}

		if err := tx.Model(&models.DreamVersion{}).
			Where("dream_id = ?", dreamID).
			Update("is_current", false).Error; err != nil {
			return err
		}

		version := models.DreamVersion{
			DreamID:       dreamID,
			UserID:        userID,
			Type:          models.VersionTypeEdited,
			Content:       content,
			VersionNumber: maxNumber + 1,
			IsCurrent:     true,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		dream.Content = content
		dream.WordCount = wordCount
		dream.CurrentVersionID = &version.ID
		return tx.Model(&models.Dream{}).
			Where("id = ?", dreamID).
			Updates(map[string]interface{}{
				"content":            content,
				"word_count":         wordCount,
				"current_version_id": version.ID,
				"updated_at":         time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	database.InvalidateDreamCache(dreamID, userID)
	return dreamView(dream), nil
}

// Delete soft-deletes a dream.
func (s *DreamService) Delete(userID, dreamID string) error {
	var dream models.Dream
	if err := s.db.First(&dream, "id = ?", dreamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if dream.UserID != userID {
		return ErrForbidden
	}

	now := time.Now().UTC()
	if err := s.db.Model(&models.Dream{}).
		Where("id = ?", dreamID).
		Updates(map[string]interface{}{
			"status":     models.DreamStatusDeleted,
			"deleted_at": now,
		}).Error; err != nil {
		return err
	}

	database.InvalidateDreamCache(dreamID, userID)
	return nil
}

// BatchDelete soft-deletes multiple dreams after verifying ownership of
// all of them.
func (s *DreamService) BatchDelete(userID string, dreamIDs []string) (int, error) {
	if len(dreamIDs) == 0 {
		return 0, fmt.Errorf("%w: 请选择要删除的梦境", ErrValidation)
	}

	var count int64
	if err := s.db.Model(&models.Dream{}).
		Where("id IN ? AND user_id = ? AND status <> ?", dreamIDs, userID, models.DreamStatusDeleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	if count != int64(len(dreamIDs)) {
		return 0, fmt.Errorf("%w: 部分梦境不存在或无权删除", ErrValidation)
	}

	now := time.Now().UTC()
	if err := s.db.Model(&models.Dream{}).
		Where("id IN ? AND user_id = ?", dreamIDs, userID).
		Updates(map[string]interface{}{
			"status":     models.DreamStatusDeleted,
			"deleted_at": now,
		}).Error; err != nil {
		return 0, err
	}

	for _, id := range dreamIDs {
		database.InvalidateDreamCache(id, userID)
	}
	return len(dreamIDs), nil
}

// TogglePrivacy flips a dream's public visibility.
func (s *DreamService) TogglePrivacy(userID, dreamID string) (bool, error) {
	dream, err := loadOwnedDream(s.db, dreamID, userID)
	if err != nil {
		return false, err
	}

	newValue := !dream.IsPublic
	if err := s.db.Model(&models.Dream{}).
		Where("id = ?", dreamID).
		Update("is_public", newValue).Error; err != nil {
		return false, err
	}

	database.InvalidateDreamCache(dreamID, userID)
	return newValue, nil
}

func (s *DreamService) notifyDreamRecorded(userID string) {
	if s.achievements == nil {
		return
	}
	go func() {
		if _, err := s.achievements.CheckAndUnlock(userID, []ConditionType{ConditionDreamCount, ConditionConsecutiveDays}); err != nil {
			log.Printf("Dream achievement check failed for user %s: %v", userID, err)
		}
	}()
}

func dreamView(d *models.Dream) *DreamView {
	var tags []string
	if d.Tags != "" {
		if err := json.Unmarshal([]byte(d.Tags), &tags); err != nil {
			tags = nil
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return &DreamView{
		ID:               d.ID,
		Content:          d.Content,
		Tags:             tags,
		Emotion:          d.Emotion,
		Status:           string(d.Status),
		IsPublic:         d.IsPublic,
		WordCount:        d.WordCount,
		CurrentVersionID: d.CurrentVersionID,
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
