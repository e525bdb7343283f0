package services

import (
	"log"
	"time"

	"github.com/dreamlog/backend/internal/models"
	"gorm.io/gorm"
)

// ConditionType classifies what an achievement counts.
type ConditionType string

const (
	ConditionDreamCount      ConditionType = "dream_count"
	ConditionConsecutiveDays ConditionType = "consecutive_days"
	ConditionPolishCount     ConditionType = "polish_count"
)

// achievementDefinition is a hardcoded achievement rule. Definitions
// live in code; rows are upserted into the achievements table on first
// unlock so user_achievements has a stable reference.
type achievementDefinition struct {
	ID             string
	Name           string
	Description    string
	Icon           string
	ConditionType  ConditionType
	ConditionValue int
	RewardPoints   int
	SortOrder      int
}

var achievementDefinitions = []achievementDefinition{
	{ID: "dream_first", Name: "初次记梦", Description: "记录第一个梦境", Icon: "🌙", ConditionType: ConditionDreamCount, ConditionValue: 1, RewardPoints: 10, SortOrder: 1},
	{ID: "dream_beginner", Name: "入门梦想家", Description: "累计记录10个梦境", Icon: "✨", ConditionType: ConditionDreamCount, ConditionValue: 10, RewardPoints: 20, SortOrder: 2},
	{ID: "dream_intermediate", Name: "资深梦想家", Description: "累计记录50个梦境", Icon: "🌟", ConditionType: ConditionDreamCount, ConditionValue: 50, RewardPoints: 50, SortOrder: 3},
	{ID: "streak_week", Name: "七日坚持", Description: "连续记梦7天", Icon: "🔥", ConditionType: ConditionConsecutiveDays, ConditionValue: 7, RewardPoints: 30, SortOrder: 10},
	{ID: "streak_month", Name: "月度坚持", Description: "连续记梦30天", Icon: "🏆", ConditionType: ConditionConsecutiveDays, ConditionValue: 30, RewardPoints: 100, SortOrder: 11},
	{ID: "polish_first", Name: "初试润色", Description: "完成第一次AI润色", Icon: "🪄", ConditionType: ConditionPolishCount, ConditionValue: 1, RewardPoints: 10, SortOrder: 20},
	{ID: "polish_expert", Name: "润色达人", Description: "累计润色10次", Icon: "📝", ConditionType: ConditionPolishCount, ConditionValue: 10, RewardPoints: 30, SortOrder: 21},
}

// UnlockedAchievement describes an achievement returned to the client.
type UnlockedAchievement struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	RewardPoints int    `json:"reward_points"`
	Unlocked     bool   `json:"unlocked"`
	UnlockedAt   string `json:"unlocked_at,omitempty"`
	Progress     int    `json:"progress"`
	Target       int    `json:"target"`
}

// AchievementService evaluates hardcoded achievement rules against a
// user's journaling stats and unlocks new ones.
type AchievementService struct {
	db *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{db: db}
}

type userStats struct {
	dreamCount      int64
	consecutiveDays int
	polishCount     int64
}

func (s *AchievementService) getUserStats(userID string) (*userStats, error) {
	stats := &userStats{}

	if err := s.db.Model(&models.Dream{}).
		Where("user_id = ? AND status <> ?", userID, models.DreamStatusDeleted).
		Count(&stats.dreamCount).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.DreamVersion{}).
		Where("user_id = ? AND type = ?", userID, models.VersionTypePolished).
		Count(&stats.polishCount).Error; err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	stats.consecutiveDays = user.ConsecutiveDays

	return stats, nil
}

func (st *userStats) progress(t ConditionType) int {
	switch t {
	case ConditionDreamCount:
		return int(st.dreamCount)
	case ConditionConsecutiveDays:
		return st.consecutiveDays
	case ConditionPolishCount:
		return int(st.polishCount)
	}
	return 0
}

// CheckAndUnlock evaluates achievements for the given condition types
// (all types when empty) and unlocks any newly satisfied ones,
// crediting reward points. Returns the newly unlocked achievements.
func (s *AchievementService) CheckAndUnlock(userID string, conditionTypes []ConditionType) ([]UnlockedAchievement, error) {
	stats, err := s.getUserStats(userID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[ConditionType]bool, len(conditionTypes))
	for _, t := range conditionTypes {
		wanted[t] = true
	}

	var unlockedIDs []string
	if err := s.db.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &unlockedIDs).Error; err != nil {
		return nil, err
	}
	already := make(map[string]bool, len(unlockedIDs))
	for _, id := range unlockedIDs {
		already[id] = true
	}

	var newlyUnlocked []UnlockedAchievement
	for _, def := range achievementDefinitions {
		if len(wanted) > 0 && !wanted[def.ConditionType] {
			continue
		}
		if already[def.ID] {
			continue
		}
		if stats.progress(def.ConditionType) < def.ConditionValue {
			continue
		}

		if err := s.unlock(userID, def); err != nil {
			log.Printf("Failed to unlock achievement %s for user %s: %v", def.ID, userID, err)
			continue
		}
		newlyUnlocked = append(newlyUnlocked, UnlockedAchievement{
			ID:           def.ID,
			Name:         def.Name,
			Description:  def.Description,
			Icon:         def.Icon,
			RewardPoints: def.RewardPoints,
			Unlocked:     true,
			UnlockedAt:   time.Now().UTC().Format(time.RFC3339),
			Progress:     stats.progress(def.ConditionType),
			Target:       def.ConditionValue,
		})
	}

	return newlyUnlocked, nil
}

func (s *AchievementService) unlock(userID string, def achievementDefinition) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Ensure the definition row exists before the unlock record.
		achievement := models.Achievement{
			ID:             def.ID,
			Name:           def.Name,
			Description:    def.Description,
			Icon:           def.Icon,
			ConditionType:  string(def.ConditionType),
			ConditionValue: def.ConditionValue,
			RewardPoints:   def.RewardPoints,
			SortOrder:      def.SortOrder,
		}
		if err := tx.Where("id = ?", def.ID).FirstOrCreate(&achievement).Error; err != nil {
			return err
		}

		record := models.UserAchievement{
			UserID:        userID,
			AchievementID: def.ID,
			UnlockedAt:    time.Now().UTC(),
		}
		if err := tx.Create(&record).Error; err != nil {
			// A concurrent check may have unlocked it first.
			if isDuplicateKeyError(err) {
				return nil
			}
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("points", gorm.Expr("points + ?", def.RewardPoints)).Error
	})
}

// ListForUser returns every achievement definition with the user's
// unlock state and progress.
func (s *AchievementService) ListForUser(userID string) ([]UnlockedAchievement, error) {
	stats, err := s.getUserStats(userID)
	if err != nil {
		return nil, err
	}

	var records []models.UserAchievement
	if err := s.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, err
	}
	unlockedAt := make(map[string]time.Time, len(records))
	for _, r := range records {
		unlockedAt[r.AchievementID] = r.UnlockedAt
	}

	result := make([]UnlockedAchievement, 0, len(achievementDefinitions))
	for _, def := range achievementDefinitions {
		item := UnlockedAchievement{
			ID:           def.ID,
			Name:         def.Name,
			Description:  def.Description,
			Icon:         def.Icon,
			RewardPoints: def.RewardPoints,
			Progress:     stats.progress(def.ConditionType),
			Target:       def.ConditionValue,
		}
		if t, ok := unlockedAt[def.ID]; ok {
			item.Unlocked = true
			item.UnlockedAt = t.UTC().Format(time.RFC3339)
		}
		result = append(result, item)
	}
	return result, nil
}
