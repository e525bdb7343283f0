package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Achievement is a persisted copy of an achievement definition so that
// unlock records have a stable row to reference.
type Achievement struct {
	ID             string    `gorm:"column:id;primaryKey;size:50" json:"id"`
	Name           string    `gorm:"column:name;size:100;not null" json:"name"`
	Description    string    `gorm:"column:description;size:255" json:"description"`
	Icon           string    `gorm:"column:icon;size:20" json:"icon"`
	ConditionType  string    `gorm:"column:condition_type;size:50;not null" json:"condition_type"`
	ConditionValue int       `gorm:"column:condition_value;not null" json:"condition_value"`
	RewardPoints   int       `gorm:"column:reward_points;default:0" json:"reward_points"`
	SortOrder      int       `gorm:"column:sort_order;default:0" json:"sort_order"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement records a single unlock for a user.
type UserAchievement struct {
	ID            string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"column:user_id;size:36;uniqueIndex:idx_user_achievement;not null" json:"user_id"`
	AchievementID string    `gorm:"column:achievement_id;size:50;uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	UnlockedAt    time.Time `gorm:"column:unlocked_at" json:"unlocked_at"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}

func (ua *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	return nil
}
