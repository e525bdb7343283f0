package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolishQuota tracks daily free AI polish usage per user. One row per
// (user, UTC day); created lazily on first use.
type PolishQuota struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:36;uniqueIndex:idx_polish_user_date;not null" json:"user_id"`
	Date      string    `gorm:"column:date;size:10;uniqueIndex:idx_polish_user_date;not null" json:"date"` // YYYY-MM-DD (UTC)
	Total     int       `gorm:"column:total;not null" json:"total"`
	Used      int       `gorm:"column:used;default:0" json:"used"`
	Remaining int       `gorm:"column:remaining;not null" json:"remaining"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PolishQuota) TableName() string {
	return "polish_quotas"
}

func (q *PolishQuota) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// QuotaDay returns the UTC calendar day key used for quota rows.
func QuotaDay(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
