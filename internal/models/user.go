package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an app user (mini-program account)
type User struct {
	ID       string `gorm:"column:id;primaryKey;size:36" json:"id"`
	OpenID   string `gorm:"column:openid;uniqueIndex;size:100" json:"-"`
	Username string `gorm:"column:username;uniqueIndex;size:100" json:"username"`
	Password string `gorm:"column:password;size:255" json:"-"`
	Nickname string `gorm:"column:nickname;size:100" json:"nickname"`
	Avatar   string `gorm:"column:avatar;size:500" json:"avatar"`

	// VIP subscription state
	IsVip       bool       `gorm:"column:is_vip;default:false" json:"is_vip"`
	VipExpireAt *time.Time `gorm:"column:vip_expire_at" json:"vip_expire_at"`

	// Journaling stats
	ConsecutiveDays int        `gorm:"column:consecutive_days;default:0" json:"consecutive_days"`
	LastDreamDate   *time.Time `gorm:"column:last_dream_date" json:"-"`
	Points          int        `gorm:"column:points;default:0" json:"points"`

	IsActive  bool           `gorm:"column:is_active;default:true" json:"is_active"`
	LastLogin *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// VipActive reports whether the user currently has a valid VIP subscription.
func (u *User) VipActive(now time.Time) bool {
	return u.IsVip && u.VipExpireAt != nil && u.VipExpireAt.After(now)
}
