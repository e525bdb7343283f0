package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DreamStatus represents the analysis lifecycle of a dream
type DreamStatus string

const (
	DreamStatusPending  DreamStatus = "pending"
	DreamStatusAnalyzed DreamStatus = "analyzed"
	DreamStatusDeleted  DreamStatus = "deleted"
)

// VersionType classifies how a dream version came to exist
type VersionType string

const (
	VersionTypeOriginal VersionType = "original"
	VersionTypeEdited   VersionType = "edited"
	VersionTypePolished VersionType = "polished"
)

// Dream represents a journaled dream entry. Content is a denormalized
// copy of the current version's text and is refreshed in the same
// transaction as any current-version change.
type Dream struct {
	ID               string      `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID           string      `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	Content          string      `gorm:"column:content;type:text;not null" json:"content"`
	OriginalContent  string      `gorm:"column:original_content;type:text" json:"-"`
	CurrentVersionID *string     `gorm:"column:current_version_id;size:36" json:"current_version_id"`
	Status           DreamStatus `gorm:"column:status;size:20;default:pending;index" json:"status"`
	IsPublic         bool        `gorm:"column:is_public;default:false" json:"is_public"`
	Emotion          string      `gorm:"column:emotion;size:50" json:"emotion"`
	Tags             string      `gorm:"column:tags;type:text" json:"-"`
	WordCount        int         `gorm:"column:word_count;default:0" json:"word_count"`
	CreatedAt        time.Time   `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt        *time.Time  `gorm:"column:deleted_at" json:"-"`
}

func (Dream) TableName() string {
	return "dreams"
}

func (d *Dream) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// DreamVersion is an immutable snapshot of a dream's text. Exactly one
// version per dream has IsCurrent set; the flip is transactional.
type DreamVersion struct {
	ID            string      `gorm:"column:id;primaryKey;size:36" json:"id"`
	DreamID       string      `gorm:"column:dream_id;size:36;not null;uniqueIndex:idx_dream_version_number,priority:1;index" json:"dream_id"`
	UserID        string      `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	Type          VersionType `gorm:"column:type;size:20;not null" json:"type"`
	Content       string      `gorm:"column:content;type:text;not null" json:"content"`
	PolishedFrom  *string     `gorm:"column:polished_from;size:36" json:"polished_from"`
	PolishPrompt  string      `gorm:"column:polish_prompt;size:500" json:"polish_prompt,omitempty"`
	AiModel       string      `gorm:"column:ai_model;size:100" json:"ai_model,omitempty"`
	TokensUsed    int         `gorm:"column:tokens_used;default:0" json:"tokens_used,omitempty"`
	VersionNumber int         `gorm:"column:version_number;not null;uniqueIndex:idx_dream_version_number,priority:2" json:"version_number"`
	IsCurrent     bool        `gorm:"column:is_current;default:false" json:"is_current"`
	CreatedAt     time.Time   `gorm:"column:created_at" json:"created_at"`
}

func (DreamVersion) TableName() string {
	return "dream_versions"
}

func (v *DreamVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
