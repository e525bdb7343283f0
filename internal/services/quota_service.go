package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/dreamlog/backend/internal/models"
	"gorm.io/gorm"
)

const quotaCreateAttempts = 3

// QuotaService enforces the daily ceiling on free AI polish calls.
// One row per (user, UTC day), created lazily on first use. The
// database row is the single source of truth; no cache is consulted.
type QuotaService struct {
	db           *gorm.DB
	defaultTotal int
}

func NewQuotaService(db *gorm.DB, defaultTotal int) *QuotaService {
	if defaultTotal <= 0 {
		defaultTotal = 3
	}
	return &QuotaService{db: db, defaultTotal: defaultTotal}
}

// GetOrCreate returns today's quota row for the user, creating it with
// the default allowance on first use. A concurrent duplicate insert
// from a racing request is resolved by re-reading, with bounded retry.
func (s *QuotaService) GetOrCreate(userID string) (*models.PolishQuota, error) {
	day := models.QuotaDay(time.Now())

	for attempt := 0; attempt < quotaCreateAttempts; attempt++ {
		var quota models.PolishQuota
		err := s.db.Where("user_id = ? AND date = ?", userID, day).First(&quota).Error
		if err == nil {
			return &quota, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		quota = models.PolishQuota{
			UserID:    userID,
			Date:      day,
			Total:     s.defaultTotal,
			Used:      0,
			Remaining: s.defaultTotal,
		}
		err = s.db.Create(&quota).Error
		if err == nil {
			return &quota, nil
		}

		if isDuplicateKeyError(err) {
			// Another request created today's row first; re-read it.
			log.Printf("Quota row already exists for user %s on %s, retrying read (attempt %d)", userID, day, attempt+1)
			time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
			continue
		}
		return nil, err
	}

	return nil, ErrQuotaUnavailable
}

// Consume spends one polish attempt. The decrement is a single
// conditional UPDATE so two concurrent requests cannot both succeed on
// the last remaining unit.
func (s *QuotaService) Consume(userID string) error {
	day := models.QuotaDay(time.Now())

	result := s.db.Model(&models.PolishQuota{}).
		Where("user_id = ? AND date = ? AND remaining > 0", userID, day).
		Updates(map[string]interface{}{
			"used":      gorm.Expr("used + 1"),
			"remaining": gorm.Expr("remaining - 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Fallback for drivers without error translation
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
