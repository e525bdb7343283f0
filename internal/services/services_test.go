package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/dreamlog/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Keep the shared in-memory database alive for the whole test.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, vip bool) *models.User {
	t.Helper()

	user := &models.User{
		OpenID:   "openid-" + uuid.NewString(),
		Username: "user-" + uuid.NewString()[:8],
		Nickname: "tester",
		IsActive: true,
	}
	if vip {
		expire := time.Now().UTC().Add(30 * 24 * time.Hour)
		user.IsVip = true
		user.VipExpireAt = &expire
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestDream(t *testing.T, db *gorm.DB, userID, content string) (*models.Dream, *models.DreamVersion) {
	t.Helper()

	dream := &models.Dream{
		UserID:          userID,
		Content:         content,
		OriginalContent: content,
		Status:          models.DreamStatusPending,
	}
	require.NoError(t, db.Create(dream).Error)

	version := &models.DreamVersion{
		DreamID:       dream.ID,
		UserID:        userID,
		Type:          models.VersionTypeOriginal,
		Content:       content,
		VersionNumber: 1,
		IsCurrent:     true,
	}
	require.NoError(t, db.Create(version).Error)
	require.NoError(t, db.Model(dream).Update("current_version_id", version.ID).Error)
	dream.CurrentVersionID = &version.ID

	return dream, version
}

// currentVersions returns the versions of a dream marked current.
func currentVersions(t *testing.T, db *gorm.DB, dreamID string) []models.DreamVersion {
	t.Helper()

	var versions []models.DreamVersion
	require.NoError(t, db.Where("dream_id = ? AND is_current = ?", dreamID, true).Find(&versions).Error)
	return versions
}
