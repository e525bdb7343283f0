package services

import (
	"testing"

	"github.com/dreamlog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testDreamContent = "昨晚我梦见自己在一座漂浮的图书馆里飞行，书页像鸟一样在空中盘旋。"

func addVersion(t *testing.T, db *gorm.DB, dreamID, userID string, number int, vType models.VersionType, content string) *models.DreamVersion {
	t.Helper()

	version := &models.DreamVersion{
		DreamID:       dreamID,
		UserID:        userID,
		Type:          vType,
		Content:       content,
		VersionNumber: number,
	}
	require.NoError(t, db.Create(version).Error)
	return version
}

func TestListVersionsOrderAndStats(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, original := createTestDream(t, db, user.ID, testDreamContent)

	addVersion(t, db, dream.ID, user.ID, 3, models.VersionTypePolished, "润色后的版本")
	addVersion(t, db, dream.ID, user.ID, 2, models.VersionTypeEdited, "手动编辑的版本")

	svc := NewVersionService(db)
	result, err := svc.ListVersions(dream.ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, dream.ID, result.DreamID)
	require.NotNil(t, result.CurrentVersionID)
	assert.Equal(t, original.ID, *result.CurrentVersionID)

	assert.Equal(t, 3, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.Original)
	assert.Equal(t, 1, result.Stats.Edited)
	assert.Equal(t, 1, result.Stats.Polished)

	require.Len(t, result.Versions, 3)
	for i, item := range result.Versions {
		assert.Equal(t, i+1, item.VersionNumber)
	}
	assert.True(t, result.Versions[0].IsCurrent)
	assert.False(t, result.Versions[1].IsCurrent)
	assert.False(t, result.Versions[2].IsCurrent)
}

func TestListVersionsOwnership(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, false)
	stranger := createTestUser(t, db, false)
	dream, _ := createTestDream(t, db, owner.ID, testDreamContent)

	svc := NewVersionService(db)

	_, err := svc.ListVersions(dream.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListVersions("no-such-dream", owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVersionsDeletedDreamIsGone(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, _ := createTestDream(t, db, user.ID, testDreamContent)

	require.NoError(t, db.Model(dream).Update("status", models.DreamStatusDeleted).Error)

	svc := NewVersionService(db)
	_, err := svc.ListVersions(dream.ID, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetVersionDetail(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, false)
	stranger := createTestUser(t, db, false)
	dream, original := createTestDream(t, db, owner.ID, testDreamContent)

	svc := NewVersionService(db)

	detail, err := svc.GetVersionDetail(original.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, detail.VersionID)
	assert.Equal(t, dream.ID, detail.DreamID)
	assert.Equal(t, string(models.VersionTypeOriginal), detail.Type)
	assert.Equal(t, testDreamContent, detail.Content)
	assert.True(t, detail.IsCurrent)

	_, err = svc.GetVersionDetail(original.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetVersionDetail("no-such-version", owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSwitchCurrentVersion(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, original := createTestDream(t, db, user.ID, testDreamContent)
	edited := addVersion(t, db, dream.ID, user.ID, 2, models.VersionTypeEdited, "编辑后的全新内容，比原始版本更加完整")

	svc := NewVersionService(db)

	result, err := svc.SwitchCurrentVersion(dream.ID, user.ID, edited.ID)
	require.NoError(t, err)
	assert.Equal(t, "版本切换成功", result.Message)
	assert.Equal(t, edited.ID, result.CurrentVersionID)
	assert.Equal(t, 2, result.VersionNumber)
	assert.Equal(t, edited.Content, result.Content)

	// Exactly one current version after the flip.
	current := currentVersions(t, db, dream.ID)
	require.Len(t, current, 1)
	assert.Equal(t, edited.ID, current[0].ID)

	// The dream's denormalized fields follow the switch.
	var fresh models.Dream
	require.NoError(t, db.First(&fresh, "id = ?", dream.ID).Error)
	assert.Equal(t, edited.Content, fresh.Content)
	require.NotNil(t, fresh.CurrentVersionID)
	assert.Equal(t, edited.ID, *fresh.CurrentVersionID)

	// Switching back restores the original.
	result, err = svc.SwitchCurrentVersion(dream.ID, user.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, result.CurrentVersionID)

	current = currentVersions(t, db, dream.ID)
	require.Len(t, current, 1)
	assert.Equal(t, original.ID, current[0].ID)
}

func TestSwitchToCurrentVersionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, original := createTestDream(t, db, user.ID, testDreamContent)

	svc := NewVersionService(db)

	result, err := svc.SwitchCurrentVersion(dream.ID, user.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "该版本已是当前版本", result.Message)
	assert.Equal(t, original.ID, result.CurrentVersionID)

	current := currentVersions(t, db, dream.ID)
	require.Len(t, current, 1)
	assert.Equal(t, original.ID, current[0].ID)
}

func TestSwitchRejectsForeignVersion(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dreamA, _ := createTestDream(t, db, user.ID, testDreamContent)

	// A version belonging to a different dream must not be switchable in.
	other := &models.DreamVersion{
		DreamID:       "other-dream",
		UserID:        user.ID,
		Type:          models.VersionTypeOriginal,
		Content:       "别的梦境",
		VersionNumber: 1,
	}
	require.NoError(t, db.Create(other).Error)

	svc := NewVersionService(db)
	_, err := svc.SwitchCurrentVersion(dreamA.ID, user.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
