package services

import (
	"strings"
	"testing"

	"github.com/dreamlog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDreamRecordsOriginalVersion(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	svc := NewDreamService(db, nil)

	view, err := svc.Create(user.ID, CreateDreamInput{
		Content: testDreamContent,
		Tags:    []string{"飞行", "图书馆"},
		Emotion: "好奇",
	})
	require.NoError(t, err)
	assert.Equal(t, testDreamContent, view.Content)
	assert.Equal(t, []string{"飞行", "图书馆"}, view.Tags)
	assert.Equal(t, string(models.DreamStatusPending), view.Status)
	require.NotNil(t, view.CurrentVersionID)

	// Version 1, original, current, pointing back at the dream.
	current := currentVersions(t, db, view.ID)
	require.Len(t, current, 1)
	assert.Equal(t, *view.CurrentVersionID, current[0].ID)
	assert.Equal(t, 1, current[0].VersionNumber)
	assert.Equal(t, models.VersionTypeOriginal, current[0].Type)
	assert.Equal(t, testDreamContent, current[0].Content)

	// The streak starts at one.
	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	assert.Equal(t, 1, fresh.ConsecutiveDays)
	require.NotNil(t, fresh.LastDreamDate)
}

func TestCreateDreamValidatesLength(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	svc := NewDreamService(db, nil)

	_, err := svc.Create(user.ID, CreateDreamInput{Content: "太短了"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(user.ID, CreateDreamInput{Content: strings.Repeat("梦", dreamMaxLength+1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateDreamOncePerDay(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	svc := NewDreamService(db, nil)

	_, err := svc.Create(user.ID, CreateDreamInput{Content: testDreamContent})
	require.NoError(t, err)

	_, err = svc.Create(user.ID, CreateDreamInput{Content: testDreamContent})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateDreamCreatesEditedVersion(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, original := createTestDream(t, db, user.ID, testDreamContent)
	svc := NewDreamService(db, nil)

	edited := "醒来之后我重新整理了这个梦：我在图书馆里飞行，最后落在一本打开的书上。"
	view, err := svc.Update(user.ID, dream.ID, UpdateDreamInput{Content: edited})
	require.NoError(t, err)
	assert.Equal(t, edited, view.Content)

	current := currentVersions(t, db, dream.ID)
	require.Len(t, current, 1)
	assert.Equal(t, models.VersionTypeEdited, current[0].Type)
	assert.Equal(t, 2, current[0].VersionNumber)
	assert.NotEqual(t, original.ID, current[0].ID)

	// The original version survives as history.
	var old models.DreamVersion
	require.NoError(t, db.First(&old, "id = ?", original.ID).Error)
	assert.False(t, old.IsCurrent)
	assert.Equal(t, testDreamContent, old.Content)
}

func TestDeleteDreamIsSoft(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, _ := createTestDream(t, db, user.ID, testDreamContent)
	svc := NewDreamService(db, nil)

	require.NoError(t, svc.Delete(user.ID, dream.ID))

	// The row survives with deleted status; reads treat it as gone.
	var fresh models.Dream
	require.NoError(t, db.First(&fresh, "id = ?", dream.ID).Error)
	assert.Equal(t, models.DreamStatusDeleted, fresh.Status)
	require.NotNil(t, fresh.DeletedAt)

	_, err := svc.Get(user.ID, dream.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchDeleteRequiresFullOwnership(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, false)
	other := createTestUser(t, db, false)
	mine, _ := createTestDream(t, db, owner.ID, testDreamContent)
	theirs, _ := createTestDream(t, db, other.ID, testDreamContent)
	svc := NewDreamService(db, nil)

	// Mixing in someone else's dream fails the whole batch.
	_, err := svc.BatchDelete(owner.ID, []string{mine.ID, theirs.ID})
	assert.ErrorIs(t, err, ErrValidation)

	var fresh models.Dream
	require.NoError(t, db.First(&fresh, "id = ?", mine.ID).Error)
	assert.NotEqual(t, models.DreamStatusDeleted, fresh.Status)

	deleted, err := svc.BatchDelete(owner.ID, []string{mine.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestListDreamsFilters(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	svc := NewDreamService(db, nil)

	d1, _ := createTestDream(t, db, user.ID, "我梦见一片安静的海，海面上漂着无数盏灯，照亮了整个夜空。")
	require.NoError(t, db.Model(d1).Updates(map[string]interface{}{
		"emotion": "平静",
		"tags":    `["海","灯"]`,
	}).Error)
	d2, _ := createTestDream(t, db, user.ID, "我梦见在城市上空追逐一只会说话的猫，它一直在喊我的名字。")
	require.NoError(t, db.Model(d2).Update("emotion", "紧张").Error)

	result, err := svc.List(user.ID, DreamListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Total)

	result, err = svc.List(user.ID, DreamListQuery{Emotion: "平静"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)
	assert.Equal(t, d1.ID, result.List[0].ID)

	result, err = svc.List(user.ID, DreamListQuery{Keyword: "猫"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)
	assert.Equal(t, d2.ID, result.List[0].ID)

	result, err = svc.List(user.ID, DreamListQuery{Tag: "海"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)

	// Deleted dreams never show up.
	require.NoError(t, svc.Delete(user.ID, d2.ID))
	result, err = svc.List(user.ID, DreamListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)
}

func TestTogglePrivacy(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, false)
	dream, _ := createTestDream(t, db, user.ID, testDreamContent)
	svc := NewDreamService(db, nil)

	isPublic, err := svc.TogglePrivacy(user.ID, dream.ID)
	require.NoError(t, err)
	assert.True(t, isPublic)

	isPublic, err = svc.TogglePrivacy(user.ID, dream.ID)
	require.NoError(t, err)
	assert.False(t, isPublic)
}

func TestGetDreamOwnership(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, false)
	stranger := createTestUser(t, db, false)
	dream, _ := createTestDream(t, db, owner.ID, testDreamContent)
	svc := NewDreamService(db, nil)

	view, err := svc.Get(owner.ID, dream.ID)
	require.NoError(t, err)
	assert.Equal(t, dream.ID, view.ID)

	_, err = svc.Get(stranger.ID, dream.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
