package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/db"
	"anonchat/models"
)

func TestRateLimitAllowsFirstAttempt(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	limits := NewRateLimitService()

	allowed, retryAfter, err := limits.Check(ctx, user.ID, ActionRandomSearch)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestRateLimitBlocksWithinWindow(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	limits := NewRateLimitService()

	require.NoError(t, limits.Arm(ctx, user.ID, ActionRandomSearch))

	allowed, retryAfter, err := limits.Check(ctx, user.ID, ActionRandomSearch)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 10)
}

func TestRateLimitCheckHasNoSideEffect(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	limits := NewRateLimitService()

	require.NoError(t, limits.Arm(ctx, user.ID, ActionRandomSearch))

	var before models.RateLimit
	require.NoError(t, db.GetReadOnlyDB(ctx).
		Where("user_id = ? AND action = ?", user.ID, ActionRandomSearch).
		First(&before).Error)

	for i := 0; i < 3; i++ {
		_, _, err := limits.Check(ctx, user.ID, ActionRandomSearch)
		require.NoError(t, err)
	}

	var after models.RateLimit
	require.NoError(t, db.GetReadOnlyDB(ctx).
		Where("user_id = ? AND action = ?", user.ID, ActionRandomSearch).
		First(&after).Error)
	assert.Equal(t, before.LastAttempt.Unix(), after.LastAttempt.Unix())
}

func TestRateLimitAllowsAfterWindow(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	limits := NewRateLimitService()

	stale := models.RateLimit{
		UserID:      user.ID,
		Action:      ActionRandomSearch,
		LastAttempt: time.Now().Add(-11 * time.Second),
	}
	require.NoError(t, db.GetWriteDB(ctx).Create(&stale).Error)

	allowed, retryAfter, err := limits.Check(ctx, user.ID, ActionRandomSearch)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestRateLimitArmUpsertsSingleRow(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	limits := NewRateLimitService()

	require.NoError(t, limits.Arm(ctx, user.ID, ActionRandomSearch))
	require.NoError(t, limits.Arm(ctx, user.ID, ActionRandomSearch))
	require.NoError(t, limits.Arm(ctx, user.ID, ActionRandomSearch))

	var count int64
	require.NoError(t, db.GetReadOnlyDB(ctx).Model(&models.RateLimit{}).
		Where("user_id = ? AND action = ?", user.ID, ActionRandomSearch).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRateLimitPurgeExpired(t *testing.T) {
	ctx := context.Background()
	fresh := createTestUser(t)
	stale := createTestUser(t)
	limits := NewRateLimitService()

	require.NoError(t, limits.Arm(ctx, fresh.ID, ActionRandomSearch))
	old := models.RateLimit{
		UserID:      stale.ID,
		Action:      ActionRandomSearch,
		LastAttempt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.GetWriteDB(ctx).Create(&old).Error)

	_, err := limits.PurgeExpired(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.GetReadOnlyDB(ctx).Model(&models.RateLimit{}).
		Where("user_id = ?", stale.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.GetReadOnlyDB(ctx).Model(&models.RateLimit{}).
		Where("user_id = ?", fresh.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
