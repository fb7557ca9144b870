package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/pkg/errors"
)

func TestSelfBlockRejected(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	blocks := NewBlockService()

	_, err := blocks.ToggleBlock(ctx, user.ID, user.ID)
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
}

func TestBlockedBetweenEitherDirection(t *testing.T) {
	ctx := context.Background()
	alice := createTestUser(t)
	bob := createTestUser(t)
	blocks := NewBlockService()

	blocked, err := blocks.BlockedBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	_, err = blocks.ToggleBlock(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	// проверка не зависит от порядка аргументов
	blocked, err = blocks.BlockedBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
	blocked, err = blocks.BlockedBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestListBlockedShowsOnlyOwnBlocks(t *testing.T) {
	ctx := context.Background()
	alice := createTestUser(t)
	bob := createTestUser(t)
	blocks := NewBlockService()

	_, err := blocks.ToggleBlock(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	list, err := blocks.ListBlocked(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].ID)

	// заблокированный своего блокировщика в списке не видит
	list, err = blocks.ListBlocked(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
