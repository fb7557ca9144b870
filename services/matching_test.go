package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/db"
	"anonchat/models"
	"anonchat/pkg/errors"
)

// staticOnline - детерминированный OnlineProvider для тестов
type staticOnline struct {
	ids []int64
}

func (s *staticOnline) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	return s.ids, nil
}

func (s *staticOnline) IsOnline(ctx context.Context, userID int64) (bool, error) {
	for _, id := range s.ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func newTestMatchService(onlineIDs ...int64) *MatchService {
	return NewMatchService(&staticOnline{ids: onlineIDs}, NewRateLimitService())
}

func TestMatchNoOneOnlineArmsCooldown(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	match := newTestMatchService(user.ID) // онлайн только сам искатель

	_, err := match.FindRandomUser(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoEligibleUser, errors.CodeOf(err))
	assert.Greater(t, errors.RetryAfter(err), 0)

	// неудача взводит кулдаун: повторный поиск сразу отбивается
	_, err = match.FindRandomUser(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeRateLimited, errors.CodeOf(err))
}

func TestMatchSuccessDoesNotArmCooldown(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)
	match := newTestMatchService(seeker.ID, partner.ID)

	conversationID, err := match.FindRandomUser(ctx, seeker.ID)
	require.NoError(t, err)
	assert.NotZero(t, conversationID)

	// успех ничего не взводит: следующая попытка проходит проверку
	again, err := match.FindRandomUser(ctx, seeker.ID)
	require.NoError(t, err)
	assert.Equal(t, conversationID, again)
}

func TestMatchReusesProvisionalConversation(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)
	match := newTestMatchService(seeker.ID, partner.ID)

	first, err := match.FindRandomUser(ctx, seeker.ID)
	require.NoError(t, err)

	// диалог без сообщений не исключает партнера и переиспользуется
	second, err := match.FindRandomUser(ctx, seeker.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	user1, user2 := models.NormalizePair(seeker.ID, partner.ID)
	require.NoError(t, db.GetReadOnlyDB(ctx).Model(&models.Conversation{}).
		Where("user1_id = ? AND user2_id = ?", user1, user2).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMatchExcludesMessagedPartner(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)
	conversation := createConversation(t, seeker.ID, partner.ID)

	content := "hi"
	message := models.Message{ConversationID: conversation.ID, SenderID: seeker.ID, Content: &content}
	require.NoError(t, db.GetWriteDB(ctx).Create(&message).Error)

	match := newTestMatchService(seeker.ID, partner.ID)
	_, err := match.FindRandomUser(ctx, seeker.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoEligibleUser, errors.CodeOf(err))
}

func TestMatchExcludesFavoritedPartner(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)
	conversation := createConversation(t, seeker.ID, partner.ID)

	favorite := models.FavoriteConversation{UserID: seeker.ID, ConversationID: conversation.ID}
	require.NoError(t, db.GetWriteDB(ctx).Create(&favorite).Error)

	match := newTestMatchService(seeker.ID, partner.ID)
	_, err := match.FindRandomUser(ctx, seeker.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoEligibleUser, errors.CodeOf(err))
}

func TestMatchExcludesBlockedEitherDirection(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)

	// блокировка направлена от партнера к искателю, но исключает подбор
	block := models.BlockedUser{BlockerID: partner.ID, BlockedID: seeker.ID}
	require.NoError(t, db.GetWriteDB(ctx).Create(&block).Error)

	match := newTestMatchService(seeker.ID, partner.ID)
	_, err := match.FindRandomUser(ctx, seeker.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoEligibleUser, errors.CodeOf(err))
}

func TestMatchNeverPairsWithSelf(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)
	match := newTestMatchService(seeker.ID, seeker.ID, partner.ID)

	conversationID, err := match.FindRandomUser(ctx, seeker.ID)
	require.NoError(t, err)

	var conversation models.Conversation
	require.NoError(t, db.GetReadOnlyDB(ctx).First(&conversation, conversationID).Error)
	assert.Equal(t, partner.ID, conversation.OtherParticipant(seeker.ID))
	assert.NotEqual(t, conversation.User1ID, conversation.User2ID)
}

func TestConversationPairIsNormalized(t *testing.T) {
	ctx := context.Background()
	seeker := createTestUser(t)
	partner := createTestUser(t)
	match := newTestMatchService(seeker.ID, partner.ID)

	conversationID, err := match.FindRandomUser(ctx, seeker.ID)
	require.NoError(t, err)

	var conversation models.Conversation
	require.NoError(t, db.GetReadOnlyDB(ctx).First(&conversation, conversationID).Error)
	assert.Less(t, conversation.User1ID, conversation.User2ID)
}
