package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"

	"anonchat/config"
	"anonchat/db"
	"anonchat/logging"
	"anonchat/models"
	"anonchat/pkg/errors"

	"gorm.io/gorm"
)

// MatchService подбирает случайного собеседника среди онлайн-пользователей.
// Множество онлайн берется только с сервера через OnlineProvider.
type MatchService struct {
	online     OnlineProvider
	rateLimits *RateLimitService
}

func NewMatchService(online OnlineProvider, rateLimits *RateLimitService) *MatchService {
	return &MatchService{online: online, rateLimits: rateLimits}
}

// FindRandomUser возвращает ID диалога со случайным подходящим пользователем.
// Неудачные попытки (никого онлайн, никого подходящего) взводят кулдаун;
// сама заблокированная проверка ничего не пишет.
func (s *MatchService) FindRandomUser(ctx context.Context, userID int64) (int64, error) {
	allowed, retryAfter, err := s.rateLimits.Check(ctx, userID, ActionRandomSearch)
	if err != nil {
		return 0, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return 0, errors.RateLimited(
			fmt.Sprintf("wait %ds before searching again", retryAfter), retryAfter)
	}

	windowSeconds := int(config.RateLimitWindow().Seconds())

	onlineIDs, err := s.online.OnlineUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read online set: %w", err)
	}

	candidates := make([]int64, 0, len(onlineIDs))
	for _, id := range onlineIDs {
		if id != userID {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		s.arm(ctx, userID)
		return 0, errors.NoEligibleUser("no one is online right now", windowSeconds)
	}

	excluded, err := s.excludedPeers(ctx, userID)
	if err != nil {
		return 0, err
	}

	eligible := make([]int64, 0, len(candidates))
	for _, id := range candidates {
		if !excluded[id] {
			eligible = append(eligible, id)
		}
	}

	if len(eligible) == 0 {
		s.arm(ctx, userID)
		return 0, errors.NoEligibleUser("no one is available right now", windowSeconds)
	}

	// Равномерный выбор, без весов
	partnerID := eligible[rand.Intn(len(eligible))]

	return s.reuseOrCreateConversation(ctx, userID, partnerID)
}

func (s *MatchService) arm(ctx context.Context, userID int64) {
	if err := s.rateLimits.Arm(ctx, userID, ActionRandomSearch); err != nil {
		logging.L().Warnf("failed to arm rate limit for user %d: %v", userID, err)
	}
}

// excludedPeers собирает ID, с которыми подбор запрещен: диалог с сообщениями,
// своя закладка или блокировка в любом направлении
func (s *MatchService) excludedPeers(ctx context.Context, userID int64) (map[int64]bool, error) {
	excluded := make(map[int64]bool)

	var messaged []models.Conversation
	err := db.GetReadOnlyDB(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND EXISTS (SELECT 1 FROM messages WHERE messages.conversation_id = conversations.id)",
			userID, userID).
		Find(&messaged).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messaged conversations: %w", err)
	}
	for _, conversation := range messaged {
		excluded[conversation.OtherParticipant(userID)] = true
	}

	var favorites []models.FavoriteConversation
	err = db.GetReadOnlyDB(ctx).
		Where("user_id = ?", userID).
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	for _, favorite := range favorites {
		var conversation models.Conversation
		if err := db.GetReadOnlyDB(ctx).First(&conversation, favorite.ConversationID).Error; err != nil {
			continue
		}
		excluded[conversation.OtherParticipant(userID)] = true
	}

	var blocks []models.BlockedUser
	err = db.GetReadOnlyDB(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load blocks: %w", err)
	}
	for _, block := range blocks {
		if block.BlockerID == userID {
			excluded[block.BlockedID] = true
		} else {
			excluded[block.BlockerID] = true
		}
	}

	return excluded, nil
}

// reuseOrCreateConversation переиспользует временный диалог пары, иначе
// создает новый. Гонка двух одновременных подборов упирается в уникальный
// индекс пары: проигравший перечитывает строку победителя.
func (s *MatchService) reuseOrCreateConversation(ctx context.Context, userID, partnerID int64) (int64, error) {
	user1, user2 := models.NormalizePair(userID, partnerID)

	var existing models.Conversation
	err := db.GetReadOnlyDB(ctx).
		Where("user1_id = ? AND user2_id = ?", user1, user2).
		First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to check existing conversation: %w", err)
	}

	conversation := models.Conversation{User1ID: user1, User2ID: user2}
	err = db.GetWriteDB(ctx).Create(&conversation).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			err = db.GetWriteDB(ctx).
				Where("user1_id = ? AND user2_id = ?", user1, user2).
				First(&existing).Error
			if err != nil {
				return 0, fmt.Errorf("failed to re-read conversation after duplicate: %w", err)
			}
			return existing.ID, nil
		}
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	publishChatEventAsync(ChatEvent{
		Event:          EventConversationCreated,
		UserID:         partnerID,
		ConversationID: conversation.ID,
		SenderID:       userID,
		CreatedAt:      conversation.CreatedAt,
	})
	return conversation.ID, nil
}
