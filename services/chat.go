package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"anonchat/db"
	"anonchat/models"
	"anonchat/pkg/errors"

	"gorm.io/gorm"
)

const (
	SenderMe    = "me"
	SenderOther = "other"
)

// ChatService - операции над диалогами и сообщениями.
// Счетчики и лента изменений опциональны: без них сервис работает,
// просто медленнее и без push-уведомлений.
type ChatService struct {
	blocks *BlockService
	unread *UnreadCounterService
}

func NewChatService(blocks *BlockService, unread *UnreadCounterService) *ChatService {
	return &ChatService{blocks: blocks, unread: unread}
}

// ConversationPreview - строка списка диалогов
type ConversationPreview struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Image           *string    `json:"image,omitempty"`
	LastMessage     string     `json:"last_message"`
	LastMessageTime time.Time  `json:"last_message_time"`
	UnreadCount     int64      `json:"unread_count"`
	LastSeenAt      *time.Time `json:"last_seen_at,omitempty"`
	OtherUserID     int64      `json:"other_user_id"`
}

// FavoritePreview - строка списка избранного (сообщения не обязательны)
type FavoritePreview struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Image       *string    `json:"image,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	OtherUserID int64      `json:"other_user_id"`
}

// MessageView - сообщение с отправителем относительно запрашивающего
type MessageView struct {
	ID        int64     `json:"id"`
	Content   *string   `json:"content,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Sender    string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

// ConversationDetail - шапка диалога плюс вся история
type ConversationDetail struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Image        *string       `json:"image,omitempty"`
	LastSeenAt   *time.Time    `json:"last_seen_at,omitempty"`
	LastSeenText string        `json:"last_seen_text"`
	OtherUserID  int64         `json:"other_user_id"`
	IsBlocked    bool          `json:"is_blocked"`
	IsFavorite   bool          `json:"is_favorite"`
	Messages     []MessageView `json:"messages"`
}

func (s *ChatService) loadConversation(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	var conversation models.Conversation
	err := db.GetReadOnlyDB(ctx).First(&conversation, conversationID).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrConversationMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &conversation, nil
}

func (s *ChatService) authorizeParticipant(ctx context.Context, userID, conversationID int64) (*models.Conversation, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.ErrNotParticipant
	}
	return conversation, nil
}

// VerifyParticipant проверяет членство пользователя в диалоге; используется
// websocket-сессией перед подпиской на эфемерные сигналы
func (s *ChatService) VerifyParticipant(ctx context.Context, userID, conversationID int64) error {
	_, err := s.authorizeParticipant(ctx, userID, conversationID)
	return err
}

func (s *ChatService) unreadCount(ctx context.Context, userID, conversationID int64) int64 {
	if s.unread != nil {
		if count, ok := s.unread.Get(ctx, userID, conversationID); ok {
			return count
		}
	}
	count, err := CountUnread(ctx, userID, conversationID)
	if err != nil {
		return 0
	}
	if s.unread != nil {
		s.unread.Set(ctx, userID, conversationID, count)
	}
	return count
}

// ListConversations возвращает диалоги пользователя хотя бы с одним
// сообщением, упорядоченные по свежести
func (s *ChatService) ListConversations(ctx context.Context, userID int64) ([]ConversationPreview, error) {
	var conversations []models.Conversation
	err := db.GetReadOnlyDB(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	previews := make([]ConversationPreview, 0, len(conversations))
	for _, conversation := range conversations {
		var lastMessage models.Message
		err := db.GetReadOnlyDB(ctx).
			Where("conversation_id = ?", conversation.ID).
			Order("created_at DESC").
			First(&lastMessage).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			// Временный диалог без сообщений в списке не показываем
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load last message: %w", err)
		}

		otherID := conversation.OtherParticipant(userID)
		var other models.User
		if err := db.GetReadOnlyDB(ctx).First(&other, otherID).Error; err != nil {
			return nil, fmt.Errorf("failed to load peer: %w", err)
		}

		preview := ConversationPreview{
			ID:              conversation.ID,
			Name:            other.DisplayName(),
			Image:           other.Image,
			LastMessageTime: lastMessage.CreatedAt,
			UnreadCount:     s.unreadCount(ctx, userID, conversation.ID),
			LastSeenAt:      other.LastSeenAt,
			OtherUserID:     other.ID,
		}
		if lastMessage.Content != nil {
			preview.LastMessage = *lastMessage.Content
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

// ListFavorites возвращает избранные диалоги независимо от числа сообщений
func (s *ChatService) ListFavorites(ctx context.Context, userID int64) ([]FavoritePreview, error) {
	var favorites []models.FavoriteConversation
	err := db.GetReadOnlyDB(ctx).
		Where("user_id = ?", userID).
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	previews := make([]FavoritePreview, 0, len(favorites))
	for _, favorite := range favorites {
		conversation, err := s.loadConversation(ctx, favorite.ConversationID)
		if err != nil {
			continue
		}
		var other models.User
		if err := db.GetReadOnlyDB(ctx).First(&other, conversation.OtherParticipant(userID)).Error; err != nil {
			continue
		}
		previews = append(previews, FavoritePreview{
			ID:          conversation.ID,
			Name:        other.DisplayName(),
			Image:       other.Image,
			LastSeenAt:  other.LastSeenAt,
			OtherUserID: other.ID,
		})
	}
	return previews, nil
}

// GetConversation отдает шапку и историю. Отправитель каждого сообщения
// нормализуется в me/other относительно запрашивающего.
func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID int64) (*ConversationDetail, error) {
	conversation, err := s.authorizeParticipant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	otherID := conversation.OtherParticipant(userID)
	var other models.User
	if err := db.GetReadOnlyDB(ctx).First(&other, otherID).Error; err != nil {
		return nil, fmt.Errorf("failed to load peer: %w", err)
	}

	isBlocked, err := s.blocks.BlockedBetween(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	isFavorite, err := s.IsFavorite(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	var rows []models.Message
	err = db.GetReadOnlyDB(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := make([]MessageView, 0, len(rows))
	for _, row := range rows {
		sender := SenderOther
		if row.SenderID == userID {
			sender = SenderMe
		}
		messages = append(messages, MessageView{
			ID:        row.ID,
			Content:   row.Content,
			ImageURL:  row.ImageURL,
			Sender:    sender,
			CreatedAt: row.CreatedAt,
			IsRead:    row.IsRead,
		})
	}

	return &ConversationDetail{
		ID:           conversation.ID,
		Name:         other.DisplayName(),
		Image:        other.Image,
		LastSeenAt:   other.LastSeenAt,
		LastSeenText: LastSeenText(other.LastSeenAt),
		OtherUserID:  other.ID,
		IsBlocked:    isBlocked,
		IsFavorite:   isFavorite,
		Messages:     messages,
	}, nil
}

// SendMessage пишет сообщение, обновляет updated_at диалога и публикует
// событие ленты для собеседника
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID int64, content, imageURL *string) (*MessageView, error) {
	conversation, err := s.authorizeParticipant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	otherID := conversation.OtherParticipant(userID)
	blocked, err := s.blocks.BlockedBetween(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, errors.ErrBlockedConversation
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
		ImageURL:       imageURL,
	}
	if err := db.GetWriteDB(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	err = db.GetWriteDB(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if s.unread != nil {
		s.unread.Incr(ctx, otherID, conversationID)
	}
	publishChatEventAsync(ChatEvent{
		Event:          EventMessageCreated,
		UserID:         otherID,
		ConversationID: conversationID,
		MessageID:      message.ID,
		SenderID:       userID,
		Content:        message.Content,
		ImageURL:       message.ImageURL,
		CreatedAt:      message.CreatedAt,
	})

	return &MessageView{
		ID:        message.ID,
		Content:   message.Content,
		ImageURL:  message.ImageURL,
		Sender:    SenderMe,
		CreatedAt: message.CreatedAt,
		IsRead:    message.IsRead,
	}, nil
}

// MarkRead помечает прочитанными только сообщения собеседника. Идемпотентна:
// повторный вызов ничего не меняет.
func (s *ChatService) MarkRead(ctx context.Context, userID, conversationID int64) error {
	conversation, err := s.authorizeParticipant(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	result := db.GetWriteDB(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = ?",
			conversationID, userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark messages read: %w", result.Error)
	}

	if s.unread != nil {
		s.unread.Reset(ctx, userID, conversationID)
	}
	if result.RowsAffected > 0 {
		// Отправитель получает read-receipt
		publishChatEventAsync(ChatEvent{
			Event:          EventMessageRead,
			UserID:         conversation.OtherParticipant(userID),
			ConversationID: conversationID,
			SenderID:       userID,
			IsRead:         true,
			CreatedAt:      time.Now(),
		})
	}
	return nil
}

// ToggleFavorite переключает закладку и возвращает новое состояние
func (s *ChatService) ToggleFavorite(ctx context.Context, userID, conversationID int64) (bool, error) {
	if _, err := s.authorizeParticipant(ctx, userID, conversationID); err != nil {
		return false, err
	}

	var existing models.FavoriteConversation
	err := db.GetWriteDB(ctx).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		First(&existing).Error

	if err == nil {
		if err = db.GetWriteDB(ctx).Delete(&existing).Error; err != nil {
			return true, fmt.Errorf("failed to unfavorite: %w", err)
		}
		return false, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}

	favorite := models.FavoriteConversation{
		UserID:         userID,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
	}
	if err = db.GetWriteDB(ctx).Create(&favorite).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, fmt.Errorf("failed to favorite: %w", err)
	}
	return true, nil
}

// IsFavorite проверяет закладку запрашивающего
func (s *ChatService) IsFavorite(ctx context.Context, userID, conversationID int64) (bool, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.FavoriteConversation{}).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}
