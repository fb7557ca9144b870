package models

import "time"

// Conversation - диалог ровно двух пользователей.
// Пара хранится нормализованной (user1_id < user2_id), уникальный индекс
// по паре гарантирует не больше одного диалога на пару.
type Conversation struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID   int64     `gorm:"uniqueIndex:idx_conversation_pair" json:"user1_id"`
	User2ID   int64     `gorm:"uniqueIndex:idx_conversation_pair" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// NormalizePair приводит пару к каноническому порядку
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant проверяет участие пользователя в диалоге
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant возвращает собеседника для данного пользователя
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// FavoriteConversation - закладка одного участника, не симметрична
type FavoriteConversation struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64     `gorm:"uniqueIndex:idx_favorite_pair" json:"user_id"`
	ConversationID int64     `gorm:"uniqueIndex:idx_favorite_pair" json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (FavoriteConversation) TableName() string {
	return "favorite_conversations"
}
