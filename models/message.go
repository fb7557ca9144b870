package models

import "time"

// Message - сообщение внутри диалога. Текст и картинка опциональны,
// is_read выставляет только получатель.
type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64     `gorm:"index:idx_message_conversation_created" json:"conversation_id"`
	SenderID       int64     `gorm:"index" json:"sender_id"`
	Content        *string   `gorm:"type:text" json:"content,omitempty"`
	ImageURL       *string   `gorm:"size:512" json:"image_url,omitempty"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_message_conversation_created" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
