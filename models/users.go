package models

import (
	"fmt"
	"time"
)

type User struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Nickname   *string    `gorm:"size:60;uniqueIndex" json:"nickname,omitempty"`
	Image      *string    `gorm:"size:512" json:"image,omitempty"`
	Password   string     `gorm:"size:255" json:"-"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName - никнейм либо стабильный анонимный псевдоним по ID
func (u *User) DisplayName() string {
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	return AnonymousName(u.ID)
}

// AnonymousName детерминированно выводит псевдоним из ID пользователя
func AnonymousName(userID int64) string {
	return fmt.Sprintf("Anon #%04X", userID&0xFFFF)
}

type UserTokens struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64  `gorm:"index:user_token_idx,unique" json:"user_id"`
	Token  string `gorm:"size:255;index:user_token_idx,unique" json:"token"`
}

func (UserTokens) TableName() string {
	return "user_tokens"
}
