package models

import "time"

// BlockedUser - направленное ребро блокировки. Хранится направленно,
// действует в обе стороны: наличие ребра в любом направлении
// запрещает переписку пары.
type BlockedUser struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockerID int64     `gorm:"uniqueIndex:idx_block_pair" json:"blocker_id"`
	BlockedID int64     `gorm:"uniqueIndex:idx_block_pair" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (BlockedUser) TableName() string {
	return "blocked_users"
}
