package models

import "time"

// RateLimit - отметка последней попытки действия для троттлинга.
// Строка не удаляется по истечении окна, её актуальность истекает сама.
type RateLimit struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"uniqueIndex:idx_rate_limit_key" json:"user_id"`
	Action      string    `gorm:"size:60;uniqueIndex:idx_rate_limit_key" json:"action"`
	LastAttempt time.Time `json:"last_attempt"`
}

func (RateLimit) TableName() string {
	return "rate_limits"
}
