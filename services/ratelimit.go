package services

import (
	"context"
	"errors"
	"math"
	"time"

	"anonchat/config"
	"anonchat/db"
	"anonchat/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ActionRandomSearch = "random_search"

type RateLimitService struct{}

func NewRateLimitService() *RateLimitService {
	return &RateLimitService{}
}

// Check проверяет, истек ли кулдаун. Только чтение: заблокированная попытка
// ничего не записывает.
func (s *RateLimitService) Check(ctx context.Context, userID int64, action string) (allowed bool, retryAfter int, err error) {
	var record models.RateLimit
	err = db.GetReadOnlyDB(ctx).
		Where("user_id = ? AND action = ?", userID, action).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	window := config.RateLimitWindow()
	elapsed := time.Since(record.LastAttempt)
	if elapsed < window {
		remaining := int(math.Ceil((window - elapsed).Seconds()))
		return false, remaining, nil
	}
	return true, 0, nil
}

// Arm взводит кулдаун одним upsert-ом: конкурентные вызовы схлопываются
// в одну строку вместо дублей.
func (s *RateLimitService) Arm(ctx context.Context, userID int64, action string) error {
	record := models.RateLimit{
		UserID:      userID,
		Action:      action,
		LastAttempt: time.Now(),
	}
	return db.GetWriteDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "action"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_attempt": record.LastAttempt}),
	}).Create(&record).Error
}

// PurgeExpired удаляет строки, чья актуальность давно истекла
func (s *RateLimitService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-10 * config.RateLimitWindow())
	result := db.GetWriteDB(ctx).
		Where("last_attempt < ?", cutoff).
		Delete(&models.RateLimit{})
	return result.RowsAffected, result.Error
}
