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

type BlockService struct{}

func NewBlockService() *BlockService {
	return &BlockService{}
}

// IsBlockedBy проверяет прямое ребро blocker -> blocked
func (s *BlockService) IsBlockedBy(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.BlockedUser{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return count > 0, nil
}

// BlockedBetween - блокировка в любом направлении закрывает переписку пары
func (s *BlockService) BlockedBetween(ctx context.Context, userA, userB int64) (bool, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.BlockedUser{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check block pair: %w", err)
	}
	return count > 0, nil
}

// ToggleBlock переключает блокировку и возвращает новое состояние
func (s *BlockService) ToggleBlock(ctx context.Context, userID, otherUserID int64) (isBlocked bool, err error) {
	if userID == otherUserID {
		return false, errors.ErrSelfBlock
	}

	var existing models.BlockedUser
	err = db.GetWriteDB(ctx).
		Where("blocker_id = ? AND blocked_id = ?", userID, otherUserID).
		First(&existing).Error

	if err == nil {
		if err = db.GetWriteDB(ctx).Delete(&existing).Error; err != nil {
			return true, fmt.Errorf("failed to unblock: %w", err)
		}
		return false, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check block: %w", err)
	}

	edge := models.BlockedUser{
		BlockerID: userID,
		BlockedID: otherUserID,
		CreatedAt: time.Now(),
	}
	if err = db.GetWriteDB(ctx).Create(&edge).Error; err != nil {
		// Гонка двух одинаковых toggle: ребро уже есть, состояние то же
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, fmt.Errorf("failed to block: %w", err)
	}
	return true, nil
}

// BlockedUserInfo - заблокированный пользователь для списка в настройках
type BlockedUserInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	BlockedAt time.Time `json:"blocked_at"`
}

// ListBlocked возвращает всех, кого пользователь заблокировал
func (s *BlockService) ListBlocked(ctx context.Context, userID int64) ([]BlockedUserInfo, error) {
	var edges []models.BlockedUser
	err := db.GetReadOnlyDB(ctx).
		Where("blocker_id = ?", userID).
		Order("created_at DESC").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}

	result := make([]BlockedUserInfo, 0, len(edges))
	for _, edge := range edges {
		var blocked models.User
		if err := db.GetReadOnlyDB(ctx).First(&blocked, edge.BlockedID).Error; err != nil {
			continue
		}
		result = append(result, BlockedUserInfo{
			ID:        blocked.ID,
			Name:      blocked.DisplayName(),
			Image:     blocked.Image,
			BlockedAt: edge.CreatedAt,
		})
	}
	return result, nil
}
