package services

import (
	"context"
	"encoding/json"
	"time"

	"anonchat/db"
	"anonchat/logging"
	"anonchat/models"

	"github.com/go-redis/redis/v8"
)

const (
	lastSeenQueue       = "last_seen_queue"
	lastSeenWorkerCount = 3
)

// LastSeenTask - отложенное обновление last_seen_at
type LastSeenTask struct {
	UserID int64 `json:"user_id"`
	SeenAt int64 `json:"seen_at"`
}

// TouchLastSeen фиксирует активность пользователя. Запись уходит в очередь
// с отложенной записью в БД; без Redis пишем синхронно. Сбой здесь никогда
// не ломает вызывающее действие, поэтому ошибки только логируются.
func TouchLastSeen(ctx context.Context, userID int64) {
	now := time.Now()

	if RedisClient != nil {
		task := LastSeenTask{UserID: userID, SeenAt: now.Unix()}
		data, err := json.Marshal(task)
		if err == nil {
			if err = RedisClient.RPush(ctx, lastSeenQueue, data).Err(); err == nil {
				return
			}
			logging.L().Warnf("last_seen enqueue failed, falling back to direct write: %v", err)
		}
	}

	writeLastSeen(ctx, userID, now)
}

func writeLastSeen(ctx context.Context, userID int64, seenAt time.Time) {
	err := db.GetWriteDB(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", seenAt).Error
	if err != nil {
		logging.L().Warnf("last_seen update failed for user %d: %v", userID, err)
	}
}

// StartLastSeenWorkers запускает воркеры, сливающие очередь heartbeat-ов в БД
func StartLastSeenWorkers(ctx context.Context) {
	for i := 0; i < lastSeenWorkerCount; i++ {
		go lastSeenWorker(ctx, i)
	}
}

func lastSeenWorker(ctx context.Context, workerID int) {
	logging.L().Infof("last_seen worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			logging.L().Infof("last_seen worker %d stopping", workerID)
			return
		default:
			result, err := RedisClient.BLPop(ctx, 5*time.Second, lastSeenQueue).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				logging.L().Warnf("last_seen worker %d error getting task: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			var task LastSeenTask
			if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
				logging.L().Warnf("last_seen worker %d dropping malformed task: %v", workerID, err)
				continue
			}
			if task.UserID <= 0 {
				continue
			}

			writeLastSeen(ctx, task.UserID, time.Unix(task.SeenAt, 0))
		}
	}
}
