package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"anonchat/db"
	"anonchat/logging"
	"anonchat/models"

	"github.com/go-redis/redis/v8"
)

// UnreadCounterService кеширует счетчики непрочитанных в Redis:
// hash на пользователя, поле - ID диалога. Кеш восстановим из БД,
// поэтому при промахе или недоступном Redis авторитетен пересчет.
type UnreadCounterService struct {
	client *redis.Client
}

var incrUnreadScript = `
	local key = KEYS[1]
	local field = ARGV[1]
	local count = redis.call('HINCRBY', key, field, 1)
	redis.call('EXPIRE', key, 86400)
	return count
`

var incrUnreadSHA string

func NewUnreadCounterService(client *redis.Client) (*UnreadCounterService, error) {
	var err error
	incrUnreadSHA, err = client.ScriptLoad(context.Background(), incrUnreadScript).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load unread script: %w", err)
	}
	return &UnreadCounterService{client: client}, nil
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("unread:%d", userID)
}

// Incr увеличивает счетчик получателя после записи сообщения
func (s *UnreadCounterService) Incr(ctx context.Context, userID, conversationID int64) {
	err := s.client.EvalSha(ctx, incrUnreadSHA,
		[]string{unreadKey(userID)},
		strconv.FormatInt(conversationID, 10)).Err()
	if err != nil {
		logging.L().Warnf("unread incr failed for user %d: %v", userID, err)
	}
}

// Reset обнуляет счетчик после mark-read
func (s *UnreadCounterService) Reset(ctx context.Context, userID, conversationID int64) {
	err := s.client.HDel(ctx, unreadKey(userID),
		strconv.FormatInt(conversationID, 10)).Err()
	if err != nil {
		logging.L().Warnf("unread reset failed for user %d: %v", userID, err)
	}
}

// Get возвращает счетчик из кеша; false - промах, нужен пересчет из БД
func (s *UnreadCounterService) Get(ctx context.Context, userID, conversationID int64) (int64, bool) {
	val, err := s.client.HGet(ctx, unreadKey(userID),
		strconv.FormatInt(conversationID, 10)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

// Set заполняет кеш после пересчета из БД
func (s *UnreadCounterService) Set(ctx context.Context, userID, conversationID, count int64) {
	key := unreadKey(userID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(conversationID, 10), count)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.L().Warnf("unread set failed for user %d: %v", userID, err)
	}
}

// Resync сверяет закешированные счетчики с БД; расхождения перезаписываются
func (s *UnreadCounterService) Resync(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, "unread:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		userID, err := strconv.ParseInt(key[len("unread:"):], 10, 64)
		if err != nil {
			continue
		}

		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			continue
		}
		for field := range fields {
			conversationID, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				continue
			}
			count, err := CountUnread(ctx, userID, conversationID)
			if err != nil {
				continue
			}
			s.Set(ctx, userID, conversationID, count)
		}
	}
	return iter.Err()
}

// CountUnread - авторитетный пересчет непрочитанного из БД
func CountUnread(ctx context.Context, userID, conversationID int64) (int64, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = ?",
			conversationID, userID, false).
		Count(&count).Error
	return count, err
}
