package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"anonchat/config"
	"anonchat/logging"

	"github.com/go-redis/redis/v8"
)

const (
	presenceSetKey     = "presence:online"
	presenceEventsKey  = "presence:events"
	PresenceEventJoin  = "join"
	PresenceEventLeave = "leave"
)

// PresenceEvent - дельта канала присутствия (join/leave)
type PresenceEvent struct {
	Event    string `json:"event"`
	UserID   int64  `json:"user_id"`
	OnlineAt int64  `json:"online_at"`
}

// OnlineProvider - узкий read-only интерфейс над множеством онлайн-пользователей.
// Источник всегда серверный, список от клиента не принимается.
type OnlineProvider interface {
	OnlineUserIDs(ctx context.Context) ([]int64, error)
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

// PresenceService - канал присутствия поверх Redis: ZSET с временем последнего
// track как score плюс pub/sub с дельтами join/leave. Полное состояние (sync)
// читается диапазоном по score.
type PresenceService struct {
	client *redis.Client
	window time.Duration
}

// Lua скрипты: track/untrack атомарно обновляют ZSET и публикуют дельту,
// чтобы join не дублировался при обновлении score живой сессии
var (
	trackScript = `
		local set_key = KEYS[1]
		local events_key = KEYS[2]
		local user_id = ARGV[1]
		local now = tonumber(ARGV[2])

		local existed = redis.call('ZSCORE', set_key, user_id)
		redis.call('ZADD', set_key, now, user_id)

		if not existed then
			local event = cjson.encode({event = 'join', user_id = tonumber(user_id), online_at = now})
			redis.call('PUBLISH', events_key, event)
			return 1
		end
		return 0
	`

	untrackScript = `
		local set_key = KEYS[1]
		local events_key = KEYS[2]
		local user_id = ARGV[1]
		local now = tonumber(ARGV[2])

		local removed = redis.call('ZREM', set_key, user_id)
		if removed == 1 then
			local event = cjson.encode({event = 'leave', user_id = tonumber(user_id), online_at = now})
			redis.call('PUBLISH', events_key, event)
		end
		return removed
	`

	sweepScript = `
		local set_key = KEYS[1]
		local events_key = KEYS[2]
		local cutoff = tonumber(ARGV[1])
		local now = tonumber(ARGV[2])

		local stale = redis.call('ZRANGEBYSCORE', set_key, '-inf', cutoff)
		for i, user_id in ipairs(stale) do
			redis.call('ZREM', set_key, user_id)
			local event = cjson.encode({event = 'leave', user_id = tonumber(user_id), online_at = now})
			redis.call('PUBLISH', events_key, event)
		end
		return #stale
	`
)

var (
	trackSHA   string
	untrackSHA string
	sweepSHA   string
)

// NewPresenceService создает сервис присутствия и загружает Lua скрипты
func NewPresenceService(client *redis.Client) (*PresenceService, error) {
	service := &PresenceService{
		client: client,
		window: config.OnlineThreshold(),
	}

	ctx := context.Background()
	var err error
	if trackSHA, err = client.ScriptLoad(ctx, trackScript).Result(); err != nil {
		return nil, fmt.Errorf("failed to load track script: %w", err)
	}
	if untrackSHA, err = client.ScriptLoad(ctx, untrackScript).Result(); err != nil {
		return nil, fmt.Errorf("failed to load untrack script: %w", err)
	}
	if sweepSHA, err = client.ScriptLoad(ctx, sweepScript).Result(); err != nil {
		return nil, fmt.Errorf("failed to load sweep script: %w", err)
	}

	return service, nil
}

// Track регистрирует присутствие пользователя. Повторный вызов живой сессии
// только обновляет score и дельту join не публикует.
func (s *PresenceService) Track(ctx context.Context, userID int64) error {
	now := time.Now().Unix()
	return s.client.EvalSha(ctx, trackSHA,
		[]string{presenceSetKey, presenceEventsKey},
		strconv.FormatInt(userID, 10), now).Err()
}

// Untrack снимает присутствие и публикует leave
func (s *PresenceService) Untrack(ctx context.Context, userID int64) error {
	now := time.Now().Unix()
	return s.client.EvalSha(ctx, untrackSHA,
		[]string{presenceSetKey, presenceEventsKey},
		strconv.FormatInt(userID, 10), now).Err()
}

// OnlineUserIDs возвращает полное состояние канала (sync)
func (s *PresenceService) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	min := strconv.FormatInt(time.Now().Add(-s.window).Unix(), 10)
	members, err := s.client.ZRangeByScore(ctx, presenceSetKey, &redis.ZRangeBy{
		Min: min,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read online set: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			logging.L().Warnf("presence: dropping malformed member %q", member)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsOnline проверяет членство в живом множестве
func (s *PresenceService) IsOnline(ctx context.Context, userID int64) (bool, error) {
	score, err := s.client.ZScore(ctx, presenceSetKey, strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Unix(int64(score), 0).After(time.Now().Add(-s.window)), nil
}

// Sweep убирает протухшие записи и публикует leave за каждую
func (s *PresenceService) Sweep(ctx context.Context) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-s.window).Unix()
	removed, err := s.client.EvalSha(ctx, sweepSHA,
		[]string{presenceSetKey, presenceEventsKey},
		cutoff, now.Unix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("presence sweep failed: %w", err)
	}
	return removed, nil
}

// Subscribe слушает дельты join/leave. Сырой payload валидируется на границе,
// битые сообщения отбрасываются.
func (s *PresenceService) Subscribe(ctx context.Context, handler func(PresenceEvent)) error {
	pubsub := s.client.Subscribe(ctx, presenceEventsKey)
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to presence events: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event PresenceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.L().Warnf("presence: dropping malformed event: %v", err)
					continue
				}
				if event.UserID <= 0 || (event.Event != PresenceEventJoin && event.Event != PresenceEventLeave) {
					logging.L().Warnf("presence: dropping event with bad shape: %+v", event)
					continue
				}
				handler(event)
			}
		}
	}()
	return nil
}

// IsUserOnline - fallback-предикат по last_seen_at, когда живого канала нет
func IsUserOnline(lastSeenAt *time.Time) bool {
	if lastSeenAt == nil {
		return false
	}
	return time.Since(*lastSeenAt) <= config.OnlineThreshold()
}

// LastSeenText - человекочитаемый статус для оффлайн-собеседника
func LastSeenText(lastSeenAt *time.Time) string {
	if lastSeenAt == nil {
		return "Never seen"
	}
	diff := time.Since(*lastSeenAt)
	minutes := int(diff.Minutes())
	hours := int(diff.Hours())
	days := hours / 24

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("Seen %d min ago", minutes)
	case hours < 24:
		return fmt.Sprintf("Seen %dh ago", hours)
	case days == 1:
		return "Seen yesterday"
	default:
		return fmt.Sprintf("Seen %d days ago", days)
	}
}
