package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"anonchat/logging"

	"github.com/go-redis/redis/v8"
)

// TypingPayload - эфемерный сигнал набора текста, никогда не сохраняется
type TypingPayload struct {
	ConversationID int64 `json:"conversation_id"`
	UserID         int64 `json:"user_id"`
	SentAt         int64 `json:"sent_at"`
}

// TypingTransport абстрагирует доставку сигналов набора; в тестах
// заменяется in-process реализацией
type TypingTransport interface {
	Publish(ctx context.Context, payload TypingPayload) error
	Subscribe(ctx context.Context, conversationID int64, handler func(TypingPayload)) (stop func(), err error)
}

// RedisTypingTransport гоняет сигналы через pub/sub канал диалога
type RedisTypingTransport struct {
	client *redis.Client
}

func NewRedisTypingTransport(client *redis.Client) *RedisTypingTransport {
	return &RedisTypingTransport{client: client}
}

func typingChannel(conversationID int64) string {
	return fmt.Sprintf("typing:%d", conversationID)
}

func (t *RedisTypingTransport) Publish(ctx context.Context, payload TypingPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, typingChannel(payload.ConversationID), data).Err()
}

func (t *RedisTypingTransport) Subscribe(ctx context.Context, conversationID int64, handler func(TypingPayload)) (func(), error) {
	pubsub := t.client.Subscribe(ctx, typingChannel(conversationID))
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to typing channel: %w", err)
	}

	done := make(chan struct{})
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var payload TypingPayload
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
					logging.L().Warnf("typing: dropping malformed payload: %v", err)
					continue
				}
				if payload.UserID <= 0 || payload.ConversationID != conversationID {
					continue
				}
				handler(payload)
			}
		}
	}()

	stop := func() {
		close(done)
		_ = pubsub.Close()
	}
	return stop, nil
}

// TypingSender - отправляющая сторона с debounce: слишком частые вызовы
// не публикуются сразу, а переносятся, не теряясь
type TypingSender struct {
	mu        sync.Mutex
	transport TypingTransport
	payload   TypingPayload
	debounce  time.Duration
	lastSent  time.Time
	pending   *time.Timer
}

func NewTypingSender(transport TypingTransport, conversationID, userID int64, debounce time.Duration) *TypingSender {
	return &TypingSender{
		transport: transport,
		payload:   TypingPayload{ConversationID: conversationID, UserID: userID},
		debounce:  debounce,
	}
}

// Typing публикует сигнал, если debounce-окно прошло; иначе планирует
// отложенную публикацию, не дублируя уже запланированную
func (s *TypingSender) Typing() {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastSent) < s.debounce {
		if s.pending == nil {
			s.pending = time.AfterFunc(s.debounce, func() {
				s.mu.Lock()
				s.pending = nil
				s.mu.Unlock()
				s.Typing()
			})
		}
		s.mu.Unlock()
		return
	}
	s.lastSent = now
	payload := s.payload
	payload.SentAt = now.Unix()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.transport.Publish(ctx, payload); err != nil {
		logging.L().Warnf("typing publish failed: %v", err)
	}
}

// Stop отменяет отложенную публикацию. Событие "перестал печатать"
// не шлется: индикатор у получателя гаснет сам по таймауту.
func (s *TypingSender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// TypingIndicator - принимающая сторона: каждый сигнал продлевает индикатор,
// тишина дольше таймаута гасит его без дополнительного события
type TypingIndicator struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	typing   bool
	onChange func(bool)
}

func NewTypingIndicator(timeout time.Duration, onChange func(bool)) *TypingIndicator {
	return &TypingIndicator{timeout: timeout, onChange: onChange}
}

// Touch вызывается на каждый входящий сигнал от собеседника
func (i *TypingIndicator) Touch() {
	i.mu.Lock()
	changed := !i.typing
	i.typing = true
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(i.timeout, i.expire)
	i.mu.Unlock()

	if changed && i.onChange != nil {
		i.onChange(true)
	}
}

func (i *TypingIndicator) expire() {
	i.mu.Lock()
	changed := i.typing
	i.typing = false
	i.timer = nil
	i.mu.Unlock()

	if changed && i.onChange != nil {
		i.onChange(false)
	}
}

func (i *TypingIndicator) IsTyping() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.typing
}

// Cancel останавливает таймер при закрытии сессии
func (i *TypingIndicator) Cancel() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.typing = false
}
