package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatDefaultsWithoutConfig(t *testing.T) {
	saved := AppConfig
	AppConfig = nil
	defer func() { AppConfig = saved }()

	assert.Equal(t, 10*time.Second, RateLimitWindow())
	assert.Equal(t, 5*time.Minute, OnlineThreshold())
	assert.Equal(t, 300*time.Millisecond, TypingDebounce())
	assert.Equal(t, 1500*time.Millisecond, TypingTimeout())
	assert.Equal(t, 30*time.Second, HeartbeatInterval())
}

func TestChatOverrides(t *testing.T) {
	saved := AppConfig
	defer func() { AppConfig = saved }()

	conf := &ConfigSchema{}
	conf.Chat.RateLimitSeconds = 30
	conf.Chat.OnlineThresholdMinutes = 2
	conf.Chat.TypingDebounceMs = 500
	conf.Chat.TypingTimeoutMs = 3000
	conf.Chat.HeartbeatSeconds = 15
	AppConfig = conf

	assert.Equal(t, 30*time.Second, RateLimitWindow())
	assert.Equal(t, 2*time.Minute, OnlineThreshold())
	assert.Equal(t, 500*time.Millisecond, TypingDebounce())
	assert.Equal(t, 3*time.Second, TypingTimeout())
	assert.Equal(t, 15*time.Second, HeartbeatInterval())
}
