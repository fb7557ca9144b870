package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsUserOnlineThreshold(t *testing.T) {
	assert.False(t, IsUserOnline(nil))

	recent := time.Now().Add(-3 * time.Minute)
	assert.True(t, IsUserOnline(&recent))

	edge := time.Now().Add(-4*time.Minute - 59*time.Second)
	assert.True(t, IsUserOnline(&edge))

	stale := time.Now().Add(-10 * time.Minute)
	assert.False(t, IsUserOnline(&stale))
}

func TestLastSeenText(t *testing.T) {
	assert.Equal(t, "Never seen", LastSeenText(nil))

	now := time.Now()
	assert.Equal(t, "Just now", LastSeenText(&now))

	tenMinutes := time.Now().Add(-10*time.Minute - time.Second)
	assert.Equal(t, "Seen 10 min ago", LastSeenText(&tenMinutes))

	threeHours := time.Now().Add(-3*time.Hour - time.Second)
	assert.Equal(t, "Seen 3h ago", LastSeenText(&threeHours))

	yesterday := time.Now().Add(-25 * time.Hour)
	assert.Equal(t, "Seen yesterday", LastSeenText(&yesterday))

	threeDays := time.Now().Add(-73 * time.Hour)
	assert.Equal(t, "Seen 3 days ago", LastSeenText(&threeDays))
}
