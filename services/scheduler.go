package services

import (
	"context"

	"anonchat/logging"

	"github.com/robfig/cron/v3"
)

// StartScheduler регистрирует фоновые задачи обслуживания.
// Остановка через возвращенный cron.Cron.
func StartScheduler(ctx context.Context, rateLimits *RateLimitService, presence *PresenceService, unread *UnreadCounterService) *cron.Cron {
	c := cron.New()

	_, _ = c.AddFunc("@every 5m", func() {
		purged, err := rateLimits.PurgeExpired(ctx)
		if err != nil {
			logging.L().Warnf("rate limit purge failed: %v", err)
			return
		}
		if purged > 0 {
			logging.L().Infof("purged %d expired rate limit rows", purged)
		}
	})

	if presence != nil {
		_, _ = c.AddFunc("@every 1m", func() {
			removed, err := presence.Sweep(ctx)
			if err != nil {
				logging.L().Warnf("presence sweep failed: %v", err)
				return
			}
			if removed > 0 {
				logging.L().Infof("swept %d stale presence members", removed)
			}
		})
	}

	if unread != nil {
		_, _ = c.AddFunc("@every 10m", func() {
			if err := unread.Resync(ctx); err != nil {
				logging.L().Warnf("unread resync failed: %v", err)
			}
		})
	}

	c.Start()
	return c
}
