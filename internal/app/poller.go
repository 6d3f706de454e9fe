package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fulfil/internal/engine"
)

const defaultPollInterval = 30 * time.Second

// StartPoller launches a background goroutine that refreshes the record store
// at a fixed cadence. It returns immediately. The store keeps the last good
// snapshot on failure, so a flaky database only delays updates.
func StartPoller(ctx context.Context, eng *engine.Engine, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := eng.Poll(ctx); err != nil {
				snap := eng.Store().Snapshot()
				logger.Warn("poll failed",
					zap.Error(err),
					zap.Int("consecutive_failures", snap.ConsecutiveFailures))
			}
		}
	}()
}
