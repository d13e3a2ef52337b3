package dispense

import (
	"context"
	"time"

	"becard/internal/logger"
)

// RunExpirySweeper expires open sessions older than ttl every interval until ctx is cancelled.
func RunExpirySweeper(ctx context.Context, svc Service, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("session sweeper started", "ttl", ttl.String(), "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if _, err := svc.ExpireStale(ctx, ttl); err != nil && ctx.Err() == nil {
				logger.Error("session sweep failed", "error", err)
			}
		}
	}
}
