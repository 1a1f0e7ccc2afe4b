package syncer

import (
	"context"
	"log/slog"
	"time"
)

// Default poll intervals per watcher.
const (
	RequestInterval     = time.Second
	NegotiationInterval = time.Second
	FeedInterval        = 2 * time.Second
	InboxInterval       = time.Second
	ArrivalInterval     = 3 * time.Second
	PaymentInterval     = 2 * time.Second
)

// Loop ticks w immediately and then every interval until ctx is done. A key
// received on changes triggers an extra tick; changes may be nil. Tick errors
// are logged and the loop keeps running.
func Loop(ctx context.Context, interval time.Duration, w Watcher, changes <-chan string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = RequestInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		if err := w.Tick(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("sync tick failed", "error", err)
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			tick()
		}
	}
}
