// Package maintenance runs periodic background tasks as Go tickers.
// All scheduled housekeeping is driven from the API process since it is
// already a persistent, long-running service (required for LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // Sent/failed outbox rows + webhook ledger
	ExpiryInterval  time.Duration // Abandoned pending payments
	RequeueInterval time.Duration // Outbox rows stuck in 'sending'
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 6 * time.Hour,
		ExpiryInterval:  1 * time.Hour,
		RequeueInterval: 5 * time.Minute,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, db Execer, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"expiry", cfg.ExpiryInterval,
		"requeue", cfg.RequeueInterval)

	tickers := make([]*time.Ticker, 0, 3)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	schedule := func(interval time.Duration, name string, tasks []Task) {
		if interval <= 0 {
			return
		}
		t := time.NewTicker(interval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() {
			if _, err := RunTasks(ctx, db, tasks, logger); err != nil {
				logger.Warn("Maintenance run incomplete", "loop", name, "error", err)
			}
		})
	}
	schedule(cfg.CleanupInterval, "cleanup", cleanupTasks)
	schedule(cfg.ExpiryInterval, "expiry", expiryTasks)
	schedule(cfg.RequeueInterval, "requeue", requeueTasks)

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
