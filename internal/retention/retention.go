// Package retention sweeps old events out of the log on a fixed interval.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohsaqr/designtrace/internal/store"
)

const sweepInterval = 6 * time.Hour

// StartWorker runs a background goroutine that periodically purges events
// older than the retention window. A zero retention disables the worker;
// the event log is then append-only forever.
func StartWorker(ctx context.Context, repo store.Repository, retention time.Duration) {
	if retention <= 0 {
		slog.Info("Event retention disabled, keeping events forever")
		return
	}

	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", sweepInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, repo store.Repository, retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	deleted, err := repo.PurgeEventsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Retention sweep purged events", "deleted", deleted, "cutoff", cutoff)
	}
}
