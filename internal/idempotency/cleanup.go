package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/utsavhq/vendormatch/internal/jobs"
)

// DefaultExpiry is how long a stored response stays replayable. Clients are
// expected to retry well inside this window.
const DefaultExpiry = 24 * time.Hour

// CleanupOldKeys deletes records older than expiry and reports how many were
// removed.
func CleanupOldKeys(ctx context.Context, repo Repository, expiry time.Duration) (int64, error) {
	deleted, err := repo.DeleteOlderThan(ctx, expiry)
	if err != nil {
		slog.ErrorContext(ctx, "idempotency cleanup failed", "error", err)
		return 0, err
	}
	if deleted > 0 {
		slog.InfoContext(ctx, "expired idempotency keys removed", "deleted", deleted, "older_than", expiry)
	}
	return deleted, nil
}

// RunPeriodicCleanup deletes expired records on start and then every
// interval, blocking until ctx is canceled. Cycles are reported to metrics;
// a nil metrics disables reporting.
func RunPeriodicCleanup(ctx context.Context, repo Repository, interval, expiry time.Duration, metrics *jobs.Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle := func() {
		start := time.Now()
		_, err := CleanupOldKeys(ctx, repo, expiry)
		metrics.ObserveJobDuration(jobs.JobTypeIdempotencyCleanup, time.Since(start).Seconds())
		if err != nil {
			metrics.IncJobsTotal(jobs.JobTypeIdempotencyCleanup, jobs.StatusFailure)
			metrics.IncJobErrors(jobs.JobTypeIdempotencyCleanup, "store_error")
			return
		}
		metrics.IncJobsTotal(jobs.JobTypeIdempotencyCleanup, jobs.StatusSuccess)
	}

	// The first pass runs right away so a long interval cannot delay it.
	cycle()

	for {
		select {
		case <-ticker.C:
			cycle()
		case <-ctx.Done():
			slog.Info("idempotency cleanup stopped")
			return
		}
	}
}
