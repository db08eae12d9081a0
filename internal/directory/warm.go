package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/utsavhq/vendormatch/internal/jobs"
)

// RunPeriodicWarm rebuilds the cached snapshot from the repository at the
// given interval. Write invalidations and TTL expiry both leave the cache
// cold, and the next match request pays the full database read; the warm
// loop keeps that read off the request path. This function blocks and should
// typically be run in a goroutine. It will continue running until the
// provided context is canceled. Each cycle is recorded against metrics; a
// nil metrics disables reporting.
func RunPeriodicWarm(ctx context.Context, repo Repository, cache *SnapshotCache, interval time.Duration, metrics *jobs.Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle := func() {
		start := time.Now()
		vendors, err := repo.Snapshot(ctx)
		if err == nil {
			cache.Set(ctx, vendors)
		}
		metrics.ObserveJobDuration(jobs.JobTypeSnapshotWarm, time.Since(start).Seconds())
		if err != nil {
			metrics.IncJobsTotal(jobs.JobTypeSnapshotWarm, jobs.StatusFailure)
			metrics.IncJobErrors(jobs.JobTypeSnapshotWarm, "snapshot_error")
			slog.Error("snapshot warm failed", "error", err)
			return
		}
		metrics.IncJobsTotal(jobs.JobTypeSnapshotWarm, jobs.StatusSuccess)
	}

	// Warm immediately on start
	cycle()

	for {
		select {
		case <-ticker.C:
			cycle()
		case <-ctx.Done():
			slog.Info("stopping snapshot warm")
			return
		}
	}
}
