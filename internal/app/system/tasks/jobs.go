// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/hirehub/internal/app/store/oauthstate"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"go.uber.org/zap"
)

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// Sweeper is anything holding per-key state that can be pruned.
type Sweeper interface {
	Sweep(now time.Time) int
}

// RateLimitSweepJob prunes idle rate-limit buckets.
func RateLimitSweepJob(logger *zap.Logger, sweepers ...Sweeper) Job {
	return Job{
		Name:     "ratelimit-sweep",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			now := time.Now()
			n := 0
			for _, s := range sweepers {
				n += s.Sweep(now)
			}
			if n > 0 {
				logger.Debug("pruned idle rate-limit buckets", zap.Int("count", n))
			}
			return nil
		},
	}
}

// LinearSyncRetryJob pushes projects and tasks whose last Linear sync failed.
// A zero interval disables the job.
func LinearSyncRetryJob(svc *linearsync.Service, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "linear-sync-retry",
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := svc.RetryFailed(ctx)
			if err != nil {
				return err
			}
			if res.Attempted > 0 {
				logger.Info("retried failed Linear syncs",
					zap.Int("attempted", res.Attempted),
					zap.Int("succeeded", res.Succeeded))
			}
			return nil
		},
	}
}
