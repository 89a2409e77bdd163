package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/mangomango3x/Discord-fact-check/internal/backup"
	"github.com/mangomango3x/Discord-fact-check/internal/patterns"
	"github.com/mangomango3x/Discord-fact-check/internal/ratelimit"
)

// Job names.
const (
	JobPrunePatterns   = "prune-patterns"
	JobFlushRateLimits = "flush-ratelimits"
	JobBackup          = "backup-sqlite"
)

// PruneJob removes pattern entries not seen within maxAge.
func PruneJob(store *patterns.Store, maxAge time.Duration) JobFunc {
	return func(ctx context.Context) error {
		_, err := store.Prune(ctx, maxAge)
		return err
	}
}

// FlushJob drops expired rate-limit identities and persists what is left.
func FlushJob(limiters ...*ratelimit.Limiter) JobFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, l := range limiters {
			l.Sweep()
			if err := l.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// BackupJob writes a sqlite snapshot and applies retention.
func BackupJob(svc *backup.Service) JobFunc {
	return func(ctx context.Context) error {
		_, err := svc.Snapshot(ctx)
		return err
	}
}
