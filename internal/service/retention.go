package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/octoberhq/concierge/internal/repository"
)

// Pruner enforces the activity-log retention window. It runs with the
// maintenance storage role since retention is a global policy, not a
// tenant-scoped one.
type Pruner struct {
	activity      repository.ActivityLogRepository
	retentionDays int
	clock         clockwork.Clock
	log           *zap.Logger
	interval      time.Duration
	retryBase     time.Duration
}

// NewPruner constructs a Pruner. The clock is injected for testability.
func NewPruner(activity repository.ActivityLogRepository, retentionDays int, clock clockwork.Clock, log *zap.Logger) *Pruner {
	return &Pruner{
		activity:      activity,
		retentionDays: retentionDays,
		clock:         clock,
		log:           log,
		interval:      24 * time.Hour,
		retryBase:     time.Second,
	}
}

// Prune deletes activity rows created strictly before now minus the
// retention window and returns the count. Transient storage errors are
// retried with exponential backoff; idempotent by construction.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.clock.Now().UTC().AddDate(0, 0, -p.retentionDays)

	var deleted int64
	backoff := retry.WithMaxRetries(3, retry.NewExponential(p.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := p.activity.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return retry.RetryableError(err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Run prunes once immediately and then on every interval tick until ctx is
// done. Failures are logged and retried on the next tick; they never take
// down the host process.
func (p *Pruner) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		n, err := p.Prune(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Error("retention prune failed", zap.Error(err))
		} else {
			p.log.Info("retention prune complete",
				zap.Int64("deleted", n),
				zap.Int("retentionDays", p.retentionDays),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
