// Package pruner trims the processed-update ledger on a cron schedule.
package pruner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/feedbackrelay/internal/store"
)

// Pruner deletes ledger entries older than ttl at every tick of schedule.
type Pruner struct {
	store    store.UpdateStore
	schedule string
	ttl      time.Duration
	now      func() time.Time
}

// New validates schedule (standard 5-field cron) and returns a Pruner.
func New(s store.UpdateStore, schedule string, ttl time.Duration) (*Pruner, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid prune schedule %q", schedule)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("prune ttl must be positive, got %s", ttl)
	}
	return &Pruner{store: s, schedule: schedule, ttl: ttl, now: time.Now}, nil
}

// Next returns the next run time strictly after ref.
func (p *Pruner) Next(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(p.schedule, ref, false)
}

// RunOnce prunes entries older than ttl relative to now.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.ttl)
	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	slog.Debug("ledger.pruned", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	return n, nil
}

// Run blocks until ctx is done, pruning at each scheduled tick.
// Prune failures are logged and retried at the next tick.
func (p *Pruner) Run(ctx context.Context) error {
	slog.Info("ledger pruner started", "schedule", p.schedule, "ttl", p.ttl)
	for {
		next, err := p.Next(p.now())
		if err != nil {
			return fmt.Errorf("compute next prune: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := p.RunOnce(ctx); err != nil {
			slog.Warn("ledger.prune_failed", "error", err)
		}
	}
}
