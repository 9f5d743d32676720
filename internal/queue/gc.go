package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Hour
	sweepTimeout         = 2 * time.Minute
)

// GarbageCollector periodically drops dead-lettered habit jobs older than
// retention. A refresh or ensure-day job that has sat in the DLQ that long
// refers to a day the scheduler has already moved past.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a collector. A non-positive interval sweeps hourly.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, log *zap.Logger) *GarbageCollector {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &GarbageCollector{purger: purger, interval: interval, retention: retention, log: log}
}

// Start sweeps once immediately, then every interval until ctx is done.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweep(ctx)

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweep(ctx)
		}
	}
}

func (gc *GarbageCollector) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := gc.collect(ctx); err != nil {
		gc.log.Error("dlq_gc_failed", zap.Error(err))
	}
}

// collect purges expired DLQ messages and returns how many were removed.
func (gc *GarbageCollector) collect(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return 0, fmt.Errorf("failed to purge DLQ: %w", err)
	}
	if n > 0 {
		gc.log.Info("dlq_gc_purged_jobs", zap.Int("count", n), zap.Duration("retention", gc.retention))
	}
	return n, nil
}
