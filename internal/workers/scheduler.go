package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/queue"
)

// runOffset delays the nightly run past midnight so clock skew between hosts
// cannot land it on the previous day
const runOffset = time.Minute

// TenantLister returns tenants that have habits to maintain
type TenantLister interface {
	Tenants(ctx context.Context) ([]uuid.UUID, error)
}

// Scheduler enqueues ensure_daily_records jobs for every tenant shortly after
// local midnight
type Scheduler struct {
	tenants  TenantLister
	jobQueue queue.JobQueue
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

// NewScheduler creates a new scheduler. Midnight is computed in loc.
func NewScheduler(tenants TenantLister, jobQueue queue.JobQueue, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tenants:  tenants,
		jobQueue: jobQueue,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}
}

// NextRun returns the first run time strictly after now
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	// time.Date normalises day overflow and resolves DST gaps
	run := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).Add(runOffset)
	if !run.After(now) {
		run = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, s.loc).Add(runOffset)
	}
	return run
}

// ScheduleDay enqueues one ensure_daily_records job per tenant for the
// calendar day of day. A failed tenant does not stop the others.
func (s *Scheduler) ScheduleDay(ctx context.Context, day time.Time) (int, error) {
	tenantIDs, err := s.tenants.Tenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants: %w", err)
	}

	day = calendar.Today(day.In(s.loc))
	dayKey := calendar.Key(day)
	// the job is useless once its day is over
	y, m, d := day.Date()
	notAfter := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)

	var (
		scheduled int
		errs      []error
	)
	for _, tenantID := range tenantIDs {
		job := queue.NewJob(queue.JobTypeEnsureDailyRecords, tenantID, dayKey)
		job.NotAfter = &notAfter
		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("failed_to_schedule_daily_records_job",
				zap.String("tenant_id", tenantID.String()),
				zap.String("day", dayKey),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		scheduled++
	}

	s.logger.Info("scheduled_daily_records_jobs",
		zap.String("day", dayKey),
		zap.Int("tenant_count", len(tenantIDs)),
		zap.Int("scheduled", scheduled),
	)
	return scheduled, errors.Join(errs...)
}

// Run schedules today's jobs immediately, then once per day after midnight,
// until ctx is cancelled. Rows are created idempotently, so the catch-up run
// at start is safe to repeat.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runOnce(ctx)
	for {
		now := s.now()
		next := s.NextRun(now)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(now)):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.ScheduleDay(ctx, s.now()); err != nil {
		s.logger.Error("daily_records_scheduling_failed", zap.Error(err))
	}
}
