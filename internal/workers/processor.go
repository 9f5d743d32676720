package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/queue"
)

// HabitRefresher is the part of the habit service the processor drives
type HabitRefresher interface {
	EnsureDay(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error)
	Refresh(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error)
}

// Processor handles queued habit jobs
type Processor struct {
	habits   HabitRefresher
	jobQueue queue.JobQueue // for re-enqueueing retries with a delay
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewProcessor creates a new processor. Job days are interpreted in loc.
func NewProcessor(habits HabitRefresher, jobQueue queue.JobQueue, loc *time.Location, logger *zap.Logger) *Processor {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		habits:   habits,
		jobQueue: jobQueue,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessJob processes a job based on its type and settles the message.
// The returned error is for logging; the message is already acked or nacked.
func (p *Processor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if job == nil {
		if err := msg.Nack(false); err != nil {
			p.logger.Warn("failed_to_nack_empty_message", zap.Error(err))
		}
		return errors.New("message carries no job")
	}

	now := p.now().In(p.loc)
	if job.NotAfter != nil && now.After(*job.NotAfter) {
		p.logger.Info("dropped_expired_job", jobFields(job)...)
		return p.nack(msg, job, false)
	}
	if !job.ShouldProcessAt(now) {
		return p.requeueLater(ctx, msg, job)
	}

	var err error
	switch job.Type {
	case queue.JobTypeEnsureDailyRecords:
		err = p.ensureDailyRecords(ctx, job)
	case queue.JobTypeRefreshPending:
		err = p.refreshPending(ctx, job, now)
	default:
		_ = p.nack(msg, job, false) // unknown job type, send to DLQ
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err != nil {
		return p.handleJobError(ctx, msg, job, err, now)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// ensureDailyRecords creates the tenant's rows for the job's day, even when
// the job runs late.
func (p *Processor) ensureDailyRecords(ctx context.Context, job *queue.Job) error {
	day, err := p.jobDay(job)
	if err != nil {
		return err
	}
	created, err := p.habits.EnsureDay(ctx, job.TenantID, day)
	if err != nil {
		return err
	}
	p.logger.Info("ensured_daily_records",
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("day", calendar.Key(day)),
		zap.Int64("created", created),
	)
	return nil
}

// refreshPending recomputes the cached pending list. Refreshes for a day that
// has already passed are skipped.
func (p *Processor) refreshPending(ctx context.Context, job *queue.Job, now time.Time) error {
	if job.Day != "" && job.Day != calendar.Key(now) {
		p.logger.Debug("skipped_stale_refresh", jobFields(job)...)
		return nil
	}
	entries, err := p.habits.Refresh(ctx, job.TenantID, now)
	if err != nil {
		return err
	}
	p.logger.Debug("refreshed_pending",
		zap.String("tenant_id", job.TenantID.String()),
		zap.Int("pending_count", len(entries)),
	)
	return nil
}

func (p *Processor) jobDay(job *queue.Job) (time.Time, error) {
	if job.Day == "" {
		return calendar.Today(p.now().In(p.loc)), nil
	}
	day, ok := calendar.ParseString(job.Day, p.loc)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: invalid day %q", errPermanent, job.Day)
	}
	return day, nil
}

// errPermanent marks failures a retry cannot fix
var errPermanent = errors.New("permanent job failure")

// requeueLater puts a job that is not due yet back on the queue
func (p *Processor) requeueLater(ctx context.Context, msg queue.MessageInterface, job *queue.Job) error {
	if p.jobQueue != nil {
		if err := p.jobQueue.Enqueue(ctx, job); err == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Warn("failed_to_ack_deferred_job", append(jobFields(job), zap.Error(ackErr))...)
			}
			return nil
		}
	}
	return p.nack(msg, job, true)
}

// handleJobError retries with backoff while the job allows it, then
// dead-letters it
func (p *Processor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, now time.Time) error {
	if errors.Is(err, errPermanent) || !job.CanRetry() {
		p.logger.Error("job_failed_sending_to_dlq",
			append(jobFields(job), zap.Int("retry_count", job.RetryCount), zap.Error(err))...,
		)
		_ = p.nack(msg, job, false)
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	next := job.Retry(now)
	p.logger.Warn("job_failed_will_retry",
		append(jobFields(job),
			zap.Int("attempt", next.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Time("not_before", *next.NotBefore),
			zap.Error(err),
		)...,
	)

	if p.jobQueue != nil {
		enqueueErr := p.jobQueue.Enqueue(ctx, next)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Warn("failed_to_ack_retried_job", append(jobFields(job), zap.Error(ackErr))...)
			}
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		p.logger.Warn("failed_to_reenqueue_job", append(jobFields(job), zap.Error(enqueueErr))...)
	}

	// no delayed retry available; fall back to an immediate requeue
	_ = p.nack(msg, job, true)
	return fmt.Errorf("job failed (will retry): %w", err)
}

func (p *Processor) nack(msg queue.MessageInterface, job *queue.Job, requeue bool) error {
	if err := msg.Nack(requeue); err != nil {
		p.logger.Warn("failed_to_nack_job", append(jobFields(job), zap.Bool("requeue", requeue), zap.Error(err))...)
		return err
	}
	return nil
}

func jobFields(job *queue.Job) []zap.Field {
	return []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("day", job.Day),
	}
}
