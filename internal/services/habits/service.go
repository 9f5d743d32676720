// Package habits ties the cadence engine to storage, caching and the job queue.
package habits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/cache"
	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/queue"
	"github.com/benvon/smart-agenda/internal/registry"
	"github.com/benvon/smart-agenda/internal/services/cadence"
	"github.com/benvon/smart-agenda/internal/telemetry"
	"github.com/benvon/smart-agenda/internal/validation"
)

var (
	// ErrUnknownItem is returned for a (section, item) pair not in the registry
	ErrUnknownItem = errors.New("unknown habit item")
	// ErrInvalidConfig wraps recurrence config validation failures
	ErrInvalidConfig = errors.New("invalid recurrence config")
)

// refreshJobTTL bounds how long a queued refresh stays useful
const refreshJobTTL = time.Hour

// Service serves pending habits and records completions for tenants
type Service struct {
	repo     database.HabitRepositoryInterface
	registry *registry.Registry
	cache    cache.Cache
	queue    queue.JobQueue
	ttl      time.Duration
	log      *zap.Logger
	tracer   trace.Tracer
}

// Option configures a Service
type Option func(*Service)

// WithQueue enables refresh jobs after writes
func WithQueue(q queue.JobQueue) Option {
	return func(s *Service) { s.queue = q }
}

// WithTracer replaces the global application tracer
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a habit service. A nil cache disables caching.
func NewService(repo database.HabitRepositoryInterface, reg *registry.Registry, c cache.Cache, ttl time.Duration, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = registry.Default()
	}
	if c == nil {
		c = passthrough{}
	}
	s := &Service{
		repo:     repo,
		registry: reg,
		cache:    c,
		ttl:      ttl,
		log:      log,
		tracer:   telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the item catalogue the service validates against
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

func snapshotKey(tenantID uuid.UUID, day string) string {
	return cache.Key("snapshot", tenantID.String(), day)
}

func pendingKey(tenantID uuid.UUID, day string) string {
	return cache.Key("pending", tenantID.String(), day)
}

// Snapshot returns the tenant's habit snapshot for the day of now, read
// through the cache.
func (s *Service) Snapshot(ctx context.Context, tenantID uuid.UUID, now time.Time) (*models.HabitSnapshot, error) {
	today := calendar.Today(now)
	return cache.GetJSON(ctx, s.cache, snapshotKey(tenantID, calendar.Key(today)), s.ttl,
		func(ctx context.Context) (*models.HabitSnapshot, error) {
			snap, err := s.repo.Snapshot(ctx, tenantID, today)
			if err != nil {
				return nil, fmt.Errorf("failed to load habit snapshot: %w", err)
			}
			return snap, nil
		})
}

// Pending returns the habits still due in their current period. Items whose
// evaluation fails are included and flagged rather than hidden.
func (s *Service) Pending(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error) {
	day := calendar.Key(calendar.Today(now))
	ctx, span := s.tracer.Start(ctx, "habits.pending", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("day", day),
	))
	defer span.End()

	entries, err := cache.GetJSON(ctx, s.cache, pendingKey(tenantID, day), s.ttl,
		func(ctx context.Context) ([]models.PendingEntry, error) {
			return s.computePending(ctx, tenantID, now)
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pending failed")
		return nil, err
	}
	if entries == nil {
		entries = []models.PendingEntry{}
	}
	span.SetAttributes(attribute.Int("pending_count", len(entries)))
	return entries, nil
}

func (s *Service) computePending(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error) {
	snap, err := s.Snapshot(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	entries, failures := cadence.PendingItemsForToday(snap, s.registry, now)
	span := trace.SpanFromContext(ctx)
	for _, f := range failures {
		s.log.Warn("cadence_evaluation_failed_open",
			zap.String("tenant_id", tenantID.String()),
			zap.String("section", string(f.Section)),
			zap.String("item_id", f.ItemID),
			zap.Error(f.Err),
		)
		span.AddEvent("cadence.fail_open", trace.WithAttributes(
			attribute.String("section", string(f.Section)),
			attribute.String("item_id", f.ItemID),
			attribute.String("error", f.Err.Error()),
		))
	}
	return entries, nil
}

// Toggle sets today's completion flag for one item. Repeating a request is a
// no-op; changed reports whether the stored state moved.
func (s *Service) Toggle(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string, completed bool, now time.Time) (bool, error) {
	if !s.registry.Contains(section, itemID) {
		return false, fmt.Errorf("%w: %s/%s", ErrUnknownItem, section, itemID)
	}
	day := calendar.Key(calendar.Today(now))
	ctx, span := s.tracer.Start(ctx, "habits.toggle", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("section", string(section)),
		attribute.String("item_id", itemID),
		attribute.Bool("completed", completed),
	))
	defer span.End()

	// The snapshot only decides whether to invalidate; the write happens
	// regardless so a stale cache can never swallow a toggle.
	changed := true
	if snap, err := s.Snapshot(ctx, tenantID, now); err == nil {
		changed = cadence.ApplyToggle(snap, section, itemID, completed, now)
	} else {
		s.log.Warn("snapshot_load_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}

	if err := s.repo.SetCompletion(ctx, tenantID, section, itemID, day, completed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return false, fmt.Errorf("failed to record completion: %w", err)
	}
	span.SetAttributes(attribute.Bool("changed", changed))
	if changed {
		s.invalidate(ctx, tenantID, day)
		s.enqueueRefresh(ctx, tenantID, day, now)
	}
	return changed, nil
}

// SetConfig validates and stores the recurrence policy of one item.
// The stored config has its period defaulted from the type.
func (s *Service) SetConfig(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string, cfg models.RecurrenceConfig, now time.Time) (models.RecurrenceConfig, error) {
	if !s.registry.Contains(section, itemID) {
		return models.RecurrenceConfig{}, fmt.Errorf("%w: %s/%s", ErrUnknownItem, section, itemID)
	}
	if err := validation.ValidateRecurrenceConfig(cfg); err != nil {
		return models.RecurrenceConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg = cfg.WithDefaults()
	if err := s.repo.UpsertConfig(ctx, tenantID, section, itemID, cfg); err != nil {
		return models.RecurrenceConfig{}, fmt.Errorf("failed to save recurrence config: %w", err)
	}
	day := calendar.Key(calendar.Today(now))
	s.invalidate(ctx, tenantID, day)
	s.enqueueRefresh(ctx, tenantID, day, now)
	s.log.Info("habit_config_updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("section", string(section)),
		zap.String("item_id", itemID),
		zap.Bool("active", cfg.Active),
		zap.Int("frequency", cfg.Frequency),
		zap.String("type", string(cfg.Type)),
	)
	return cfg, nil
}

// Refresh drops the cached snapshot and pending list for the day of now and
// recomputes them.
func (s *Service) Refresh(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error) {
	s.invalidate(ctx, tenantID, calendar.Key(calendar.Today(now)))
	return s.Pending(ctx, tenantID, now)
}

// EnsureDay creates the tenant's rows for the day of now and warms the cache.
func (s *Service) EnsureDay(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	day := calendar.Key(calendar.Today(now))
	created, err := s.repo.EnsureDay(ctx, tenantID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure daily records: %w", err)
	}
	if _, err := s.Refresh(ctx, tenantID, now); err != nil {
		return created, err
	}
	return created, nil
}

// Tenants lists tenants with at least one active habit
func (s *Service) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.Tenants(ctx)
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID, day string) {
	if err := s.cache.Delete(ctx, snapshotKey(tenantID, day), pendingKey(tenantID, day)); err != nil {
		s.log.Warn("cache_invalidate_failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) enqueueRefresh(ctx context.Context, tenantID uuid.UUID, day string, now time.Time) {
	if s.queue == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeRefreshPending, tenantID, day)
	notAfter := now.Add(refreshJobTTL)
	job.NotAfter = &notAfter
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.Warn("refresh_enqueue_failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}

// passthrough is the Cache used when none is configured
type passthrough struct{}

func (passthrough) Get(ctx context.Context, _ string, _ time.Duration, load cache.Loader) ([]byte, error) {
	return load(ctx)
}

func (passthrough) Delete(context.Context, ...string) error { return nil }
