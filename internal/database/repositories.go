package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/models"
)

// HabitRepositoryInterface defines the habit storage operations services depend on.
// It allows mock implementations in tests.
type HabitRepositoryInterface interface {
	Snapshot(ctx context.Context, tenantID uuid.UUID, today time.Time) (*models.HabitSnapshot, error)
	GetConfig(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string) (*models.RecurrenceConfig, error)
	UpsertConfig(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string, cfg models.RecurrenceConfig) error
	SetCompletion(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID, day string, completed bool) error
	EnsureDay(ctx context.Context, tenantID uuid.UUID, day string) (int64, error)
	Tenants(ctx context.Context) ([]uuid.UUID, error)
}

// TaskRepositoryInterface defines the task storage operations handlers depend on
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, tenantID uuid.UUID, status *models.TaskStatus) ([]*models.Task, error)
	ListOpen(ctx context.Context, tenantID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// CorsConfigStore is read by the CORS reloader
type CorsConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// RatelimitConfigStore is read and seeded by the rate limit reloader
type RatelimitConfigStore interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ HabitRepositoryInterface = (*HabitRepository)(nil)
	_ TaskRepositoryInterface  = (*TaskRepository)(nil)
	_ CorsConfigStore          = (*CorsConfigRepository)(nil)
	_ RatelimitConfigStore     = (*RatelimitConfigRepository)(nil)
)
