package handlers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/registry"
)

// mockHabitService records calls and returns canned results
type mockHabitService struct {
	mu        sync.Mutex
	pending   []models.PendingEntry
	changed   bool
	err       error
	toggles   []bool
	configs   []models.RecurrenceConfig
	lastNow   time.Time
	lastOwner uuid.UUID
}

func (m *mockHabitService) Pending(_ context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOwner, m.lastNow = tenantID, now
	return m.pending, m.err
}

func (m *mockHabitService) Toggle(_ context.Context, tenantID uuid.UUID, _ models.Section, _ string, completed bool, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOwner, m.lastNow = tenantID, now
	if m.err != nil {
		return false, m.err
	}
	m.toggles = append(m.toggles, completed)
	return m.changed, nil
}

func (m *mockHabitService) SetConfig(_ context.Context, tenantID uuid.UUID, _ models.Section, _ string, cfg models.RecurrenceConfig, _ time.Time) (models.RecurrenceConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOwner = tenantID
	if m.err != nil {
		return models.RecurrenceConfig{}, m.err
	}
	cfg = cfg.WithDefaults()
	m.configs = append(m.configs, cfg)
	return cfg, nil
}

func (m *mockHabitService) Registry() *registry.Registry {
	return registry.Default()
}

// memoryTaskRepo is an in-memory TaskRepositoryInterface
type memoryTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
	err   error
}

var _ database.TaskRepositoryInterface = (*memoryTaskRepo)(nil)

func newMemoryTaskRepo(tasks ...*models.Task) *memoryTaskRepo {
	repo := &memoryTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range tasks {
		repo.tasks[t.ID] = t
	}
	return repo
}

func (m *memoryTaskRepo) Create(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	task.ID = uuid.New()
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	m.tasks[task.ID] = task
	return nil
}

func (m *memoryTaskRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tasks[id]
	if !ok || t.TenantID != tenantID {
		return nil, database.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTaskRepo) List(_ context.Context, tenantID uuid.UUID, status *models.TaskStatus) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Task
	for _, t := range m.tasks {
		if t.TenantID != tenantID || (status != nil && t.Status != *status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memoryTaskRepo) ListOpen(ctx context.Context, tenantID uuid.UUID) ([]*models.Task, error) {
	status := models.TaskStatusPending
	return m.List(ctx, tenantID, &status)
}

func (m *memoryTaskRepo) Update(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.tasks[task.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memoryTaskRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t, ok := m.tasks[id]
	if !ok || t.TenantID != tenantID {
		return database.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memoryTaskRepo) get(id uuid.UUID) *models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

var errBoom = errors.New("boom")
