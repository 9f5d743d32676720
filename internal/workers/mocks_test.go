package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/queue"
)

// mockMessage records how a message was settled
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	mu          sync.Mutex
	jobs        []*queue.Job
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(context.Context) error {
	return nil
}

func (m *mockJobQueue) enqueued() []*queue.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*queue.Job(nil), m.jobs...)
}

var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockHabits is a mock HabitRefresher and TenantLister
type mockHabits struct {
	ensureFunc  func(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error)
	refreshFunc func(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error)
	tenantsFunc func(ctx context.Context) ([]uuid.UUID, error)

	ensuredDays []time.Time
	refreshes   int
}

func (m *mockHabits) EnsureDay(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	m.ensuredDays = append(m.ensuredDays, now)
	if m.ensureFunc != nil {
		return m.ensureFunc(ctx, tenantID, now)
	}
	return 1, nil
}

func (m *mockHabits) Refresh(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error) {
	m.refreshes++
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, tenantID, now)
	}
	return nil, nil
}

func (m *mockHabits) Tenants(ctx context.Context) ([]uuid.UUID, error) {
	if m.tenantsFunc != nil {
		return m.tenantsFunc(ctx)
	}
	return nil, nil
}

var (
	_ HabitRefresher = (*mockHabits)(nil)
	_ TenantLister   = (*mockHabits)(nil)
)
