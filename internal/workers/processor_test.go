package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/queue"
)

var processorNow = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestProcessor(habits HabitRefresher, q queue.JobQueue) *Processor {
	p := NewProcessor(habits, q, time.UTC, nil)
	p.now = func() time.Time { return processorNow }
	return p
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestProcessor_ProcessJob(t *testing.T) {
	t.Parallel()

	errTransient := errors.New("database is locked")

	tests := []struct {
		name        string
		job         func() *queue.Job
		habits      func() *mockHabits
		queue       func() *mockJobQueue
		nilQueue    bool
		wantErr     bool
		wantAck     bool
		wantNack    bool
		wantRequeue bool
		validate    func(*testing.T, *mockHabits, *mockJobQueue)
	}{
		{
			name: "ensure daily records",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeEnsureDailyRecords, uuid.New(), "2025-10-15")
			},
			wantAck: true,
			validate: func(t *testing.T, h *mockHabits, _ *mockJobQueue) {
				if len(h.ensuredDays) != 1 || calendar.Key(h.ensuredDays[0]) != "2025-10-15" {
					t.Errorf("ensured days = %v, want 2025-10-15", h.ensuredDays)
				}
			},
		},
		{
			name: "ensure runs late for its own day",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeEnsureDailyRecords, uuid.New(), "2025-10-14")
			},
			wantAck: true,
			validate: func(t *testing.T, h *mockHabits, _ *mockJobQueue) {
				if len(h.ensuredDays) != 1 || calendar.Key(h.ensuredDays[0]) != "2025-10-14" {
					t.Errorf("ensured days = %v, want 2025-10-14", h.ensuredDays)
				}
			},
		},
		{
			name: "refresh pending for today",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeRefreshPending, uuid.New(), "2025-10-15")
			},
			habits: func() *mockHabits {
				return &mockHabits{refreshFunc: func(context.Context, uuid.UUID, time.Time) ([]models.PendingEntry, error) {
					return []models.PendingEntry{{Section: models.SectionHealth, ItemID: "water", Frequency: 1}}, nil
				}}
			},
			wantAck: true,
			validate: func(t *testing.T, h *mockHabits, _ *mockJobQueue) {
				if h.refreshes != 1 {
					t.Errorf("refreshes = %d, want 1", h.refreshes)
				}
			},
		},
		{
			name: "stale refresh is skipped",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeRefreshPending, uuid.New(), "2025-10-14")
			},
			wantAck: true,
			validate: func(t *testing.T, h *mockHabits, _ *mockJobQueue) {
				if h.refreshes != 0 {
					t.Errorf("refreshes = %d, want 0", h.refreshes)
				}
			},
		},
		{
			name: "unknown job type goes to DLQ",
			job: func() *queue.Job {
				return queue.NewJob("task_analysis", uuid.New(), "2025-10-15")
			},
			wantErr:  true,
			wantNack: true,
		},
		{
			name: "expired job goes to DLQ without running",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeEnsureDailyRecords, uuid.New(), "2025-10-14")
				j.NotAfter = timePtr(processorNow.Add(-time.Hour))
				return j
			},
			wantNack: true,
			validate: func(t *testing.T, h *mockHabits, _ *mockJobQueue) {
				if len(h.ensuredDays) != 0 {
					t.Error("expired job was processed")
				}
			},
		},
		{
			name: "early job is re-enqueued",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeRefreshPending, uuid.New(), "2025-10-15")
				j.NotBefore = timePtr(processorNow.Add(time.Minute))
				return j
			},
			wantAck: true,
			validate: func(t *testing.T, h *mockHabits, q *mockJobQueue) {
				if h.refreshes != 0 {
					t.Error("early job was processed")
				}
				if len(q.enqueued()) != 1 {
					t.Errorf("enqueued = %d, want 1", len(q.enqueued()))
				}
			},
		},
		{
			name: "transient failure is retried with backoff",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeEnsureDailyRecords, uuid.New(), "2025-10-15")
			},
			habits: func() *mockHabits {
				return &mockHabits{ensureFunc: func(context.Context, uuid.UUID, time.Time) (int64, error) {
					return 0, errTransient
				}}
			},
			wantErr: true,
			wantAck: true,
			validate: func(t *testing.T, _ *mockHabits, q *mockJobQueue) {
				jobs := q.enqueued()
				if len(jobs) != 1 {
					t.Fatalf("enqueued = %d, want 1", len(jobs))
				}
				if jobs[0].RetryCount != 1 {
					t.Errorf("retry count = %d, want 1", jobs[0].RetryCount)
				}
				if jobs[0].NotBefore == nil || !jobs[0].NotBefore.Equal(processorNow.Add(10*time.Second)) {
					t.Errorf("not before = %v, want now+10s", jobs[0].NotBefore)
				}
			},
		},
		{
			name: "retry falls back to requeue when enqueue fails",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeRefreshPending, uuid.New(), "2025-10-15")
			},
			habits: func() *mockHabits {
				return &mockHabits{refreshFunc: func(context.Context, uuid.UUID, time.Time) ([]models.PendingEntry, error) {
					return nil, errTransient
				}}
			},
			queue: func() *mockJobQueue {
				return &mockJobQueue{enqueueFunc: func(context.Context, *queue.Job) error {
					return errors.New("channel closed")
				}}
			},
			wantErr:     true,
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name: "retry without a queue requeues",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeRefreshPending, uuid.New(), "2025-10-15")
			},
			habits: func() *mockHabits {
				return &mockHabits{refreshFunc: func(context.Context, uuid.UUID, time.Time) ([]models.PendingEntry, error) {
					return nil, errTransient
				}}
			},
			nilQueue:    true,
			wantErr:     true,
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name: "max retries goes to DLQ",
			job: func() *queue.Job {
				j := queue.NewJob(queue.JobTypeEnsureDailyRecords, uuid.New(), "2025-10-15")
				j.RetryCount = j.MaxRetries
				return j
			},
			habits: func() *mockHabits {
				return &mockHabits{ensureFunc: func(context.Context, uuid.UUID, time.Time) (int64, error) {
					return 0, errTransient
				}}
			},
			wantErr:  true,
			wantNack: true,
		},
		{
			name: "invalid day is permanent",
			job: func() *queue.Job {
				return queue.NewJob(queue.JobTypeEnsureDailyRecords, uuid.New(), "2025-13-45")
			},
			wantErr:  true,
			wantNack: true,
			validate: func(t *testing.T, h *mockHabits, q *mockJobQueue) {
				if len(h.ensuredDays) != 0 || len(q.enqueued()) != 0 {
					t.Error("invalid day should not run or retry")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			habits := &mockHabits{}
			if tt.habits != nil {
				habits = tt.habits()
			}
			q := &mockJobQueue{}
			if tt.queue != nil {
				q = tt.queue()
			}
			var p *Processor
			if tt.nilQueue {
				p = newTestProcessor(habits, nil)
			} else {
				p = newTestProcessor(habits, q)
			}

			msg := &mockMessage{job: tt.job()}
			err := p.ProcessJob(context.Background(), msg)

			if (err != nil) != tt.wantErr {
				t.Errorf("ProcessJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", msg.acked, tt.wantAck)
			}
			if msg.nacked != tt.wantNack {
				t.Errorf("nacked = %v, want %v", msg.nacked, tt.wantNack)
			}
			if msg.nacked && msg.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", msg.requeue, tt.wantRequeue)
			}
			if tt.validate != nil {
				tt.validate(t, habits, q)
			}
		})
	}
}

func TestProcessor_NilJob(t *testing.T) {
	t.Parallel()

	msg := &mockMessage{}
	err := newTestProcessor(&mockHabits{}, &mockJobQueue{}).ProcessJob(context.Background(), msg)
	if err == nil {
		t.Error("expected error for message without job")
	}
	if !msg.nacked || msg.requeue {
		t.Error("message without job should be dead-lettered")
	}
}
