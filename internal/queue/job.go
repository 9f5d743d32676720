package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeEnsureDailyRecords creates a tenant's habit rows for a new day
	JobTypeEnsureDailyRecords JobType = "ensure_daily_records"
	// JobTypeRefreshPending recomputes and caches a tenant's pending habits
	JobTypeRefreshPending JobType = "refresh_pending"
)

const (
	defaultMaxRetries = 3
	baseRetryDelay    = 5 * time.Second
	maxRetryDelay     = 5 * time.Minute
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	Day        string         `json:"day,omitempty"`        // calendar day the job applies to (YYYY-MM-DD)
	NotBefore  *time.Time     `json:"not_before,omitempty"` // earliest time to process (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // latest time to process (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job for a tenant and day
func NewJob(jobType JobType, tenantID uuid.UUID, day string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		TenantID:   tenantID,
		Day:        day,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now().UTC(),
		MaxRetries: defaultMaxRetries,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	return j.ShouldProcessAt(time.Now())
}

// ShouldProcessAt checks if the job is inside its processing window at now
func (j *Job) ShouldProcessAt(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.expiredAt(now)
}

// IsExpired checks if the job has passed its NotAfter
func (j *Job) IsExpired() bool {
	return j.expiredAt(time.Now())
}

func (j *Job) expiredAt(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}

// RetryDelay is the backoff before the next attempt: 5s doubled per retry,
// capped at 5 minutes.
func (j *Job) RetryDelay() time.Duration {
	d := baseRetryDelay
	for i := 0; i < j.RetryCount; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// Retry returns a copy of the job scheduled for its next attempt
func (j *Job) Retry(now time.Time) *Job {
	next := *j
	next.RetryCount++
	notBefore := now.Add(next.RetryDelay())
	next.NotBefore = &notBefore
	return &next
}
