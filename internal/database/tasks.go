package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, tenant_id, title, status, start_date, due_date, created_at, updated_at, completed_at`

// Create creates a new task. A zero ID is replaced with a fresh one.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO tasks (id, tenant_id, title, status, start_date, due_date, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.TenantID,
		task.Title,
		string(task.Status),
		dayValue(task.StartDate),
		dayValue(task.DueDate),
		now,
		now,
		nullTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves a tenant's task by ID
func (r *TaskRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND tenant_id = $2`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task not found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List retrieves a tenant's tasks, optionally filtered by status
func (r *TaskRepository) List(ctx context.Context, tenantID uuid.UUID, status *models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// ListOpen retrieves a tenant's pending tasks
func (r *TaskRepository) ListOpen(ctx context.Context, tenantID uuid.UUID) ([]*models.Task, error) {
	status := models.TaskStatusPending
	return r.List(ctx, tenantID, &status)
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, status = $4, start_date = $5, due_date = $6, updated_at = $7, completed_at = $8
		WHERE id = $1 AND tenant_id = $2
	`
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.TenantID,
		task.Title,
		string(task.Status),
		dayValue(task.StartDate),
		dayValue(task.DueDate),
		now,
		nullTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := expectOneRow(result, "task"); err != nil {
		return err
	}
	task.UpdatedAt = now
	return nil
}

// Delete deletes a tenant's task by ID
func (r *TaskRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectOneRow(result, "task")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		status      string
		startDate   sql.NullString
		dueDate     sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.TenantID,
		&task.Title,
		&status,
		&startDate,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Status = models.TaskStatus(status)
	task.StartDate = parseDay(startDate)
	task.DueDate = parseDay(dueDate)
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return task, nil
}

func expectOneRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return nil
}

func dayValue(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: calendar.Key(*t), Valid: true}
}

func parseDay(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	d, ok := calendar.ParseString(s.String, time.UTC)
	if !ok {
		return nil
	}
	return &d
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
