package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/validation"
)

const (
	// MaxTaskTitleLength is the maximum length for task titles
	MaxTaskTitleLength = 500
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskRepo database.TaskRepositoryInterface
	clock    clock
	logger   *zap.Logger
}

// NewTaskHandler creates a new task handler. Dates are interpreted in loc.
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, loc *time.Location, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{taskRepo: taskRepo, clock: newClock(loc), logger: logger}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.UpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/{id}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods(http.MethodPost)
}

// CreateTaskRequest represents a create task request. Dates are YYYY-MM-DD.
type CreateTaskRequest struct {
	Title     string `json:"title" validate:"required,max=500"`
	StartDate string `json:"start_date,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
}

// UpdateTaskRequest represents an update task request. Absent fields are left
// unchanged; an empty date string clears the date.
type UpdateTaskRequest struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,max=500"`
	StartDate *string `json:"start_date,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
	Status    *string `json:"status,omitempty" validate:"omitempty,task_status"`
}

// ListTasks lists the tenant's tasks, optionally filtered by ?status=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}

	var status *models.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		st := models.TaskStatus(s)
		status = &st
	}

	tasks, err := h.taskRepo.List(r.Context(), tenantID, status)
	if err != nil {
		h.logger.Error("list_tasks_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	req.Title = validation.SanitizeText(req.Title)
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("title is required and at most %d characters", MaxTaskTitleLength))
		return
	}

	task := &models.Task{TenantID: tenantID, Title: req.Title, Status: models.TaskStatusPending}
	var err error
	if task.StartDate, err = h.parseDate("start_date", req.StartDate); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if task.DueDate, err = h.parseDate("due_date", req.DueDate); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if err := h.taskRepo.Create(r.Context(), task); err != nil {
		h.logger.Error("create_task_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves one task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid title or status")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "title cannot be empty")
			return
		}
		task.Title = title
	}
	var err error
	if req.StartDate != nil {
		if task.StartDate, err = h.parseDate("start_date", *req.StartDate); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	if req.DueDate != nil {
		if task.DueDate, err = h.parseDate("due_date", *req.DueDate); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	if req.Status != nil {
		setStatus(task, models.TaskStatus(*req.Status), h.clock.Now())
	}

	h.saveTask(w, r, task)
}

// CompleteTask marks a task completed
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	setStatus(task, models.TaskStatusCompleted, h.clock.Now())
	h.saveTask(w, r, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}
	if err := h.taskRepo.Delete(r.Context(), tenantID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		h.logger.Error("delete_task_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) loadTask(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, false
	}
	task, err := h.taskRepo.GetByID(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return nil, false
		}
		h.logger.Error("get_task_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) saveTask(w http.ResponseWriter, r *http.Request, task *models.Task) {
	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		h.logger.Error("update_task_failed", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// parseDate turns a request date into a canonical day. Empty means no date.
func (h *TaskHandler) parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, ok := calendar.ParseString(value, h.clock.loc)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q (expected YYYY-MM-DD)", field, value)
	}
	return &d, nil
}

// setStatus keeps CompletedAt consistent with the status
func setStatus(task *models.Task, status models.TaskStatus, now time.Time) {
	if task.Status == status {
		return
	}
	task.Status = status
	if status == models.TaskStatusCompleted {
		at := now.UTC()
		task.CompletedAt = &at
	} else {
		task.CompletedAt = nil
	}
}
