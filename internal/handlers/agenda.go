package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/services/agenda"
	"github.com/benvon/smart-agenda/internal/validation"
)

// AgendaHandler serves open tasks grouped into time buckets
type AgendaHandler struct {
	taskRepo database.TaskRepositoryInterface
	clock    clock
	logger   *zap.Logger
}

// NewAgendaHandler creates a new agenda handler. Buckets are computed in loc.
func NewAgendaHandler(taskRepo database.TaskRepositoryInterface, loc *time.Location, logger *zap.Logger) *AgendaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgendaHandler{taskRepo: taskRepo, clock: newClock(loc), logger: logger}
}

// RegisterRoutes registers agenda routes on the given router
func (h *AgendaHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/agenda", h.GetAgenda).Methods(http.MethodGet)
}

// AgendaResponse is one agenda view
type AgendaResponse struct {
	View   models.AgendaView    `json:"view"`
	Day    string               `json:"day"`
	Groups []models.AgendaGroup `json:"groups"`
}

// GetAgenda handles GET /agenda?view=now|later. The view defaults to now.
func (h *AgendaHandler) GetAgenda(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}

	view := models.AgendaViewNow
	if v := r.URL.Query().Get("view"); v != "" {
		if err := validation.ValidateAgendaView(v); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		view = models.AgendaView(v)
	}

	tasks, err := h.taskRepo.ListOpen(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list_open_tasks_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build agenda")
		return
	}

	now := h.clock.Now()
	groups := agenda.View(tasks, view, now)
	if groups == nil {
		groups = []models.AgendaGroup{}
	}
	respondJSON(w, http.StatusOK, AgendaResponse{
		View:   view,
		Day:    calendar.Key(calendar.Today(now)),
		Groups: groups,
	})
}
