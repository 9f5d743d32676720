package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/registry"
	"github.com/benvon/smart-agenda/internal/services/habits"
	"github.com/benvon/smart-agenda/internal/validation"
)

// HabitService is the habit behaviour the HTTP layer needs
type HabitService interface {
	Pending(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.PendingEntry, error)
	Toggle(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string, completed bool, now time.Time) (bool, error)
	SetConfig(ctx context.Context, tenantID uuid.UUID, section models.Section, itemID string, cfg models.RecurrenceConfig, now time.Time) (models.RecurrenceConfig, error)
	Registry() *registry.Registry
}

var _ HabitService = (*habits.Service)(nil)

// HabitHandler handles habit-related requests
type HabitHandler struct {
	svc    HabitService
	clock  clock
	logger *zap.Logger
}

// NewHabitHandler creates a new habit handler. Calendar days are taken in loc.
func NewHabitHandler(svc HabitService, loc *time.Location, logger *zap.Logger) *HabitHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HabitHandler{svc: svc, clock: newClock(loc), logger: logger}
}

// RegisterRoutes registers habit routes on the given router
// The router should already have the /habits prefix
func (h *HabitHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/pending", h.ListPending).Methods(http.MethodGet)
	r.HandleFunc("/registry", h.ListRegistry).Methods(http.MethodGet)
	r.HandleFunc("/{section}/{item}/today", h.SetToday).Methods(http.MethodPut)
	r.HandleFunc("/{section}/{item}/config", h.SetConfig).Methods(http.MethodPut)
}

// PendingResponse lists the habits still due today
type PendingResponse struct {
	Day   string                `json:"day"`
	Items []models.PendingEntry `json:"items"`
}

// SetTodayRequest sets today's completion flag
type SetTodayRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// SetTodayResponse reports the stored flag
type SetTodayResponse struct {
	Section   models.Section `json:"section"`
	ItemID    string         `json:"item_id"`
	Day       string         `json:"day"`
	Completed bool           `json:"completed"`
	Changed   bool           `json:"changed"`
}

// ConfigResponse reports a stored recurrence config
type ConfigResponse struct {
	Section models.Section          `json:"section"`
	ItemID  string                  `json:"item_id"`
	Config  models.RecurrenceConfig `json:"config"`
}

// RegistrySection is one section of the habit catalogue
type RegistrySection struct {
	Section models.Section  `json:"section"`
	Items   []registry.Item `json:"items"`
}

// ListPending lists today's pending habits for the tenant
func (h *HabitHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}
	now := h.clock.Now()
	entries, err := h.svc.Pending(r.Context(), tenantID, now)
	if err != nil {
		h.logger.Error("pending_habits_failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute pending habits")
		return
	}
	respondJSON(w, http.StatusOK, PendingResponse{
		Day:   calendar.Key(calendar.Today(now)),
		Items: entries,
	})
}

// ListRegistry returns the habit catalogue in display order
func (h *HabitHandler) ListRegistry(w http.ResponseWriter, _ *http.Request) {
	reg := h.svc.Registry()
	sections := make([]RegistrySection, 0, len(reg.Sections()))
	for _, s := range reg.Sections() {
		sections = append(sections, RegistrySection{Section: s, Items: reg.Items(s)})
	}
	respondJSON(w, http.StatusOK, sections)
}

// SetToday records whether an item was completed today
func (h *HabitHandler) SetToday(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}
	section, itemID := itemFromPath(r)

	var req SetTodayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "completed is required")
		return
	}

	now := h.clock.Now()
	changed, err := h.svc.Toggle(r.Context(), tenantID, section, itemID, *req.Completed, now)
	if err != nil {
		h.respondServiceError(w, tenantID, "toggle_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, SetTodayResponse{
		Section:   section,
		ItemID:    itemID,
		Day:       calendar.Key(calendar.Today(now)),
		Completed: *req.Completed,
		Changed:   changed,
	})
}

// SetConfig stores an item's recurrence config
func (h *HabitHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantOrError(w, r)
	if !ok {
		return
	}
	section, itemID := itemFromPath(r)

	var cfg models.RecurrenceConfig
	if err := decodeJSON(r, &cfg); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	stored, err := h.svc.SetConfig(r.Context(), tenantID, section, itemID, cfg, h.clock.Now())
	if err != nil {
		h.respondServiceError(w, tenantID, "set_config_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, ConfigResponse{Section: section, ItemID: itemID, Config: stored})
}

func (h *HabitHandler) respondServiceError(w http.ResponseWriter, tenantID uuid.UUID, event string, err error) {
	switch {
	case errors.Is(err, habits.ErrUnknownItem):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Unknown habit item")
	case errors.Is(err, habits.ErrInvalidConfig):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error(event, zap.String("tenant_id", tenantID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update habit")
	}
}

func itemFromPath(r *http.Request) (models.Section, string) {
	vars := mux.Vars(r)
	return models.Section(vars["section"]), vars["item"]
}
