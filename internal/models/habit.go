package models

import (
	"time"

	"github.com/google/uuid"
)

// Section groups habit items
type Section string

const (
	SectionHealth  Section = "health"
	SectionFitness Section = "fitness"
	SectionMind    Section = "mind"
	SectionHome    Section = "home"
	SectionFinance Section = "finance"
)

// Item is the read-only input the cadence engine evaluates
type Item struct {
	ID             string            `json:"id"`
	Section        Section           `json:"section"`
	StartDate      *time.Time        `json:"start_date,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	CompletedToday bool              `json:"completed_today"`
	Config         *RecurrenceConfig `json:"config,omitempty"`
	History        CompletionHistory `json:"history,omitempty"`
}

// HabitSnapshot is a fully materialised view of a tenant's habits for one
// calendar day: today's flags, the recurrence configs and the completion
// history needed to cover the widest period window.
type HabitSnapshot struct {
	TenantID    uuid.UUID                                `json:"tenant_id"`
	Day         string                                   `json:"day"`
	Completions map[Section]map[string]bool              `json:"completions"`
	Configs     map[Section]map[string]RecurrenceConfig  `json:"configs"`
	History     map[Section]map[string]CompletionHistory `json:"history"`
}

// NewHabitSnapshot returns an empty snapshot for the given tenant and day
func NewHabitSnapshot(tenantID uuid.UUID, day string) *HabitSnapshot {
	return &HabitSnapshot{
		TenantID:    tenantID,
		Day:         day,
		Completions: make(map[Section]map[string]bool),
		Configs:     make(map[Section]map[string]RecurrenceConfig),
		History:     make(map[Section]map[string]CompletionHistory),
	}
}

// Item assembles the evaluation input for one registry item.
// A missing config is left nil.
func (s *HabitSnapshot) Item(section Section, id string) Item {
	item := Item{ID: id, Section: section}
	if flags, ok := s.Completions[section]; ok {
		item.CompletedToday = flags[id]
	}
	if cfgs, ok := s.Configs[section]; ok {
		if cfg, ok := cfgs[id]; ok {
			c := cfg
			item.Config = &c
		}
	}
	if hist, ok := s.History[section]; ok {
		item.History = hist[id]
	}
	return item
}

// ensureMaps allocates outer maps left nil by a struct literal or by JSON nulls
func (s *HabitSnapshot) ensureMaps() {
	if s.Completions == nil {
		s.Completions = make(map[Section]map[string]bool)
	}
	if s.Configs == nil {
		s.Configs = make(map[Section]map[string]RecurrenceConfig)
	}
	if s.History == nil {
		s.History = make(map[Section]map[string]CompletionHistory)
	}
}

// SetCompletion stores today's flag for one item
func (s *HabitSnapshot) SetCompletion(section Section, id string, completed bool) {
	s.ensureMaps()
	if s.Completions[section] == nil {
		s.Completions[section] = make(map[string]bool)
	}
	s.Completions[section][id] = completed
}

// SetConfig stores a config in the snapshot
func (s *HabitSnapshot) SetConfig(section Section, id string, cfg RecurrenceConfig) {
	s.ensureMaps()
	if s.Configs[section] == nil {
		s.Configs[section] = make(map[string]RecurrenceConfig)
	}
	s.Configs[section][id] = cfg
}

// SetHistory records one history entry in the snapshot
func (s *HabitSnapshot) SetHistory(section Section, id, day string, completed bool) {
	s.ensureMaps()
	if s.History[section] == nil {
		s.History[section] = make(map[string]CompletionHistory)
	}
	if s.History[section][id] == nil {
		s.History[section][id] = make(CompletionHistory)
	}
	s.History[section][id][day] = completed
}

// PendingEntry is one habit that still needs completions in its current period
type PendingEntry struct {
	Section        Section `json:"section"`
	ItemID         string  `json:"item_id"`
	Frequency      int     `json:"frequency"`
	Completions    int     `json:"completions"`
	CompletedToday bool    `json:"completed_today"`
	FailedOpen     bool    `json:"failed_open,omitempty"`
}
