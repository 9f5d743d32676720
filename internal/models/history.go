package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/benvon/smart-agenda/internal/calendar"
)

// CompletionHistory maps a canonical calendar day (YYYY-MM-DD) to whether the
// item was completed that day. One entry per day; order is irrelevant.
type CompletionHistory map[string]bool

// NewCompletionHistory builds a history where every given day is completed.
// Unparseable days are dropped.
func NewCompletionHistory(days ...string) CompletionHistory {
	h := make(CompletionHistory, len(days))
	for _, d := range days {
		if key := calendar.KeyOf(d); key != "" {
			h[key] = true
		}
	}
	return h
}

// Set records the completion flag for the calendar day of t.
func (h CompletionHistory) Set(t time.Time, completed bool) {
	h[calendar.Key(t)] = completed
}

// Completed reports whether the calendar day of t is marked complete.
func (h CompletionHistory) Completed(t time.Time) bool {
	return h[calendar.Key(t)]
}

// CompletedDays returns the completed days in ascending order.
func (h CompletionHistory) CompletedDays() []string {
	days := make([]string, 0, len(h))
	for k, v := range h {
		if v {
			days = append(days, k)
		}
	}
	sort.Strings(days)
	return days
}

// UnmarshalJSON accepts either {"2025-01-02": true} or ["2025-01-02"].
// Keys are normalised so "2025-01-02T00:00:00Z" and "2025-01-02" collapse.
// When the same day appears twice, a true flag wins.
func (h *CompletionHistory) UnmarshalJSON(data []byte) error {
	out := make(CompletionHistory)

	var asMap map[string]bool
	if err := json.Unmarshal(data, &asMap); err == nil {
		for raw, v := range asMap {
			if key := calendar.KeyOf(raw); key != "" {
				out[key] = out[key] || v
			}
		}
		*h = out
		return nil
	}

	var asList []string
	if err := json.Unmarshal(data, &asList); err != nil {
		return fmt.Errorf("completion history must be an object or an array of dates: %w", err)
	}
	for _, raw := range asList {
		if key := calendar.KeyOf(raw); key != "" {
			out[key] = true
		}
	}
	*h = out
	return nil
}
