// Package cadence decides whether recurring habit items are still due in
// their current period. Every function here is pure: callers hand in a fully
// materialised snapshot and a clock reading.
package cadence

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
)

var (
	// ErrPeriodMismatch is returned when a config's period contradicts its type.
	ErrPeriodMismatch = errors.New("period does not match cadence type")
	// ErrEvaluationPanic wraps a panic recovered while evaluating one item.
	ErrEvaluationPanic = errors.New("panic during cadence evaluation")
)

// Result is the outcome of evaluating one item at one instant
type Result struct {
	// Active is false when the item has no usable config and must be hidden.
	Active      bool            `json:"active"`
	Due         bool            `json:"due"`
	Completions int             `json:"completions"`
	Displayed   int             `json:"displayed"`
	Target      int             `json:"target"`
	Window      calendar.Window `json:"window"`
}

// Window returns the current period window for cfg.
func Window(cfg models.RecurrenceConfig, now time.Time) (calendar.Window, error) {
	cfg = cfg.WithDefaults()
	if !cfg.PeriodConsistent() {
		return calendar.Window{}, fmt.Errorf("%w: type %q, period %q", ErrPeriodMismatch, cfg.Type, cfg.Period)
	}
	switch cfg.Type {
	case models.CadenceDaily:
		return calendar.DayWindow(now), nil
	case models.CadenceWeekly:
		return calendar.WeekWindow(now), nil
	case models.CadenceMonthly:
		return calendar.MonthWindow(now), nil
	default:
		return calendar.Window{}, fmt.Errorf("unknown cadence type %q", cfg.Type)
	}
}

// CompletionsInPeriod counts the distinct completed calendar days of item that
// fall inside w. Today's flag counts only when today lies in w and is not
// already present in the history.
func CompletionsInPeriod(item models.Item, w calendar.Window, now time.Time) int {
	loc := now.Location()
	days := make(map[string]struct{})
	for raw, completed := range item.History {
		if !completed {
			continue
		}
		d, ok := calendar.ParseString(raw, loc)
		if !ok || !w.Contains(d) {
			continue
		}
		days[calendar.Key(d)] = struct{}{}
	}
	if item.CompletedToday {
		if today := calendar.Today(now); w.Contains(today) {
			days[calendar.Key(today)] = struct{}{}
		}
	}
	return len(days)
}

// Evaluate is the single source of truth for an item's cadence state.
// Items with a missing or unusable config evaluate as inactive without error.
func Evaluate(item models.Item, now time.Time) (Result, error) {
	if item.Config == nil || !item.Config.Usable() {
		return Result{}, nil
	}
	cfg := item.Config.WithDefaults()

	w, err := Window(cfg, now)
	if err != nil {
		return Result{}, err
	}

	target := cfg.Frequency
	if cfg.Type == models.CadenceDaily {
		// a daily check-in is binary
		target = 1
	}

	count := CompletionsInPeriod(item, w, now)
	return Result{
		Active:      true,
		Due:         count < target,
		Completions: count,
		Displayed:   clamp(count, 0, target),
		Target:      target,
		Window:      w,
	}, nil
}

// IsDue reports whether item still needs completions in its current period.
// An evaluation error counts as due so the item stays visible.
func IsDue(item models.Item, now time.Time) bool {
	res, err := Evaluate(item, now)
	if err != nil {
		return true
	}
	return res.Active && res.Due
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
