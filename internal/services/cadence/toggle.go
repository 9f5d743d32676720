package cadence

import (
	"time"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
)

// ApplyToggle sets today's completion flag for (section, id) to completed.
// It is a set, not a flip: repeating the same request leaves the snapshot
// unchanged. The history entry for today is kept in step with the flag so the
// day is counted once. It reports whether anything changed.
func ApplyToggle(snap *models.HabitSnapshot, section models.Section, id string, completed bool, now time.Time) bool {
	if snap == nil {
		return false
	}
	today := calendar.Key(calendar.Today(now))

	// reads tolerate nil maps; writes go through the snapshot setters
	prevFlag, hadFlag := snap.Completions[section][id]

	var prevHist, hadHist bool
	if h := snap.History[section][id]; h != nil {
		prevHist, hadHist = h[today]
	}

	changed := !hadFlag || prevFlag != completed || !hadHist || prevHist != completed
	snap.SetCompletion(section, id, completed)
	snap.SetHistory(section, id, today, completed)
	if snap.Day == "" {
		snap.Day = today
	}
	return changed
}
