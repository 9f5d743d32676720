package cadence

import (
	"fmt"
	"time"

	"github.com/benvon/smart-agenda/internal/models"
)

// ItemSource enumerates the known (section, item) pairs in display order.
type ItemSource interface {
	Sections() []models.Section
	ItemIDs(section models.Section) []string
}

// Failure records an item whose evaluation failed and was shown anyway.
type Failure struct {
	Section models.Section
	ItemID  string
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s/%s: %v", f.Section, f.ItemID, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// PendingItemsForToday walks every registered item and returns those still due
// in their current period, in section then registry order. Items whose
// evaluation fails are emitted with FailedOpen set and also reported in the
// failures slice; one bad item never aborts the rest.
func PendingItemsForToday(snap *models.HabitSnapshot, source ItemSource, now time.Time) ([]models.PendingEntry, []Failure) {
	var (
		entries  []models.PendingEntry
		failures []Failure
	)
	if snap == nil || source == nil {
		return entries, failures
	}

	for _, section := range source.Sections() {
		for _, id := range source.ItemIDs(section) {
			item := snap.Item(section, id)
			if item.Config == nil || !item.Config.Active {
				continue
			}

			res, err := evaluateSafely(item, now)
			if err != nil {
				failures = append(failures, Failure{Section: section, ItemID: id, Err: err})
				entries = append(entries, models.PendingEntry{
					Section:        section,
					ItemID:         id,
					Frequency:      item.Config.Frequency,
					CompletedToday: item.CompletedToday,
					FailedOpen:     true,
				})
				continue
			}
			if !res.Active || !res.Due {
				continue
			}

			entries = append(entries, models.PendingEntry{
				Section:        section,
				ItemID:         id,
				Frequency:      item.Config.Frequency,
				Completions:    res.Displayed,
				CompletedToday: item.CompletedToday,
			})
		}
	}
	return entries, failures
}

func evaluateSafely(item models.Item, now time.Time) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("%w: %v", ErrEvaluationPanic, r)
		}
	}()
	return evaluate(item, now)
}

// evaluate is swapped in tests to inject panics.
var evaluate = Evaluate
