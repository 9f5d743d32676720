package cadence

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/registry"
)

func testRegistry() *registry.Registry {
	return registry.New([]registry.Item{
		{Section: models.SectionHealth, ID: "water"},
		{Section: models.SectionHealth, ID: "vitamins"},
		{Section: models.SectionFitness, ID: "gym"},
		{Section: models.SectionMind, ID: "read"},
	})
}

func newSnapshot() *models.HabitSnapshot {
	return models.NewHabitSnapshot(uuid.New(), "2025-10-15")
}

func TestPendingItemsForToday(t *testing.T) {
	t.Parallel()

	snap := newSnapshot()
	snap.SetConfig(models.SectionHealth, "water", models.RecurrenceConfig{Active: true, Frequency: 1, Type: models.CadenceDaily})
	snap.SetConfig(models.SectionHealth, "vitamins", models.RecurrenceConfig{Active: true, Frequency: 1, Type: models.CadenceDaily})
	snap.SetConfig(models.SectionFitness, "gym", models.RecurrenceConfig{Active: true, Frequency: 2, Type: models.CadenceWeekly})
	snap.SetConfig(models.SectionMind, "read", models.RecurrenceConfig{Active: false, Frequency: 1, Type: models.CadenceDaily})
	snap.Completions[models.SectionHealth] = map[string]bool{"vitamins": true}
	snap.SetHistory(models.SectionFitness, "gym", "2025-10-13", true)

	entries, failures := PendingItemsForToday(snap, testRegistry(), wednesday)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}

	want := []models.PendingEntry{
		{Section: models.SectionHealth, ItemID: "water", Frequency: 1, Completions: 0},
		{Section: models.SectionFitness, ItemID: "gym", Frequency: 2, Completions: 1},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v\nwant      %+v", entries, want)
	}
}

func TestPendingItemsForToday_FailsOpen(t *testing.T) {
	t.Parallel()

	snap := newSnapshot()
	snap.SetConfig(models.SectionHealth, "water", models.RecurrenceConfig{
		Active: true, Frequency: 3, Type: models.CadenceDaily, Period: models.PeriodEachMonth,
	})
	snap.SetConfig(models.SectionFitness, "gym", models.RecurrenceConfig{Active: true, Frequency: 1, Type: models.CadenceWeekly})

	entries, failures := PendingItemsForToday(snap, testRegistry(), wednesday)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if !errors.Is(failures[0], ErrPeriodMismatch) {
		t.Errorf("failure should wrap ErrPeriodMismatch: %v", failures[0])
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if !entries[0].FailedOpen || entries[0].ItemID != "water" {
		t.Errorf("first entry should be the failed-open water item: %+v", entries[0])
	}
	if entries[1].FailedOpen {
		t.Error("gym evaluated normally and must not be marked failed open")
	}
}

// Swaps the package evaluate hook, so it must not run in parallel.
func TestPendingItemsForToday_RecoversPanics(t *testing.T) {
	orig := evaluate
	t.Cleanup(func() { evaluate = orig })
	evaluate = func(item models.Item, now time.Time) (Result, error) {
		if item.ID == "water" {
			panic("boom")
		}
		return orig(item, now)
	}

	snap := newSnapshot()
	snap.SetConfig(models.SectionHealth, "water", models.RecurrenceConfig{Active: true, Frequency: 1, Type: models.CadenceDaily})
	snap.SetConfig(models.SectionHealth, "vitamins", models.RecurrenceConfig{Active: true, Frequency: 1, Type: models.CadenceDaily})

	entries, failures := PendingItemsForToday(snap, testRegistry(), wednesday)
	if len(failures) != 1 || !errors.Is(failures[0], ErrEvaluationPanic) {
		t.Fatalf("expected one panic failure, got %v", failures)
	}
	if len(entries) != 2 {
		t.Fatalf("remaining items must still be evaluated, got %+v", entries)
	}
	if !entries[0].FailedOpen || entries[1].FailedOpen {
		t.Errorf("unexpected FailedOpen flags: %+v", entries)
	}
}

func TestPendingItemsForToday_IgnoresUnregisteredItems(t *testing.T) {
	t.Parallel()

	snap := newSnapshot()
	snap.SetConfig(models.SectionHome, "unknown", models.RecurrenceConfig{Active: true, Frequency: 1, Type: models.CadenceDaily})

	entries, failures := PendingItemsForToday(snap, testRegistry(), wednesday)
	if len(entries) != 0 || len(failures) != 0 {
		t.Errorf("expected nothing, got %+v %+v", entries, failures)
	}
}

func TestPendingItemsForToday_NilInputs(t *testing.T) {
	t.Parallel()

	if e, f := PendingItemsForToday(nil, testRegistry(), wednesday); len(e) != 0 || len(f) != 0 {
		t.Error("nil snapshot should yield nothing")
	}
	if e, f := PendingItemsForToday(newSnapshot(), nil, wednesday); len(e) != 0 || len(f) != 0 {
		t.Error("nil source should yield nothing")
	}
}
