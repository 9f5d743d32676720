package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/models"
	"github.com/benvon/smart-agenda/internal/registry"
)

func TestRenderAgenda(t *testing.T) {
	t.Parallel()

	due := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		groups []models.AgendaGroup
		want   []string
	}{
		{
			name: "empty",
			want: []string{"Agenda (now) for 2025-10-15", "Nothing scheduled."},
		},
		{
			name: "grouped",
			groups: []models.AgendaGroup{
				{Bucket: models.BucketTomorrow, Tasks: []*models.Task{{Title: "Dentist", DueDate: &due}}},
				{Bucket: models.BucketNoDate, Tasks: []*models.Task{{Title: "Someday"}}},
			},
			want: []string{"Tomorrow", "Dentist", "due 2025-10-16", "No date", "Someday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := renderAgenda(models.AgendaViewNow, "2025-10-15", tt.groups)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestBucketLabelsCoverEveryBucket(t *testing.T) {
	t.Parallel()
	for _, view := range []models.AgendaView{models.AgendaViewNow, models.AgendaViewLater} {
		for _, b := range models.BucketOrder(view) {
			if bucketLabels[b] == "" {
				t.Errorf("no label for bucket %s", b)
			}
		}
	}
}

func TestRenderPending(t *testing.T) {
	t.Parallel()
	reg := registry.Default()

	out := renderPending("2025-10-15", nil, reg)
	if !strings.Contains(out, "All caught up.") {
		t.Errorf("empty pending = %q", out)
	}

	out = renderPending("2025-10-15", []models.PendingEntry{
		{Section: models.SectionMind, ItemID: "read", Frequency: 4, Completions: 1, CompletedToday: true},
		{Section: models.SectionHome, ItemID: "retired", Frequency: 1, FailedOpen: true},
	}, reg)
	for _, want := range []string{"Read", "1/4", "done today", "retired", "config error"} {
		if !strings.Contains(out, want) {
			t.Errorf("pending output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderConfigs(t *testing.T) {
	t.Parallel()
	reg := registry.Default()
	out := renderConfigs(reg, map[database.ItemKey]models.RecurrenceConfig{
		{Section: models.SectionFitness, ItemID: "walk"}: {Active: true, Frequency: 1, Type: models.CadenceDaily},
		{Section: models.SectionHome, ItemID: "clean"}:   {Active: false, Frequency: 2, Type: models.CadenceMonthly},
	})
	for _, want := range []string{"1× daily (each_day)", "2× monthly (each_month)", "inactive", "not configured"} {
		if !strings.Contains(out, want) {
			t.Errorf("configs output missing %q:\n%s", want, out)
		}
	}
	for _, section := range reg.Sections() {
		if !strings.Contains(out, string(section)) {
			t.Errorf("configs output missing section %s", section)
		}
	}
}
