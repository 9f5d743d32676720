package agenda

import (
	"sort"
	"time"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
)

// Membership returns the view a task belongs to. Tasks without dates or whose
// start date has arrived belong to "now"; a future start moves them to "later".
func Membership(task *models.Task, now time.Time) models.AgendaView {
	if task == nil {
		return models.AgendaViewNow
	}
	start, ok := calendar.Parse(task.StartDate, now.Location())
	if !ok {
		return models.AgendaViewNow
	}
	if calendar.Key(start) <= calendar.Key(calendar.Today(now)) {
		return models.AgendaViewNow
	}
	return models.AgendaViewLater
}

// Sort orders tasks by anchor ascending, undated tasks last. Ties break on
// title then id so the order is total.
func Sort(tasks []*models.Task, now time.Time) {
	type keyed struct {
		task  *models.Task
		key   string
		dated bool
	}
	ks := make([]keyed, len(tasks))
	for i, t := range tasks {
		a, ok := Anchor(t, now)
		ks[i] = keyed{task: t, dated: ok}
		if ok {
			ks[i].key = calendar.Key(a)
		}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.dated != b.dated {
			return a.dated
		}
		if a.key != b.key {
			return a.key < b.key
		}
		at, bt := title(a.task), title(b.task)
		if at != bt {
			return at < bt
		}
		return id(a.task) < id(b.task)
	})
	for i := range ks {
		tasks[i] = ks[i].task
	}
}

// Group buckets tasks under view and returns the non-empty buckets in display
// order, each sorted with Sort.
func Group(tasks []*models.Task, view models.AgendaView, now time.Time) []models.AgendaGroup {
	sorted := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			sorted = append(sorted, t)
		}
	}
	Sort(sorted, now)

	buckets := make(map[models.Bucket][]*models.Task)
	for _, t := range sorted {
		b := TaskBucket(t, view, now)
		buckets[b] = append(buckets[b], t)
	}

	var groups []models.AgendaGroup
	for _, b := range models.BucketOrder(view) {
		if ts := buckets[b]; len(ts) > 0 {
			groups = append(groups, models.AgendaGroup{Bucket: b, Tasks: ts})
		}
	}
	return groups
}

// View filters tasks to those that belong to view and groups them.
func View(tasks []*models.Task, view models.AgendaView, now time.Time) []models.AgendaGroup {
	var members []*models.Task
	for _, t := range tasks {
		if t != nil && Membership(t, now) == view {
			members = append(members, t)
		}
	}
	return Group(members, view, now)
}

func title(t *models.Task) string {
	if t == nil {
		return ""
	}
	return t.Title
}

func id(t *models.Task) string {
	if t == nil {
		return ""
	}
	return t.ID.String()
}
