// Package agenda places dated tasks into display buckets for the "now" and
// "later" views.
package agenda

import (
	"time"

	"github.com/benvon/smart-agenda/internal/calendar"
	"github.com/benvon/smart-agenda/internal/models"
)

// quarterMonths is the length of the rolling NEXT_QUARTER window.
const quarterMonths = 3

// Anchor returns the date a task is placed by: due date, else start date.
// The result is a canonical date in now's location; ok is false for undated
// tasks.
func Anchor(task *models.Task, now time.Time) (time.Time, bool) {
	if task == nil {
		return time.Time{}, false
	}
	if d, ok := calendar.Parse(task.DueDate, now.Location()); ok {
		return d, true
	}
	return calendar.Parse(task.StartDate, now.Location())
}

// BucketFor classifies an anchor under view. Checks run from narrowest to
// broadest and the first match wins, so exactly one bucket is returned.
func BucketFor(anchor time.Time, hasAnchor bool, view models.AgendaView, now time.Time) models.Bucket {
	if !hasAnchor {
		return models.BucketNoDate
	}
	if view == models.AgendaViewLater {
		return laterBucket(anchor, now)
	}
	return nowBucket(anchor, now)
}

// TaskBucket is BucketFor applied to a task's anchor.
func TaskBucket(task *models.Task, view models.AgendaView, now time.Time) models.Bucket {
	anchor, ok := Anchor(task, now)
	return BucketFor(anchor, ok, view, now)
}

func nowBucket(anchor, now time.Time) models.Bucket {
	today := calendar.Today(now)
	key := calendar.Key(anchor)

	switch {
	case key <= calendar.Key(today):
		// overdue collapses into today
		return models.BucketToday
	case key == calendar.Key(calendar.AddDays(today, 1)):
		return models.BucketTomorrow
	case calendar.WeekWindow(now).Contains(anchor):
		return models.BucketThisWeek
	case calendar.MonthWindow(now).Contains(anchor):
		return models.BucketThisMonth
	case quarterWindow(now).Contains(anchor):
		return models.BucketNextQuarter
	case calendar.YearWindow(now).Contains(anchor):
		return models.BucketThisYear
	default:
		return models.BucketLater
	}
}

func laterBucket(anchor, now time.Time) models.Bucket {
	switch {
	case calendar.WeekWindow(now).Contains(anchor):
		return models.BucketThisWeek
	case calendar.MonthWindow(now).Contains(anchor):
		return models.BucketThisMonth
	case calendar.NextMonth(now).Contains(anchor):
		return models.BucketNextMonth
	case quarterWindow(now).Contains(anchor):
		return models.BucketNextQuarter
	case calendar.YearWindow(now).Contains(anchor):
		return models.BucketThisYear
	default:
		return models.BucketLater
	}
}

func quarterWindow(now time.Time) calendar.Window {
	today := calendar.Today(now)
	return calendar.Window{Start: today, End: calendar.AddMonthsClamped(today, quarterMonths)}
}
