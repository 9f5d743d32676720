package models

// AgendaView selects which bucketing rules apply
type AgendaView string

const (
	AgendaViewNow   AgendaView = "now"
	AgendaViewLater AgendaView = "later"
)

// IsValid reports whether v is a known view
func (v AgendaView) IsValid() bool {
	return v == AgendaViewNow || v == AgendaViewLater
}

// Bucket is a display group for agenda items
type Bucket string

const (
	BucketNoDate      Bucket = "NO_DATE"
	BucketToday       Bucket = "TODAY"
	BucketTomorrow    Bucket = "TOMORROW"
	BucketThisWeek    Bucket = "THIS_WEEK"
	BucketThisMonth   Bucket = "THIS_MONTH"
	BucketNextMonth   Bucket = "NEXT_MONTH"
	BucketNextQuarter Bucket = "NEXT_QUARTER"
	BucketThisYear    Bucket = "THIS_YEAR"
	BucketLater       Bucket = "LATER"
)

// BucketOrder lists the buckets a view can produce, in display order.
// NO_DATE is always last.
func BucketOrder(view AgendaView) []Bucket {
	if view == AgendaViewLater {
		return []Bucket{BucketThisWeek, BucketThisMonth, BucketNextMonth, BucketNextQuarter, BucketThisYear, BucketLater, BucketNoDate}
	}
	return []Bucket{BucketToday, BucketTomorrow, BucketThisWeek, BucketThisMonth, BucketNextQuarter, BucketThisYear, BucketLater, BucketNoDate}
}

// AgendaEntry is a task placed in a bucket
type AgendaEntry struct {
	Task   *Task  `json:"task"`
	Bucket Bucket `json:"bucket"`
}

// AgendaGroup is a non-empty bucket with its tasks in sort order
type AgendaGroup struct {
	Bucket Bucket  `json:"bucket"`
	Tasks  []*Task `json:"tasks"`
}
