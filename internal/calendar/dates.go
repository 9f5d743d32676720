package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// KeyLayout is the canonical, timezone-free representation of a calendar day.
const KeyLayout = "2006-01-02"

// noonHour is the hour every canonical date is anchored to. A one-hour DST
// shift or a UTC/local offset can never move noon onto another calendar day.
const noonHour = 12

var dateOnlyPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// genericLayouts are tried, in order, for strings that are not plain YYYY-MM-DD.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Noon returns local noon of the given calendar day in loc.
func Noon(year int, month time.Month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, month, day, noonHour, 0, 0, 0, loc)
}

// Normalize re-anchors t to local noon of its own calendar day.
// The year/month/day are read in t's embedded location, so an instant such as
// 2025-07-01T00:00:00Z stays on July 1 even when loc has a negative offset.
func Normalize(t time.Time, loc *time.Location) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return Noon(y, m, d, loc), true
}

// Parse converts heterogeneous date values into a canonical local-noon date.
// Supported inputs are nil, time.Time, *time.Time and strings. Anything that
// cannot be interpreted yields false rather than an error.
func Parse(value any, loc *time.Location) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return Normalize(v, loc)
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return Normalize(*v, loc)
	case string:
		return ParseString(v, loc)
	case *string:
		if v == nil {
			return time.Time{}, false
		}
		return ParseString(*v, loc)
	default:
		return time.Time{}, false
	}
}

// ParseString parses a date string. Plain YYYY-MM-DD values are built from
// their components directly; generic parsing would read them as UTC midnight
// and roll them back a day west of Greenwich.
func ParseString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := dateOnlyPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
			return time.Time{}, false
		}
		return Noon(year, time.Month(month), day, loc), true
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Normalize(t, loc)
		}
	}
	return time.Time{}, false
}

// Key formats a date as YYYY-MM-DD.
func Key(t time.Time) string {
	return t.Format(KeyLayout)
}

// KeyOf parses value and returns its canonical key, or "" when unparseable.
func KeyOf(value any) string {
	t, ok := Parse(value, time.UTC)
	if !ok {
		return ""
	}
	return Key(t)
}

// Today returns the canonical date for now, in now's location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return Noon(y, m, d, now.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddDays moves a canonical date by n calendar days, keeping the noon anchor.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return Noon(y, m, d+n, t.Location())
}

// AddMonthsClamped adds n calendar months, clamping the day to the last day of
// the target month (Jan 31 + 1 month is Feb 28 or 29, never Mar 3).
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, noonHour, 0, 0, 0, t.Location())
	ty, tm, _ := first.Date()
	if last := daysIn(tm, ty); d > last {
		d = last
	}
	return Noon(ty, tm, d, t.Location())
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
