package calendar

import "time"

// WeekStart is the first day of every calendar week (ISO 8601).
const WeekStart = time.Monday

// Window is an inclusive range of canonical dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the calendar day of t lies within the window.
func (w Window) Contains(t time.Time) bool {
	k := Key(t)
	return k >= Key(w.Start) && k <= Key(w.End)
}

// Days returns the number of calendar days covered by the window.
func (w Window) Days() int {
	n := 0
	for d := w.Start; Key(d) <= Key(w.End); d = AddDays(d, 1) {
		n++
	}
	return n
}

// DayWindow covers only the calendar day of now.
func DayWindow(now time.Time) Window {
	today := Today(now)
	return Window{Start: today, End: today}
}

// WeekWindow covers the Monday–Sunday week containing now.
func WeekWindow(now time.Time) Window {
	return Window{Start: StartOfWeek(now), End: EndOfWeek(now)}
}

// MonthWindow covers the calendar month containing now.
func MonthWindow(now time.Time) Window {
	return Window{Start: StartOfMonth(now), End: EndOfMonth(now)}
}

// StartOfWeek returns the Monday on or before now.
func StartOfWeek(now time.Time) time.Time {
	today := Today(now)
	offset := (int(today.Weekday()) - int(WeekStart) + 7) % 7
	return AddDays(today, -offset)
}

// EndOfWeek returns the Sunday on or after now.
func EndOfWeek(now time.Time) time.Time {
	return AddDays(StartOfWeek(now), 6)
}

// StartOfMonth returns the first day of now's month.
func StartOfMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return Noon(y, m, 1, now.Location())
}

// EndOfMonth returns the last day of now's month.
func EndOfMonth(now time.Time) time.Time {
	y, m, _ := now.Date()
	return Noon(y, m, daysIn(m, y), now.Location())
}

// NextMonth returns the window covering the calendar month after now's month.
func NextMonth(now time.Time) Window {
	first := AddMonthsClamped(StartOfMonth(now), 1)
	return Window{Start: first, End: EndOfMonth(first)}
}

// YearWindow covers the calendar year containing now.
func YearWindow(now time.Time) Window {
	y := now.Year()
	return Window{Start: Noon(y, time.January, 1, now.Location()), End: Noon(y, time.December, 31, now.Location())}
}
