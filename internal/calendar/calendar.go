// Package calendar generates the target dates for date-based version
// creation from a project's release rule.
package calendar

import (
	"sort"
	"time"

	"github.com/jackalski/jira-version-manager/internal/core"
)

// Window bounds the generated date range.
type Window int

const (
	// CurrentMonth covers today through the end of the current month.
	CurrentMonth Window = iota
	// NextMonth covers the whole of next month.
	NextMonth
	// BothMonths covers today through the end of next month.
	BothMonths
)

// defaultWeekdays is the fallback selection when a rule names no mode at
// all: Monday through Thursday.
var defaultWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday}

// Generate walks each day of the window and keeps the ones the rule
// selects. Exactly one selection mode is active: the first populated input
// wins, in the order weekdays, month days, year days, fixed day offsets,
// interval, then the Monday-Thursday fallback. Frequency keeps every Nth
// selected date. With NextWorkingDay set, weekend hits advance to the next
// Monday. The result is deduplicated and sorted ascending.
func Generate(rule core.ReleaseRule, window Window, now time.Time) []time.Time {
	start, end := bounds(window, now)
	selected := selectDates(rule, start, end)

	if rule.Frequency > 1 {
		kept := selected[:0]
		for i, d := range selected {
			if i%rule.Frequency == 0 {
				kept = append(kept, d)
			}
		}
		selected = kept
	}

	if rule.NextWorkingDay {
		for i, d := range selected {
			selected[i] = nextWorkingDay(d)
		}
	}

	return dedupeSorted(selected)
}

func bounds(window Window, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	switch window {
	case NextMonth:
		return firstOfNext, firstOfNext.AddDate(0, 1, -1)
	case BothMonths:
		return today, firstOfNext.AddDate(0, 1, -1)
	default:
		return today, firstOfNext.AddDate(0, 0, -1)
	}
}

func selectDates(rule core.ReleaseRule, start, end time.Time) []time.Time {
	var out []time.Time
	switch {
	case len(rule.Weekdays) > 0:
		out = filterDays(start, end, func(d time.Time, _ int) bool {
			return weekdayIn(d.Weekday(), rule.Weekdays)
		})
	case len(rule.MonthDays) > 0:
		out = filterDays(start, end, func(d time.Time, _ int) bool {
			return intIn(d.Day(), rule.MonthDays)
		})
	case len(rule.YearDays) > 0:
		out = filterDays(start, end, func(d time.Time, _ int) bool {
			return intIn(d.YearDay(), rule.YearDays)
		})
	case len(rule.DayOffsets) > 0:
		out = filterDays(start, end, func(_ time.Time, offset int) bool {
			return intIn(offset, rule.DayOffsets)
		})
	case rule.Interval > 0:
		out = filterDays(start, end, func(_ time.Time, offset int) bool {
			return offset%rule.Interval == 0
		})
	default:
		out = filterDays(start, end, func(d time.Time, _ int) bool {
			return weekdayIn(d.Weekday(), defaultWeekdays)
		})
	}
	return out
}

func filterDays(start, end time.Time, keep func(d time.Time, offset int) bool) []time.Time {
	var out []time.Time
	for d, offset := start, 0; !d.After(end); d, offset = d.AddDate(0, 0, 1), offset+1 {
		if keep(d, offset) {
			out = append(out, d)
		}
	}
	return out
}

func nextWorkingDay(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

func dedupeSorted(dates []time.Time) []time.Time {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:0]
	var last time.Time
	for _, d := range dates {
		if !d.Equal(last) {
			out = append(out, d)
		}
		last = d
	}
	return out
}

func weekdayIn(w time.Weekday, set []time.Weekday) bool {
	for _, s := range set {
		if s == w {
			return true
		}
	}
	return false
}

func intIn(n int, set []int) bool {
	for _, s := range set {
		if s == n {
			return true
		}
	}
	return false
}
