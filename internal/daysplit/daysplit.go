// Package daysplit attributes work intervals to local calendar days.
//
// DateKey is the only place an instant is mapped to a calendar day. Writers
// (history entries) and readers (day-grouped history views) both go through it.
package daysplit

import (
	"sort"
	"time"
)

// DateLayout is the canonical date key format.
const DateLayout = "2006-01-02"

// Interval is a half-open span of work. A zero End means the interval is still open.
type Interval struct {
	Start time.Time
	End   time.Time
}

// DaySplit is the part of one or more intervals that falls on a single local day.
type DaySplit struct {
	Date         string
	Duration     time.Duration
	PortionStart time.Time
}

// DateKey returns the local calendar date of t in loc as YYYY-MM-DD.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format(DateLayout)
}

// nextMidnight returns the first local midnight strictly after t.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// SplitSegmentByDay cuts iv at every local midnight between its start and end.
// An open interval is measured up to now; iv itself is not modified.
// Returns nil when end is not after start.
func SplitSegmentByDay(iv Interval, now time.Time, loc *time.Location) []DaySplit {
	loc = location(loc)
	end := iv.End
	if end.IsZero() {
		end = now
	}
	if !end.After(iv.Start) {
		return nil
	}

	var splits []DaySplit
	cur := iv.Start
	for {
		midnight := nextMidnight(cur, loc)
		if !midnight.Before(end) {
			splits = append(splits, DaySplit{
				Date:         DateKey(cur, loc),
				Duration:     end.Sub(cur),
				PortionStart: cur,
			})
			return splits
		}
		splits = append(splits, DaySplit{
			Date:         DateKey(cur, loc),
			Duration:     midnight.Sub(cur),
			PortionStart: cur,
		})
		cur = midnight
	}
}

// SplitSegmentsByDay splits every interval and merges the portions landing on
// the same day, summing durations and keeping the earliest portion start.
// The result is sorted by date ascending.
func SplitSegmentsByDay(ivs []Interval, now time.Time, loc *time.Location) []DaySplit {
	byDate := make(map[string]*DaySplit)
	for _, iv := range ivs {
		for _, split := range SplitSegmentByDay(iv, now, loc) {
			existing, ok := byDate[split.Date]
			if !ok {
				s := split
				byDate[split.Date] = &s
				continue
			}
			existing.Duration += split.Duration
			if split.PortionStart.Before(existing.PortionStart) {
				existing.PortionStart = split.PortionStart
			}
		}
	}

	result := make([]DaySplit, 0, len(byDate))
	for _, s := range byDate {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

// Total sums the durations of splits.
func Total(splits []DaySplit) time.Duration {
	var total time.Duration
	for _, s := range splits {
		total += s.Duration
	}
	return total
}

// Label renders a date key for display relative to now:
// "Today", "Yesterday", or a long date such as "January 15, 2026".
func Label(dateKey string, now time.Time, loc *time.Location) string {
	loc = location(loc)
	if dateKey == DateKey(now, loc) {
		return "Today"
	}
	local := now.In(loc)
	y, m, d := local.Date()
	if dateKey == DateKey(time.Date(y, m, d-1, 12, 0, 0, 0, loc), loc) {
		return "Yesterday"
	}
	day, err := time.ParseInLocation(DateLayout, dateKey, loc)
	if err != nil {
		return dateKey
	}
	return day.Format("January 2, 2006")
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
