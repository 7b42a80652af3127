package daysplit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestSplitSegmentByDay_AcrossMidnight(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	iv := Interval{Start: at(loc, 2026, 1, 15, 23, 30), End: at(loc, 2026, 1, 16, 0, 30)}

	splits := SplitSegmentByDay(iv, time.Time{}, loc)
	require.Len(t, splits, 2)

	require.Equal(t, "2026-01-15", splits[0].Date)
	require.Equal(t, 30*time.Minute, splits[0].Duration)
	require.True(t, splits[0].PortionStart.Equal(iv.Start))

	require.Equal(t, "2026-01-16", splits[1].Date)
	require.Equal(t, 30*time.Minute, splits[1].Duration)
	require.True(t, splits[1].PortionStart.Equal(at(loc, 2026, 1, 16, 0, 0)))

	require.Equal(t, time.Hour, Total(splits))
}

func TestSplitSegmentByDay_EndNotAfterStart(t *testing.T) {
	loc := time.UTC
	start := at(loc, 2026, 1, 15, 10, 0)

	if got := SplitSegmentByDay(Interval{Start: start, End: start}, time.Time{}, loc); len(got) != 0 {
		t.Errorf("equal bounds: got %d splits, want 0", len(got))
	}
	if got := SplitSegmentByDay(Interval{Start: start, End: start.Add(-time.Minute)}, time.Time{}, loc); len(got) != 0 {
		t.Errorf("reversed bounds: got %d splits, want 0", len(got))
	}
}

func TestSplitSegmentByDay_SameDay(t *testing.T) {
	loc := time.UTC
	iv := Interval{Start: at(loc, 2026, 1, 15, 9, 0), End: at(loc, 2026, 1, 15, 17, 15)}

	splits := SplitSegmentByDay(iv, time.Time{}, loc)
	if len(splits) != 1 {
		t.Fatalf("got %d splits, want 1", len(splits))
	}
	if splits[0].Duration != 8*time.Hour+15*time.Minute {
		t.Errorf("Duration = %v", splits[0].Duration)
	}
}

func TestSplitSegmentByDay_OpenUsesNow(t *testing.T) {
	loc := time.UTC
	iv := Interval{Start: at(loc, 2026, 1, 15, 22, 0)}
	now := at(loc, 2026, 1, 17, 1, 0)

	splits := SplitSegmentByDay(iv, now, loc)
	require.Len(t, splits, 3)
	require.Equal(t, []string{"2026-01-15", "2026-01-16", "2026-01-17"},
		[]string{splits[0].Date, splits[1].Date, splits[2].Date})
	require.Equal(t, 2*time.Hour, splits[0].Duration)
	require.Equal(t, 24*time.Hour, splits[1].Duration)
	require.Equal(t, time.Hour, splits[2].Duration)
	require.True(t, iv.End.IsZero(), "interval must not be mutated")
}

func TestSplitSegmentByDay_ExactlyMidnightEnd(t *testing.T) {
	loc := time.UTC
	iv := Interval{Start: at(loc, 2026, 1, 15, 23, 0), End: at(loc, 2026, 1, 16, 0, 0)}

	// No midnight lies strictly between start and end, so one split
	splits := SplitSegmentByDay(iv, time.Time{}, loc)
	require.Len(t, splits, 1)
	require.Equal(t, "2026-01-15", splits[0].Date)
	require.Equal(t, time.Hour, splits[0].Duration)
}

func TestSplitSegmentByDay_InvariantsAcrossDST(t *testing.T) {
	loc := mustLoad(t, "America/New_York")

	cases := []Interval{
		// spring forward: 2026-03-08 has 23 hours
		{Start: at(loc, 2026, 3, 7, 20, 0), End: at(loc, 2026, 3, 9, 4, 0)},
		// fall back: 2026-11-01 has 25 hours
		{Start: at(loc, 2026, 10, 31, 23, 59), End: at(loc, 2026, 11, 2, 0, 1)},
		{Start: at(loc, 2026, 1, 1, 0, 0), End: at(loc, 2026, 1, 11, 0, 0)},
	}

	for _, iv := range cases {
		splits := SplitSegmentByDay(iv, time.Time{}, loc)

		if got := Total(splits); got != iv.End.Sub(iv.Start) {
			t.Errorf("%v: total = %v, want %v", iv.Start, got, iv.End.Sub(iv.Start))
		}

		midnights := 0
		for m := nextMidnight(iv.Start, loc); m.Before(iv.End); m = nextMidnight(m, loc) {
			midnights++
		}
		if len(splits) != midnights+1 {
			t.Errorf("%v: %d splits, want %d", iv.Start, len(splits), midnights+1)
		}
	}
}

func TestSplitSegmentsByDay_AggregatesSameDay(t *testing.T) {
	loc := time.UTC
	first := Interval{Start: at(loc, 2026, 1, 15, 9, 0), End: at(loc, 2026, 1, 15, 9, 10)}
	second := Interval{Start: at(loc, 2026, 1, 15, 11, 0), End: at(loc, 2026, 1, 15, 11, 20)}

	splits := SplitSegmentsByDay([]Interval{second, first}, time.Time{}, loc)
	require.Len(t, splits, 1)
	require.Equal(t, "2026-01-15", splits[0].Date)
	require.Equal(t, 30*time.Minute, splits[0].Duration)
	require.True(t, splits[0].PortionStart.Equal(first.Start))
}

func TestSplitSegmentsByDay_SortedByDate(t *testing.T) {
	loc := time.UTC
	ivs := []Interval{
		{Start: at(loc, 2026, 1, 15, 23, 0), End: at(loc, 2026, 1, 16, 1, 0)},
		{Start: at(loc, 2026, 1, 16, 8, 0), End: at(loc, 2026, 1, 16, 9, 0)},
		{Start: at(loc, 2026, 1, 14, 8, 0), End: at(loc, 2026, 1, 14, 8, 45)},
	}

	splits := SplitSegmentsByDay(ivs, time.Time{}, loc)
	require.Len(t, splits, 3)
	require.Equal(t, "2026-01-14", splits[0].Date)
	require.Equal(t, "2026-01-15", splits[1].Date)
	require.Equal(t, "2026-01-16", splits[2].Date)
	require.Equal(t, 2*time.Hour, splits[2].Duration)
	require.True(t, splits[2].PortionStart.Equal(at(loc, 2026, 1, 16, 0, 0)))
}

func TestDateKey_UsesLocation(t *testing.T) {
	instant := time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC)

	if got := DateKey(instant, time.UTC); got != "2026-01-15" {
		t.Errorf("UTC DateKey = %q", got)
	}
	if got := DateKey(instant, time.FixedZone("east", 2*3600)); got != "2026-01-16" {
		t.Errorf("UTC+2 DateKey = %q", got)
	}
}

func TestLabel(t *testing.T) {
	loc := time.UTC
	now := at(loc, 2026, 1, 16, 0, 30)

	tests := []struct {
		key  string
		want string
	}{
		{"2026-01-16", "Today"},
		{"2026-01-15", "Yesterday"},
		{"2026-01-14", "January 14, 2026"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := Label(tt.key, now, loc); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
