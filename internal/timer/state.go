package timer

import (
	"fmt"
	"time"

	"github.com/moiskillnadne/work-time-tracker/internal/store"
)

// Status is the timer lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// ParseStatus validates a persisted status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusIdle, StatusRunning, StatusPaused:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown timer status %q", s)
	}
}

// Segment is one contiguous interval of tracked work.
// A zero End means the segment is still open.
type Segment struct {
	Start time.Time
	End   time.Time
}

// Open reports whether the segment has no end yet.
func (s Segment) Open() bool {
	return s.End.IsZero()
}

// Duration measures the segment, using now for an open end. Never negative.
func (s Segment) Duration(now time.Time) time.Duration {
	end := s.End
	if s.Open() {
		end = now
	}
	if d := end.Sub(s.Start); d > 0 {
		return d
	}
	return 0
}

// State is an immutable timer snapshot. Transitions return a new State and
// never modify the receiver's segment slice.
//
// Invariants: running iff the last segment is open; idle implies no segments;
// paused implies at least one segment and none open.
type State struct {
	Status   Status
	Segments []Segment
}

// Idle returns the default state.
func Idle() State {
	return State{Status: StatusIdle}
}

// Start opens a new segment at now. Running states are returned unchanged.
// A now earlier than the last segment's end (a wall clock stepped back) is
// moved up to that end so segments stay in start order.
func (s State) Start(now time.Time) State {
	if s.Status == StatusRunning {
		return s
	}
	if n := len(s.Segments); n > 0 {
		last := s.Segments[n-1]
		floor := last.Start
		if !last.Open() && last.End.After(floor) {
			floor = last.End
		}
		if now.Before(floor) {
			now = floor
		}
	}
	segs := make([]Segment, len(s.Segments), len(s.Segments)+1)
	copy(segs, s.Segments)
	segs = append(segs, Segment{Start: now})
	return State{Status: StatusRunning, Segments: segs}
}

// Pause closes the open segment at now. Non-running states are returned unchanged.
func (s State) Pause(now time.Time) State {
	if s.Status != StatusRunning {
		return s
	}
	return State{Status: StatusPaused, Segments: s.Closed(now)}
}

// Reset discards all segments. A running state is implicitly paused first,
// which only matters to callers that captured Closed beforehand.
func (s State) Reset() State {
	return Idle()
}

// Closed returns a copy of the segments with any open segment ended at now.
// An end before the segment start is clamped to the start.
func (s State) Closed(now time.Time) []Segment {
	segs := make([]Segment, len(s.Segments))
	copy(segs, s.Segments)
	for i := range segs {
		if segs[i].Open() {
			end := now
			if end.Before(segs[i].Start) {
				end = segs[i].Start
			}
			segs[i].End = end
		}
	}
	return segs
}

// Elapsed sums all segment durations, measuring an open segment up to now.
// It is recomputed from the log each call, so time spent suspended is counted.
func (s State) Elapsed(now time.Time) time.Duration {
	var total time.Duration
	for _, seg := range s.Segments {
		total += seg.Duration(now)
	}
	return total
}

// Validate checks the state invariants.
func (s State) Validate() error {
	switch s.Status {
	case StatusIdle:
		if len(s.Segments) != 0 {
			return fmt.Errorf("idle timer has %d segments", len(s.Segments))
		}
		return nil
	case StatusRunning, StatusPaused:
	default:
		return fmt.Errorf("unknown timer status %q", s.Status)
	}

	if len(s.Segments) == 0 {
		return fmt.Errorf("%s timer has no segments", s.Status)
	}
	for i, seg := range s.Segments {
		last := i == len(s.Segments)-1
		if seg.Open() && !last {
			return fmt.Errorf("segment %d is open but not last", i)
		}
		if !seg.Open() && seg.End.Before(seg.Start) {
			return fmt.Errorf("segment %d ends before it starts", i)
		}
		if i > 0 && seg.Start.Before(s.Segments[i-1].Start) {
			return fmt.Errorf("segment %d is out of order", i)
		}
	}
	lastOpen := s.Segments[len(s.Segments)-1].Open()
	if s.Status == StatusRunning && !lastOpen {
		return fmt.Errorf("running timer has no open segment")
	}
	if s.Status == StatusPaused && lastOpen {
		return fmt.Errorf("paused timer has an open segment")
	}
	return nil
}

// ToRecord converts s to its persisted form.
func ToRecord(s State) store.TimerRecord {
	rec := store.TimerRecord{
		Status:   string(s.Status),
		Segments: make([]store.SegmentRecord, 0, len(s.Segments)),
	}
	for _, seg := range s.Segments {
		sr := store.SegmentRecord{Start: store.Millis(seg.Start)}
		if !seg.Open() {
			end := store.Millis(seg.End)
			sr.End = &end
		}
		rec.Segments = append(rec.Segments, sr)
	}
	return rec
}

// FromRecord converts a persisted record back to a State and validates it.
func FromRecord(rec store.TimerRecord) (State, error) {
	status, err := ParseStatus(rec.Status)
	if err != nil {
		return Idle(), err
	}
	s := State{Status: status}
	for _, sr := range rec.Segments {
		seg := Segment{Start: store.FromMillis(sr.Start)}
		if sr.End != nil {
			seg.End = store.FromMillis(*sr.End)
		}
		s.Segments = append(s.Segments, seg)
	}
	if err := s.Validate(); err != nil {
		return Idle(), err
	}
	return s, nil
}
