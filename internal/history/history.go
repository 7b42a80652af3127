// Package history turns a finished segment log into per-day entries for a
// task and serves the day-grouped history view.
package history

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moiskillnadne/work-time-tracker/internal/daysplit"
	"github.com/moiskillnadne/work-time-tracker/internal/store"
	"github.com/moiskillnadne/work-time-tracker/internal/tasks"
	"github.com/moiskillnadne/work-time-tracker/internal/timer"
)

// Entry is an immutable record of work on one task on one local day.
type Entry struct {
	ID           string
	TaskID       string
	Duration     time.Duration
	PortionStart time.Time
	SavedAt      time.Time
}

// Group is one local day of a task's history.
type Group struct {
	Date    string
	Label   string
	Entries []Entry
	Total   time.Duration
}

// View is a task's history grouped by day, newest day first.
type View struct {
	TaskID     string
	Groups     []Group
	Total      time.Duration
	EntryCount int
}

// IsEmpty reports whether the view has no entries.
func (v View) IsEmpty() bool {
	return v.EntryCount == 0
}

// SaveResult describes a completed save.
type SaveResult struct {
	Task    tasks.Task
	Entries []Entry
	Total   time.Duration
}

// Persister is the slice of the store the aggregator needs.
type Persister interface {
	LoadHistory(ctx context.Context) (*store.HistoryRecord, bool)
	SaveHistory(ctx context.Context, rec store.HistoryRecord)
	ClearHistory(ctx context.Context)
}

// Timer is the timer surface SaveAndReset reads and resets.
type Timer interface {
	State() timer.State
	Reset(ctx context.Context) timer.State
}

// Registry is the task surface SaveAndReset credits.
type Registry interface {
	Get(id string) (tasks.Task, bool)
	IncrementElapsed(ctx context.Context, id string, d time.Duration) (tasks.Task, bool)
}

// Aggregator owns the history entries, newest first.
type Aggregator struct {
	mu       sync.Mutex
	entries  []Entry
	persist  Persister
	timer    Timer
	registry Registry
	now      func() time.Time
	loc      *time.Location
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the calendar used for day boundaries (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

// New rehydrates an Aggregator from p.
func New(ctx context.Context, p Persister, tm Timer, reg Registry, opts ...Option) *Aggregator {
	a := &Aggregator{persist: p, timer: tm, registry: reg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if rec, ok := p.LoadHistory(ctx); ok {
		a.entries = fromRecord(*rec)
	}
	return a
}

func (a *Aggregator) clock() time.Time {
	return time.UnixMilli(a.now().UnixMilli())
}

// SaveAndReset closes the timer's segment log, records one entry per local
// day for taskID, credits the total to the task and resets the timer.
// It is a no-op returning false when the log is empty, the elapsed total is
// zero, or the task does not exist.
func (a *Aggregator) SaveAndReset(ctx context.Context, taskID string) (SaveResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.registry.Get(taskID); !ok {
		return SaveResult{}, false
	}
	now := a.clock()
	state := a.timer.State()
	if len(state.Segments) == 0 || state.Elapsed(now) <= 0 {
		return SaveResult{}, false
	}

	closed := state.Closed(now)
	intervals := make([]daysplit.Interval, 0, len(closed))
	for _, seg := range closed {
		intervals = append(intervals, daysplit.Interval{Start: seg.Start, End: seg.End})
	}
	splits := daysplit.SplitSegmentsByDay(intervals, now, a.loc)
	if len(splits) == 0 {
		return SaveResult{}, false
	}

	created := make([]Entry, 0, len(splits))
	for _, sp := range splits {
		e := Entry{
			ID:           uuid.NewString(),
			TaskID:       taskID,
			Duration:     sp.Duration,
			PortionStart: sp.PortionStart,
			SavedAt:      now,
		}
		created = append(created, e)
		a.entries = append([]Entry{e}, a.entries...)
	}
	a.saveLocked(ctx)

	total := daysplit.Total(splits)
	task, _ := a.registry.IncrementElapsed(ctx, taskID, total)
	a.timer.Reset(ctx)

	return SaveResult{Task: task, Entries: created, Total: total}, true
}

// DeleteTaskHistory removes every entry of taskID.
func (a *Aggregator) DeleteTaskHistory(ctx context.Context, taskID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.entries[:0:0]
	for _, e := range a.entries {
		if e.TaskID != taskID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(a.entries) {
		return
	}
	a.entries = kept
	a.saveLocked(ctx)
}

// Clear removes all entries and the persisted record.
func (a *Aggregator) Clear(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
	a.persist.ClearHistory(ctx)
}

// Entries returns a copy of all entries, newest first.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Entry(nil), a.entries...)
}

// TaskHistory groups taskID's entries by the local day of their portion start.
// Days are newest first, and entries within a day are newest first.
func (a *Aggregator) TaskHistory(taskID string) View {
	a.mu.Lock()
	var mine []Entry
	for _, e := range a.entries {
		if e.TaskID == taskID {
			mine = append(mine, e)
		}
	}
	a.mu.Unlock()

	view := View{TaskID: taskID, Groups: []Group{}}
	if len(mine) == 0 {
		return view
	}

	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].PortionStart.After(mine[j].PortionStart)
	})

	now := a.clock()
	byDate := make(map[string]int)
	for _, e := range mine {
		key := daysplit.DateKey(e.PortionStart, a.loc)
		i, ok := byDate[key]
		if !ok {
			i = len(view.Groups)
			byDate[key] = i
			view.Groups = append(view.Groups, Group{Date: key, Label: daysplit.Label(key, now, a.loc)})
		}
		view.Groups[i].Entries = append(view.Groups[i].Entries, e)
		view.Groups[i].Total += e.Duration
		view.Total += e.Duration
		view.EntryCount++
	}

	sort.SliceStable(view.Groups, func(i, j int) bool {
		return view.Groups[i].Date > view.Groups[j].Date
	})
	return view
}

func (a *Aggregator) saveLocked(ctx context.Context) {
	rec := store.HistoryRecord{Entries: make([]store.HistoryEntryRecord, 0, len(a.entries))}
	for _, e := range a.entries {
		rec.Entries = append(rec.Entries, store.HistoryEntryRecord{
			ID:           e.ID,
			TaskID:       e.TaskID,
			Duration:     e.Duration.Milliseconds(),
			PortionStart: store.FormatISO(e.PortionStart),
			SavedAt:      store.FormatISO(e.SavedAt),
		})
	}
	a.persist.SaveHistory(ctx, rec)
}

func fromRecord(rec store.HistoryRecord) []Entry {
	entries := make([]Entry, 0, len(rec.Entries))
	for _, er := range rec.Entries {
		if er.ID == "" || er.TaskID == "" || er.Duration < 0 {
			log.Printf("history: skipping invalid entry %q", er.ID)
			continue
		}
		start, err := store.ParseISO(er.PortionStart)
		if err != nil {
			log.Printf("history: skipping entry %s: bad portionStart: %v", er.ID, err)
			continue
		}
		saved, err := store.ParseISO(er.SavedAt)
		if err != nil {
			saved = start
		}
		entries = append(entries, Entry{
			ID:           er.ID,
			TaskID:       er.TaskID,
			Duration:     time.Duration(er.Duration) * time.Millisecond,
			PortionStart: start,
			SavedAt:      saved,
		})
	}
	return entries
}
