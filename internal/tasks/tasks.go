// Package tasks owns the task list, the selection pointer and each task's
// cumulative tracked time.
package tasks

import (
	"context"
	"crypto/rand"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/moiskillnadne/work-time-tracker/internal/errors"
	"github.com/moiskillnadne/work-time-tracker/internal/store"
	"github.com/moiskillnadne/work-time-tracker/internal/timer"
)

// MaxTitleLength is the maximum title length in characters.
const MaxTitleLength = 120

// Task is a named unit of work with cumulative elapsed time.
type Task struct {
	ID        string
	Title     string
	Elapsed   time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateInput lists editable fields (nil = don't change).
type UpdateInput struct {
	Title   *string
	Elapsed *time.Duration
}

// Persister is the slice of the store the registry needs.
type Persister interface {
	LoadTaskList(ctx context.Context) (*store.TaskListRecord, bool)
	SaveTaskList(ctx context.Context, rec store.TaskListRecord)
	ClearTaskList(ctx context.Context)
}

// HistoryPurger removes every history entry of a deleted task.
type HistoryPurger interface {
	DeleteTaskHistory(ctx context.Context, taskID string)
}

// SelectionGuard reports the timer status. Selection cannot change unless it is idle.
type SelectionGuard interface {
	Status() timer.Status
}

// Registry is the in-memory task list, persisted after every mutation.
type Registry struct {
	mu       sync.Mutex
	tasks    []Task // newest first
	selected string
	persist  Persister
	guard    SelectionGuard
	purger   HistoryPurger
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithGuard installs the selection guard.
func WithGuard(g SelectionGuard) Option {
	return func(r *Registry) { r.guard = g }
}

// WithPurger installs the history purger used by Delete.
func WithPurger(p HistoryPurger) Option {
	return func(r *Registry) { r.purger = p }
}

// New rehydrates a Registry from p.
func New(ctx context.Context, p Persister, opts ...Option) *Registry {
	r := &Registry{persist: p, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if rec, ok := p.LoadTaskList(ctx); ok {
		r.tasks, r.selected = fromRecord(*rec)
	}
	return r
}

// SetPurger installs the history purger after construction. The history
// aggregator depends on the registry, so the engine wires this last.
func (r *Registry) SetPurger(p HistoryPurger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purger = p
}

func (r *Registry) clock() time.Time {
	return time.UnixMilli(r.now().UnixMilli())
}

// ClampTitle trims surrounding whitespace and truncates to MaxTitleLength characters.
func ClampTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	return string([]rune(title)[:MaxTitleLength])
}

// Add creates a task and prepends it to the list.
func (r *Registry) Add(ctx context.Context, title string) Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	t := Task{
		ID:        newID(now),
		Title:     ClampTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.tasks = append([]Task{t}, r.tasks...)
	r.saveLocked(ctx)
	return t
}

// Update merges the provided fields into the task. Returns false when id is unknown.
func (r *Registry) Update(ctx context.Context, id string, in UpdateInput) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Task{}, false
	}
	t := &r.tasks[i]
	if in.Title != nil {
		t.Title = ClampTitle(*in.Title)
	}
	if in.Elapsed != nil && *in.Elapsed >= 0 {
		t.Elapsed = *in.Elapsed
	}
	t.UpdatedAt = r.clock()
	r.saveLocked(ctx)
	return *t, true
}

// Rename changes a task's title.
func (r *Registry) Rename(ctx context.Context, id, title string) (Task, bool) {
	return r.Update(ctx, id, UpdateInput{Title: &title})
}

// IncrementElapsed adds d to the task's elapsed time. Negative d is ignored.
func (r *Registry) IncrementElapsed(ctx context.Context, id string, d time.Duration) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Task{}, false
	}
	if d > 0 {
		r.tasks[i].Elapsed += d
		r.tasks[i].UpdatedAt = r.clock()
		r.saveLocked(ctx)
	}
	return r.tasks[i], true
}

// Delete removes a task, clears the selection if it pointed at it, and
// cascades to the task's history. Returns false when id is unknown.
func (r *Registry) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.tasks = append(r.tasks[:i:i], r.tasks[i+1:]...)
	if r.selected == id {
		r.selected = ""
	}
	r.saveLocked(ctx)
	purger := r.purger
	r.mu.Unlock()

	// Outside the lock: the purger may call back into the registry.
	if purger != nil {
		purger.DeleteTaskHistory(ctx, id)
	}
	return true
}

// Select makes id the selected task. Selecting the current selection, or an
// empty id, clears it. Unknown ids are ignored. Any change while the timer is
// not idle fails with ErrTimerActive. Returns the resulting selected id.
func (r *Registry) Select(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := id
	if id == r.selected {
		next = ""
	} else if id != "" && r.indexLocked(id) < 0 {
		return r.selected, nil
	}
	if next == r.selected {
		return r.selected, nil
	}

	if r.guard != nil {
		if status := r.guard.Status(); status != timer.StatusIdle {
			return r.selected, errors.NewTimerActive(string(status))
		}
	}

	r.selected = next
	r.saveLocked(ctx)
	return r.selected, nil
}

// ClearAll removes every task and the selection, and clears the persisted list.
func (r *Registry) ClearAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = nil
	r.selected = ""
	r.persist.ClearTaskList(ctx)
}

// List returns a copy of all tasks, newest first.
func (r *Registry) List() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}

// Get returns the task with id.
func (r *Registry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.tasks[i], true
	}
	return Task{}, false
}

// Selected returns the selected task, if any.
func (r *Registry) Selected() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == "" {
		return Task{}, false
	}
	if i := r.indexLocked(r.selected); i >= 0 {
		return r.tasks[i], true
	}
	return Task{}, false
}

func (r *Registry) indexLocked(id string) int {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) saveLocked(ctx context.Context) {
	r.persist.SaveTaskList(ctx, toRecord(r.tasks, r.selected))
}

func newID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

func toRecord(tasks []Task, selected string) store.TaskListRecord {
	rec := store.TaskListRecord{Tasks: make([]store.TaskRecord, 0, len(tasks))}
	for _, t := range tasks {
		rec.Tasks = append(rec.Tasks, store.TaskRecord{
			ID:          t.ID,
			Title:       t.Title,
			ElapsedTime: t.Elapsed.Milliseconds(),
			CreatedAt:   store.FormatISO(t.CreatedAt),
			UpdatedAt:   store.FormatISO(t.UpdatedAt),
		})
	}
	if selected != "" {
		rec.SelectedTaskID = &selected
	}
	return rec
}

// fromRecord drops tasks with missing ids, duplicates or bad timestamps, and a
// selection that no longer points at a task.
func fromRecord(rec store.TaskListRecord) ([]Task, string) {
	seen := make(map[string]bool, len(rec.Tasks))
	tasks := make([]Task, 0, len(rec.Tasks))
	for _, tr := range rec.Tasks {
		if tr.ID == "" || seen[tr.ID] {
			log.Printf("tasks: skipping invalid task record %q", tr.ID)
			continue
		}
		created, err := store.ParseISO(tr.CreatedAt)
		if err != nil {
			log.Printf("tasks: skipping task %s: bad createdAt: %v", tr.ID, err)
			continue
		}
		updated, err := store.ParseISO(tr.UpdatedAt)
		if err != nil {
			updated = created
		}
		elapsed := time.Duration(tr.ElapsedTime) * time.Millisecond
		if elapsed < 0 {
			elapsed = 0
		}
		seen[tr.ID] = true
		tasks = append(tasks, Task{
			ID:        tr.ID,
			Title:     ClampTitle(tr.Title),
			Elapsed:   elapsed,
			CreatedAt: created,
			UpdatedAt: updated,
		})
	}

	selected := ""
	if rec.SelectedTaskID != nil && seen[*rec.SelectedTaskID] {
		selected = *rec.SelectedTaskID
	}
	return tasks, selected
}
