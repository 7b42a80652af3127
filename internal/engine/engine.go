// Package engine wires the timer, task registry and history aggregator over
// one store and exposes the operations adapters call.
//
// The backing store is assumed to have a single writer. Every record carries
// lastUpdated and concurrent processes resolve by last write wins.
package engine

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/moiskillnadne/work-time-tracker/internal/config"
	"github.com/moiskillnadne/work-time-tracker/internal/db"
	"github.com/moiskillnadne/work-time-tracker/internal/history"
	"github.com/moiskillnadne/work-time-tracker/internal/store"
	"github.com/moiskillnadne/work-time-tracker/internal/tasks"
	"github.com/moiskillnadne/work-time-tracker/internal/timer"
)

// Options configures an Engine. Zero values mean time.Now and time.Local.
type Options struct {
	Now      func() time.Time
	Location *time.Location
}

// Engine is the collaborator-facing surface of the tracker.
//
// Mutations run one at a time under mu, so a command spanning several
// components (save-and-reset, clear) cannot interleave with another.
// Lock order is mu, then history, then timer or registry.
type Engine struct {
	mu sync.Mutex

	store    *store.Store
	timer    *timer.Machine
	registry *tasks.Registry
	history  *history.Aggregator
	loc      *time.Location
	now      func() time.Time
}

// Open builds an Engine over an initialized database.
func Open(ctx context.Context, database *sql.DB, cfg *config.Config, opts Options) *Engine {
	return New(ctx, store.New(db.NewKV(database)), cfg, opts)
}

// New builds an Engine over s and rehydrates every component.
func New(ctx context.Context, s *store.Store, cfg *config.Config, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	e := &Engine{store: s, loc: loc, now: now}
	e.timer = timer.New(ctx, s, timer.WithClock(now), timer.WithTickInterval(cfg.TickInterval()))
	e.registry = tasks.New(ctx, s, tasks.WithClock(now), tasks.WithGuard(e.timer))
	e.history = history.New(ctx, s, e.timer, e.registry, history.WithClock(now), history.WithLocation(loc))
	e.registry.SetPurger(e.history)
	return e
}

// Location returns the calendar used for day boundaries.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Start starts or resumes the timer.
func (e *Engine) Start(ctx context.Context) timer.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timer.Start(ctx)
	return e.timer.Snapshot()
}

// Pause pauses a running timer.
func (e *Engine) Pause(ctx context.Context) timer.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timer.Pause(ctx)
	return e.timer.Snapshot()
}

// Reset discards the current segment log without saving it.
func (e *Engine) Reset(ctx context.Context) timer.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timer.Reset(ctx)
	return e.timer.Snapshot()
}

// Status returns the current timer snapshot.
func (e *Engine) Status() timer.Tick {
	return e.timer.Snapshot()
}

// TimerState returns the current segment log.
func (e *Engine) TimerState() timer.State {
	return e.timer.State()
}

// Watch subscribes to live timer ticks.
func (e *Engine) Watch() (<-chan timer.Tick, func()) {
	return e.timer.Watch()
}

// Resync republishes the elapsed time immediately.
func (e *Engine) Resync() {
	e.timer.Resync()
}

// SaveAndReset records the timer's work against taskID and resets the timer.
func (e *Engine) SaveAndReset(ctx context.Context, taskID string) (history.SaveResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.SaveAndReset(ctx, taskID)
}

// AddTask creates a task.
func (e *Engine) AddTask(ctx context.Context, title string) tasks.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Add(ctx, title)
}

// RenameTask changes a task's title.
func (e *Engine) RenameTask(ctx context.Context, id, title string) (tasks.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Rename(ctx, id, title)
}

// UpdateTask merges the given fields into a task.
func (e *Engine) UpdateTask(ctx context.Context, id string, in tasks.UpdateInput) (tasks.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Update(ctx, id, in)
}

// DeleteTask removes a task and its history.
func (e *Engine) DeleteTask(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Delete(ctx, id)
}

// SelectTask toggles the selection. Fails with ErrTimerActive unless the timer is idle.
func (e *Engine) SelectTask(ctx context.Context, id string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Select(ctx, id)
}

// ClearTasks removes every task and all history.
func (e *Engine) ClearTasks(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.ClearAll(ctx)
	e.history.Clear(ctx)
}

// Tasks lists tasks, newest first.
func (e *Engine) Tasks() []tasks.Task {
	return e.registry.List()
}

// Task returns one task.
func (e *Engine) Task(id string) (tasks.Task, bool) {
	return e.registry.Get(id)
}

// SelectedTask returns the selected task, if any.
func (e *Engine) SelectedTask() (tasks.Task, bool) {
	return e.registry.Selected()
}

// TaskHistory returns a task's day-grouped history.
func (e *Engine) TaskHistory(taskID string) history.View {
	return e.history.TaskHistory(taskID)
}

// Close stops the timer's ticker and closes all watchers.
func (e *Engine) Close() {
	e.timer.Close()
}
