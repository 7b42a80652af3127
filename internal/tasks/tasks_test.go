package tasks

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/moiskillnadne/work-time-tracker/internal/db"
	"github.com/moiskillnadne/work-time-tracker/internal/errors"
	"github.com/moiskillnadne/work-time-tracker/internal/store"
	"github.com/moiskillnadne/work-time-tracker/internal/timer"
)

var t0 = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

type fakeGuard struct{ status timer.Status }

func (g *fakeGuard) Status() timer.Status { return g.status }

type fakePurger struct{ purged []string }

func (p *fakePurger) DeleteTaskHistory(_ context.Context, taskID string) {
	p.purged = append(p.purged, taskID)
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return store.New(db.NewKV(database))
}

func fixedClock() func() time.Time {
	now := t0
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestAdd_PrependsAndClamps(t *testing.T) {
	ctx := context.Background()
	r := New(ctx, setupStore(t), WithClock(fixedClock()))

	first := r.Add(ctx, "  Write report  ")
	second := r.Add(ctx, strings.Repeat("x", 150))

	require.Equal(t, "Write report", first.Title)
	require.Equal(t, MaxTitleLength, utf8.RuneCountInString(second.Title))
	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, first.ID, 26, "task ids are ULIDs")
	require.Zero(t, first.Elapsed)
	require.Equal(t, first.CreatedAt, first.UpdatedAt)

	list := r.List()
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID, "newest task first")
}

func TestClampTitle_CountsCharactersNotBytes(t *testing.T) {
	title := strings.Repeat("ж", 130)
	got := ClampTitle(title)
	require.Equal(t, MaxTitleLength, utf8.RuneCountInString(got))
	require.True(t, utf8.ValidString(got))
}

func TestUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	r := New(ctx, setupStore(t), WithClock(fixedClock()))
	task := r.Add(ctx, "Draft")

	elapsed := 90 * time.Minute
	got, ok := r.Update(ctx, task.ID, UpdateInput{Elapsed: &elapsed})
	require.True(t, ok)
	require.Equal(t, "Draft", got.Title)
	require.Equal(t, elapsed, got.Elapsed)
	require.True(t, got.UpdatedAt.After(task.UpdatedAt))

	got, ok = r.Rename(ctx, task.ID, "Final")
	require.True(t, ok)
	require.Equal(t, "Final", got.Title)
	require.Equal(t, elapsed, got.Elapsed)

	_, ok = r.Rename(ctx, "missing", "x")
	require.False(t, ok)
}

func TestIncrementElapsed(t *testing.T) {
	ctx := context.Background()
	r := New(ctx, setupStore(t), WithClock(fixedClock()))
	task := r.Add(ctx, "Focus")

	got, ok := r.IncrementElapsed(ctx, task.ID, 45*time.Minute)
	require.True(t, ok)
	require.Equal(t, 45*time.Minute, got.Elapsed)

	got, _ = r.IncrementElapsed(ctx, task.ID, -time.Hour)
	require.Equal(t, 45*time.Minute, got.Elapsed, "negative increments are ignored")

	_, ok = r.IncrementElapsed(ctx, "missing", time.Minute)
	require.False(t, ok)
}

func TestDelete_ClearsSelectionAndCascades(t *testing.T) {
	ctx := context.Background()
	purger := &fakePurger{}
	r := New(ctx, setupStore(t), WithPurger(purger))
	keep := r.Add(ctx, "keep")
	drop := r.Add(ctx, "drop")

	_, err := r.Select(ctx, drop.ID)
	require.NoError(t, err)

	require.True(t, r.Delete(ctx, drop.ID))
	require.Equal(t, []string{drop.ID}, purger.purged)
	_, ok := r.Selected()
	require.False(t, ok)
	_, ok = r.Get(drop.ID)
	require.False(t, ok)
	_, ok = r.Get(keep.ID)
	require.True(t, ok)

	require.False(t, r.Delete(ctx, drop.ID))
	require.Len(t, purger.purged, 1, "unknown id does not cascade")
}

func TestSelect_Toggle(t *testing.T) {
	ctx := context.Background()
	r := New(ctx, setupStore(t))
	a := r.Add(ctx, "a")
	b := r.Add(ctx, "b")

	sel, err := r.Select(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, sel)

	sel, _ = r.Select(ctx, b.ID)
	require.Equal(t, b.ID, sel)

	sel, _ = r.Select(ctx, b.ID)
	require.Empty(t, sel, "selecting the current selection clears it")

	sel, _ = r.Select(ctx, "missing")
	require.Empty(t, sel)
}

func TestSelect_GuardedWhileTimerActive(t *testing.T) {
	ctx := context.Background()
	guard := &fakeGuard{status: timer.StatusIdle}
	r := New(ctx, setupStore(t), WithGuard(guard))
	a := r.Add(ctx, "a")
	b := r.Add(ctx, "b")

	_, err := r.Select(ctx, a.ID)
	require.NoError(t, err)

	for _, status := range []timer.Status{timer.StatusRunning, timer.StatusPaused} {
		guard.status = status

		sel, err := r.Select(ctx, b.ID)
		require.True(t, errors.Is(err, errors.ErrTimerActive), "switch while %s", status)
		require.Equal(t, a.ID, sel)

		_, err = r.Select(ctx, a.ID)
		require.True(t, errors.Is(err, errors.ErrTimerActive), "deselect while %s", status)
	}

	// Re-selecting a missing task is not a change and never trips the guard
	sel, err := r.Select(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, a.ID, sel)

	guard.status = timer.StatusIdle
	sel, err = r.Select(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, sel)
}

func TestRegistry_PersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	r := New(ctx, s, WithClock(fixedClock()))
	a := r.Add(ctx, "a")
	b := r.Add(ctx, "b")
	r.IncrementElapsed(ctx, a.ID, 10*time.Minute)
	_, err := r.Select(ctx, a.ID)
	require.NoError(t, err)

	again := New(ctx, s)
	list := again.List()
	require.Len(t, list, 2)
	require.Equal(t, b.ID, list[0].ID)
	require.Equal(t, 10*time.Minute, list[1].Elapsed)
	require.True(t, list[1].CreatedAt.Equal(a.CreatedAt))

	sel, ok := again.Selected()
	require.True(t, ok)
	require.Equal(t, a.ID, sel.ID)
}

func TestRegistry_RehydrateDropsDanglingSelectionAndBadTasks(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	ghost := "ghost"
	s.SaveTaskList(ctx, store.TaskListRecord{
		Tasks: []store.TaskRecord{
			{ID: "t1", Title: "ok", ElapsedTime: 1000, CreatedAt: "2026-01-15T09:00:00.000Z", UpdatedAt: "2026-01-15T09:00:00.000Z"},
			{ID: "t1", Title: "dup", CreatedAt: "2026-01-15T09:00:00.000Z", UpdatedAt: "2026-01-15T09:00:00.000Z"},
			{ID: "t2", Title: "bad", CreatedAt: "not a date"},
		},
		SelectedTaskID: &ghost,
	})

	r := New(ctx, s)
	list := r.List()
	require.Len(t, list, 1)
	require.Equal(t, "ok", list[0].Title)
	require.Equal(t, time.Second, list[0].Elapsed)
	_, ok := r.Selected()
	require.False(t, ok)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	r := New(ctx, s)
	a := r.Add(ctx, "a")
	_, _ = r.Select(ctx, a.ID)

	r.ClearAll(ctx)
	require.Empty(t, r.List())
	_, ok := r.Selected()
	require.False(t, ok)

	_, ok = s.LoadTaskList(ctx)
	require.False(t, ok)
}
