package engine

import (
	"github.com/moiskillnadne/work-time-tracker/internal/history"
	"github.com/moiskillnadne/work-time-tracker/internal/report"
	"github.com/moiskillnadne/work-time-tracker/internal/store"
	"github.com/moiskillnadne/work-time-tracker/internal/tasks"
	"github.com/moiskillnadne/work-time-tracker/internal/timer"
)

// Output types shared by the CLI, MCP and web adapters. Durations are
// reported both in milliseconds and as an HH:MM:SS clock.

// TimerOutput is a timer snapshot.
type TimerOutput struct {
	Status    string `json:"status"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Elapsed   string `json:"elapsed"`
}

// TaskOutput is one task.
type TaskOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Elapsed   string `json:"elapsed"`
	Selected  bool   `json:"selected"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TaskListOutput is the task list and selection.
type TaskListOutput struct {
	Tasks      []TaskOutput `json:"tasks"`
	SelectedID *string      `json:"selected_id"`
}

// EntryOutput is one history entry.
type EntryOutput struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	DurationMS   int64  `json:"duration_ms"`
	Duration     string `json:"duration"`
	PortionStart string `json:"portion_start"`
	SavedAt      string `json:"saved_at"`
	StartedAt    string `json:"started_at"`
}

// GroupOutput is one day of a task's history.
type GroupOutput struct {
	Date    string        `json:"date"`
	Label   string        `json:"label"`
	TotalMS int64         `json:"total_ms"`
	Total   string        `json:"total"`
	Entries []EntryOutput `json:"entries"`
}

// HistoryOutput is a task's day-grouped history.
type HistoryOutput struct {
	TaskID     string        `json:"task_id"`
	TotalMS    int64         `json:"total_ms"`
	Total      string        `json:"total"`
	EntryCount int           `json:"entry_count"`
	Groups     []GroupOutput `json:"groups"`
}

// SaveOutput describes a completed save.
type SaveOutput struct {
	Saved   bool          `json:"saved"`
	Task    *TaskOutput   `json:"task,omitempty"`
	TotalMS int64         `json:"total_ms"`
	Total   string        `json:"total"`
	Entries []EntryOutput `json:"entries"`
	Timer   TimerOutput   `json:"timer"`
}

// TimerView converts a tick.
func TimerView(t timer.Tick) TimerOutput {
	return TimerOutput{
		Status:    string(t.Status),
		ElapsedMS: t.Elapsed.Milliseconds(),
		Elapsed:   report.FormatClock(t.Elapsed),
	}
}

// TaskView converts a task.
func (e *Engine) TaskView(t tasks.Task) TaskOutput {
	sel, ok := e.SelectedTask()
	return TaskOutput{
		ID:        t.ID,
		Title:     t.Title,
		ElapsedMS: t.Elapsed.Milliseconds(),
		Elapsed:   report.FormatClock(t.Elapsed),
		Selected:  ok && sel.ID == t.ID,
		CreatedAt: store.FormatISO(t.CreatedAt),
		UpdatedAt: store.FormatISO(t.UpdatedAt),
	}
}

// TaskListView lists every task with the current selection.
func (e *Engine) TaskListView() TaskListOutput {
	out := TaskListOutput{Tasks: make([]TaskOutput, 0)}
	sel, ok := e.SelectedTask()
	if ok {
		out.SelectedID = &sel.ID
	}
	for _, t := range e.Tasks() {
		v := e.TaskView(t)
		v.Selected = ok && sel.ID == t.ID
		out.Tasks = append(out.Tasks, v)
	}
	return out
}

// HistoryView converts a task's history view.
func (e *Engine) HistoryView(v history.View) HistoryOutput {
	out := HistoryOutput{
		TaskID:     v.TaskID,
		TotalMS:    v.Total.Milliseconds(),
		Total:      report.FormatClock(v.Total),
		EntryCount: v.EntryCount,
		Groups:     make([]GroupOutput, 0, len(v.Groups)),
	}
	for _, g := range v.Groups {
		out.Groups = append(out.Groups, GroupOutput{
			Date:    g.Date,
			Label:   g.Label,
			TotalMS: g.Total.Milliseconds(),
			Total:   report.FormatClock(g.Total),
			Entries: e.entryViews(g.Entries),
		})
	}
	return out
}

// SaveView converts a save result. A no-op save reports saved=false.
func (e *Engine) SaveView(res history.SaveResult, saved bool) SaveOutput {
	out := SaveOutput{
		Saved:   saved,
		TotalMS: res.Total.Milliseconds(),
		Total:   report.FormatClock(res.Total),
		Entries: e.entryViews(res.Entries),
		Timer:   TimerView(e.Status()),
	}
	if saved {
		tv := e.TaskView(res.Task)
		out.Task = &tv
	}
	return out
}

func (e *Engine) entryViews(entries []history.Entry) []EntryOutput {
	out := make([]EntryOutput, 0, len(entries))
	for _, en := range entries {
		out = append(out, EntryOutput{
			ID:           en.ID,
			TaskID:       en.TaskID,
			DurationMS:   en.Duration.Milliseconds(),
			Duration:     report.FormatClock(en.Duration),
			PortionStart: store.FormatISO(en.PortionStart),
			SavedAt:      store.FormatISO(en.SavedAt),
			StartedAt:    report.FormatTimeShort(en.PortionStart, e.loc),
		})
	}
	return out
}

// Report renders a task's history as Markdown.
func (e *Engine) Report(taskID string) (string, bool) {
	t, ok := e.Task(taskID)
	if !ok {
		return "", false
	}
	return report.Markdown(t, e.TaskHistory(taskID), e.loc), true
}

