package web

import (
	"net/http"

	"github.com/moiskillnadne/work-time-tracker/internal/config"
	"github.com/moiskillnadne/work-time-tracker/internal/engine"
	"github.com/moiskillnadne/work-time-tracker/internal/errors"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	eng      *engine.Engine
	cfg      *config.Config
	renderer *Renderer
}

// HandleTasks handles GET /tasks: lists tasks with the timer summary.
func (h *Handlers) HandleTasks(w http.ResponseWriter, r *http.Request) {
	list := h.eng.TaskListView()

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, list)
		return
	}

	h.renderer.renderPage(w, r, "tasks", TasksPageData{
		PageData: PageData{
			Title:   "Tasks",
			Version: h.renderer.version,
			Nav:     "tasks",
		},
		Tasks: list,
		Timer: engine.TimerView(h.eng.Status()),
	})
}

// HandleHistory handles GET /tasks/{id}/history: a task's day-grouped history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("task ID is required"))
		return
	}

	task, ok := h.eng.Task(id)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("task", id))
		return
	}
	view := h.eng.HistoryView(h.eng.TaskHistory(id))

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, view)
		return
	}

	md, _ := h.eng.Report(id)
	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData: PageData{
			Title:   task.Title,
			Version: h.renderer.version,
			Nav:     "tasks",
		},
		Task:         h.eng.TaskView(task),
		History:      view,
		RenderedHTML: renderMarkdown(md),
	})
}

// HandleTimer handles GET /timer: current timer status and selected task.
func (h *Handlers) HandleTimer(w http.ResponseWriter, r *http.Request) {
	data := TimerPageData{
		PageData: PageData{
			Title:   "Timer",
			Version: h.renderer.version,
			Nav:     "timer",
		},
		Timer: engine.TimerView(h.eng.Status()),
	}
	if sel, ok := h.eng.SelectedTask(); ok {
		tv := h.eng.TaskView(sel)
		data.Selected = &tv
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"timer":    data.Timer,
			"selected": data.Selected,
		})
		return
	}

	h.renderer.renderPage(w, r, "timer", data)
}
