package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/moiskillnadne/work-time-tracker/internal/config"
	"github.com/moiskillnadne/work-time-tracker/internal/engine"
	"github.com/moiskillnadne/work-time-tracker/internal/errors"
	"github.com/moiskillnadne/work-time-tracker/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	eng *engine.Engine
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, cfg *config.Config) *Handlers {
	return &Handlers{eng: eng, cfg: cfg}
}

// Request types for each tool

// SaveRequest represents the arguments for timer_save.
type SaveRequest struct {
	TaskID string `json:"task_id,omitempty"`
}

// TaskAddRequest represents the arguments for task_add.
type TaskAddRequest struct {
	Title string `json:"title"`
}

// TaskRenameRequest represents the arguments for task_rename.
type TaskRenameRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaskIDRequest represents the arguments for tools addressing one task.
type TaskIDRequest struct {
	ID string `json:"id"`
}

// HistoryRequest represents the arguments for history_get and history_report.
type HistoryRequest struct {
	TaskID string `json:"task_id"`
	Format string `json:"format,omitempty"`
}

// SelectOutput is the result of task_select.
type SelectOutput struct {
	SelectedID *string `json:"selected_id"`
}

// DeleteOutput is the result of task_delete.
type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ClearOutput is the result of task_clear.
type ClearOutput struct {
	Cleared bool `json:"cleared"`
}

// ReportOutput is the result of history_report.
type ReportOutput struct {
	TaskID  string `json:"task_id"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

// HandleTimerStart handles the timer_start tool.
func (h *Handlers) HandleTimerStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(engine.TimerView(h.eng.Start(ctx)))
}

// HandleTimerPause handles the timer_pause tool.
func (h *Handlers) HandleTimerPause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(engine.TimerView(h.eng.Pause(ctx)))
}

// HandleTimerReset handles the timer_reset tool.
func (h *Handlers) HandleTimerReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(engine.TimerView(h.eng.Reset(ctx)))
}

// HandleTimerStatus handles the timer_status tool.
func (h *Handlers) HandleTimerStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(engine.TimerView(h.eng.Status()))
}

// HandleTimerSave handles the timer_save tool.
func (h *Handlers) HandleTimerSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	taskID := strings.TrimSpace(r.TaskID)
	if taskID == "" {
		sel, ok := h.eng.SelectedTask()
		if !ok {
			return errorResult(errors.NewInvalidRequest("task_id is required when no task is selected")), nil
		}
		taskID = sel.ID
	}
	if _, ok := h.eng.Task(taskID); !ok {
		return errorResult(errors.NewNotFound("task", taskID)), nil
	}

	res, saved := h.eng.SaveAndReset(ctx, taskID)
	return successResult(h.eng.SaveView(res, saved))
}

// HandleTaskAdd handles the task_add tool.
func (h *Handlers) HandleTaskAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[TaskAddRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if strings.TrimSpace(r.Title) == "" {
		return errorResult(errors.NewInvalidRequest("title is required")), nil
	}

	return successResult(h.eng.TaskView(h.eng.AddTask(ctx, r.Title)))
}

// HandleTaskRename handles the task_rename tool.
func (h *Handlers) HandleTaskRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[TaskRenameRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if r.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	if strings.TrimSpace(r.Title) == "" {
		return errorResult(errors.NewInvalidRequest("title is required")), nil
	}

	t, ok := h.eng.RenameTask(ctx, r.ID, r.Title)
	if !ok {
		return errorResult(errors.NewNotFound("task", r.ID)), nil
	}
	return successResult(h.eng.TaskView(t))
}

// HandleTaskDelete handles the task_delete tool.
func (h *Handlers) HandleTaskDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[TaskIDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if r.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if !h.eng.DeleteTask(ctx, r.ID) {
		return errorResult(errors.NewNotFound("task", r.ID)), nil
	}
	return successResult(DeleteOutput{ID: r.ID, Deleted: true})
}

// HandleTaskSelect handles the task_select tool.
func (h *Handlers) HandleTaskSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[TaskIDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if r.ID != "" {
		if _, ok := h.eng.Task(r.ID); !ok {
			return errorResult(errors.NewNotFound("task", r.ID)), nil
		}
	}

	sel, err := h.eng.SelectTask(ctx, r.ID)
	if err != nil {
		return errorResult(err), nil
	}
	out := SelectOutput{}
	if sel != "" {
		out.SelectedID = &sel
	}
	return successResult(out)
}

// HandleTaskList handles the task_list tool.
func (h *Handlers) HandleTaskList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.eng.TaskListView())
}

// HandleTaskGet handles the task_get tool.
func (h *Handlers) HandleTaskGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[TaskIDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if r.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	t, ok := h.eng.Task(r.ID)
	if !ok {
		return errorResult(errors.NewNotFound("task", r.ID)), nil
	}
	return successResult(h.eng.TaskView(t))
}

// HandleTaskClear handles the task_clear tool.
func (h *Handlers) HandleTaskClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.eng.ClearTasks(ctx)
	return successResult(ClearOutput{Cleared: true})
}

// HandleHistoryGet handles the history_get tool.
func (h *Handlers) HandleHistoryGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if r.TaskID == "" {
		return errorResult(errors.NewInvalidRequest("task_id is required")), nil
	}
	if _, ok := h.eng.Task(r.TaskID); !ok {
		return errorResult(errors.NewNotFound("task", r.TaskID)), nil
	}

	return successResult(h.eng.HistoryView(h.eng.TaskHistory(r.TaskID)))
}

// HandleHistoryReport handles the history_report tool.
func (h *Handlers) HandleHistoryReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if r.TaskID == "" {
		return errorResult(errors.NewInvalidRequest("task_id is required")), nil
	}
	format := r.Format
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "html" {
		return errorResult(errors.NewInvalidRequest("format must be markdown or html")), nil
	}

	content, ok := h.eng.Report(r.TaskID)
	if !ok {
		return errorResult(errors.NewNotFound("task", r.TaskID)), nil
	}
	if format == "html" {
		content, err = report.HTML(content)
		if err != nil {
			return errorResult(errors.NewInternal(err)), nil
		}
	}
	return successResult(ReportOutput{TaskID: r.TaskID, Format: format, Content: content})
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tErr *errors.TrackerError
	if stderrors.As(err, &tErr) {
		message := tErr.Message
		// Keep any wrapping context ("items[2]: ...") in front of the message
		if prefix := strings.TrimSuffix(err.Error(), tErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": message,
			"status":  tErr.Status,
		}
		// Internal details may carry file paths or SQL errors
		if tErr.Code != errors.ErrInternal && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
