package mcp

import "github.com/mark3labs/mcp-go/mcp"

var timerStartToolDef = mcp.NewTool("timer_start",
	mcp.WithDescription("Start the timer, or resume it when paused. No-op when already running."),
)

var timerPauseToolDef = mcp.NewTool("timer_pause",
	mcp.WithDescription("Pause a running timer. No-op otherwise."),
)

var timerResetToolDef = mcp.NewTool("timer_reset",
	mcp.WithDescription("Discard the current timer session without saving it."),
)

var timerStatusToolDef = mcp.NewTool("timer_status",
	mcp.WithDescription("Report the timer status and elapsed time."),
)

var timerSaveToolDef = mcp.NewTool("timer_save",
	mcp.WithDescription("Save the timer session to a task's history, split by calendar day, then reset the timer."),
	mcp.WithString("task_id",
		mcp.Description("Task to credit. Defaults to the selected task."),
	),
)

var taskAddToolDef = mcp.NewTool("task_add",
	mcp.WithDescription("Create a task. Titles longer than 120 characters are truncated."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Task title"),
	),
)

var taskRenameToolDef = mcp.NewTool("task_rename",
	mcp.WithDescription("Rename a task."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Task ID"),
	),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("New title"),
	),
)

var taskDeleteToolDef = mcp.NewTool("task_delete",
	mcp.WithDescription("Delete a task and all of its history."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Task ID"),
	),
)

var taskSelectToolDef = mcp.NewTool("task_select",
	mcp.WithDescription("Select a task. Selecting the selected task, or passing an empty id, clears the selection. Fails while the timer is running or paused."),
	mcp.WithString("id",
		mcp.Description("Task ID; empty clears the selection"),
	),
)

var taskListToolDef = mcp.NewTool("task_list",
	mcp.WithDescription("List all tasks, newest first, with the current selection."),
)

var taskGetToolDef = mcp.NewTool("task_get",
	mcp.WithDescription("Get one task."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Task ID"),
	),
)

var taskClearToolDef = mcp.NewTool("task_clear",
	mcp.WithDescription("Delete every task and all history."),
)

var historyGetToolDef = mcp.NewTool("history_get",
	mcp.WithDescription("Get a task's history grouped by day, newest first, with day and overall totals."),
	mcp.WithString("task_id",
		mcp.Required(),
		mcp.Description("Task ID"),
	),
)

var historyReportToolDef = mcp.NewTool("history_report",
	mcp.WithDescription("Render a task's history as a Markdown or HTML report."),
	mcp.WithString("task_id",
		mcp.Required(),
		mcp.Description("Task ID"),
	),
	mcp.WithString("format",
		mcp.Description("Report format"),
		mcp.Enum("markdown", "html"),
	),
)
