package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/moiskillnadne/work-time-tracker/internal/config"
	"github.com/moiskillnadne/work-time-tracker/internal/engine"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"timer", "task", "history"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"timer_start": {
		def:     timerStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTimerStart },
	},
	"timer_pause": {
		def:     timerPauseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTimerPause },
	},
	"timer_reset": {
		def:     timerResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTimerReset },
	},
	"timer_status": {
		def:     timerStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTimerStatus },
	},
	"timer_save": {
		def:     timerSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTimerSave },
	},
	"task_add": {
		def:     taskAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskAdd },
	},
	"task_rename": {
		def:     taskRenameToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskRename },
	},
	"task_delete": {
		def:     taskDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskDelete },
	},
	"task_select": {
		def:     taskSelectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskSelect },
	},
	"task_list": {
		def:     taskListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskList },
	},
	"task_get": {
		def:     taskGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskGet },
	},
	"task_clear": {
		def:     taskClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTaskClear },
	},
	"history_get": {
		def:     historyGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryGet },
	},
	"history_report": {
		def:     historyReportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryReport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "timer_start" → "timer").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server exposing the engine's operations as tools.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(eng *engine.Engine, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"worktime",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(eng, cfg)

	// Expand types first, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(eng *engine.Engine, cfg *config.Config, version string) error {
	s := NewServer(eng, cfg, version)
	return server.ServeStdio(s)
}
