package mcp

import (
	"context"
	"database/sql"
	"maps"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/habit"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"habit", "task", "category", "stats"}

type toolHandler func(*Handlers, context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

type toolEntry struct {
	def    mcp.Tool
	handle toolHandler
}

// toolRegistry maps tool names to their definitions and handler methods.
// Names are "<type>_<action>"; the type prefix must be in KnownTypes.
var toolRegistry = map[string]toolEntry{
	"habit_today":      {todayToolDef, (*Handlers).HandleToday},
	"habit_complete":   {completeToolDef, (*Handlers).HandleComplete},
	"habit_uncomplete": {uncompleteToolDef, (*Handlers).HandleUncomplete},
	"task_create":      {taskCreateToolDef, (*Handlers).HandleTaskCreate},
	"task_get":         {taskGetToolDef, (*Handlers).HandleTaskGet},
	"task_update":      {taskUpdateToolDef, (*Handlers).HandleTaskUpdate},
	"task_delete":      {taskDeleteToolDef, (*Handlers).HandleTaskDelete},
	"task_list":        {taskListToolDef, (*Handlers).HandleTaskList},
	"category_create":  {categoryCreateToolDef, (*Handlers).HandleCategoryCreate},
	"category_list":    {categoryListToolDef, (*Handlers).HandleCategoryList},
	"stats_task":       {statsTaskToolDef, (*Handlers).HandleStatsTask},
	"stats_daily":      {statsDailyToolDef, (*Handlers).HandleStatsDaily},
	"stats_heatmap":    {statsHeatmapToolDef, (*Handlers).HandleStatsHeatmap},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	return slices.Sorted(maps.Keys(toolRegistry))
}

// ValidateDisabledTools returns the entries of names that are not tools.
func ValidateDisabledTools(names []string) []string {
	return unknownNames(names, func(n string) bool {
		_, ok := toolRegistry[n]
		return ok
	})
}

// ValidateDisabledTypes returns the entries of names that are not in KnownTypes.
func ValidateDisabledTypes(names []string) []string {
	return unknownNames(names, func(n string) bool {
		return slices.Contains(KnownTypes, n)
	})
}

func unknownNames(names []string, known func(string) bool) []string {
	unknown := []string{}
	for _, n := range names {
		if !known(n) {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

// GetTypeForTool returns the type prefix of a tool name ("habit_today" → "habit").
func GetTypeForTool(toolName string) string {
	typ, _, ok := strings.Cut(toolName, "_")
	if !ok {
		return ""
	}
	return typ
}

// ExpandTypesToTools returns the sorted tool names whose type is in types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	var tools []string
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with Lento tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, engine *habit.Engine, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lento",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(db, engine, cfg)
	disabled := append(ExpandTypesToTools(cfg.DisabledTypes), cfg.DisabledTools...)

	for _, name := range AllToolNames() {
		if slices.Contains(disabled, name) {
			continue
		}
		entry := toolRegistry[name]
		s.AddTool(entry.def, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return entry.handle(h, ctx, req)
		})
	}

	return s
}

// Run serves MCP over stdio until stdin closes.
func Run(db *sql.DB, engine *habit.Engine, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(db, engine, cfg, version))
}
