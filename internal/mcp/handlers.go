package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
	"github.com/lentoflow/lento/internal/ops"
)

// Handlers contains MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	engine *habit.Engine
	cfg    *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, engine *habit.Engine, cfg *config.Config) *Handlers {
	return &Handlers{db: db, engine: engine, cfg: cfg}
}

// Request types. Tools whose arguments map one to one onto an ops input
// decode straight into it.

// TodayRequest represents the arguments for habit_today.
type TodayRequest struct {
	UserID   string     `json:"user_id"`
	Date     habit.Date `json:"date"`
	Timezone string     `json:"timezone"`
}

// CompleteRequest represents the arguments for habit_complete.
type CompleteRequest struct {
	UserID   string     `json:"user_id"`
	TaskID   string     `json:"task_id"`
	Date     habit.Date `json:"date"`
	Timezone string     `json:"timezone"`
	Note     *string    `json:"note,omitempty"`
	Mood     *int       `json:"mood,omitempty"`
}

// UncompleteRequest represents the arguments for habit_uncomplete.
type UncompleteRequest struct {
	UserID   string     `json:"user_id"`
	TaskID   string     `json:"task_id"`
	Date     habit.Date `json:"date"`
	Timezone string     `json:"timezone"`
}

// HandleToday handles the habit_today tool call.
func (h *Handlers) HandleToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TodayRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	snap, err := ops.Today(ctx, h.db, h.engine, h.cfg, ops.TodayInput{
		UserID: input.UserID,
		Date:   input.Date,
		TZ:     input.Timezone,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(snap)
}

// HandleComplete handles the habit_complete tool call.
func (h *Handlers) HandleComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CompleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Complete(ctx, h.db, h.engine, h.cfg, ops.CompleteInput{
		UserID: input.UserID,
		TaskID: input.TaskID,
		Date:   input.Date,
		TZ:     input.Timezone,
		Note:   input.Note,
		Mood:   input.Mood,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUncomplete handles the habit_uncomplete tool call.
func (h *Handlers) HandleUncomplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UncompleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Uncomplete(ctx, h.db, h.cfg, ops.UncompleteInput{
		UserID: input.UserID,
		TaskID: input.TaskID,
		Date:   input.Date,
		TZ:     input.Timezone,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTaskCreate handles the task_create tool call.
func (h *Handlers) HandleTaskCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.CreateTaskInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	task, err := ops.CreateTask(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(task)
}

// HandleTaskGet handles the task_get tool call.
func (h *Handlers) HandleTaskGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.GetTaskInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	task, err := ops.GetTask(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(task)
}

// HandleTaskUpdate handles the task_update tool call.
func (h *Handlers) HandleTaskUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.UpdateTaskInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	task, err := ops.UpdateTask(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(task)
}

// HandleTaskDelete handles the task_delete tool call.
func (h *Handlers) HandleTaskDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.DeleteTaskInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.DeleteTask(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTaskList handles the task_list tool call.
func (h *Handlers) HandleTaskList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ListTasksInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.ListTasks(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCategoryCreate handles the category_create tool call.
func (h *Handlers) HandleCategoryCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.CreateCategoryInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	c, err := ops.CreateCategory(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(c)
}

// HandleCategoryList handles the category_list tool call.
func (h *Handlers) HandleCategoryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ListCategoriesInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.ListCategories(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatsTask handles the stats_task tool call.
func (h *Handlers) HandleStatsTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.TaskStatsInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.TaskStats(ctx, h.db, h.engine, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatsDaily handles the stats_daily tool call.
func (h *Handlers) HandleStatsDaily(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.DailyHistoryInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.DailyHistory(ctx, h.db, h.engine, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatsHeatmap handles the stats_heatmap tool call.
func (h *Handlers) HandleStatsHeatmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.HeatmapInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Heatmap(ctx, h.db, h.cfg, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult converts an error to an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if lErr, ok := errors.As(err); ok && lErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    lErr.Code,
			"message": lErr.Message,
			"status":  lErr.Status,
		}
		if lErr.Details != nil {
			errorObj["details"] = lErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		// Internal errors may carry file paths or SQL errors.
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

// successResult converts data to an MCP success result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
