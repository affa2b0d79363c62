package mcp

import "github.com/mark3labs/mcp-go/mcp"

func userParam() mcp.ToolOption {
	return mcp.WithString("user_id", mcp.Description("User to act as. Defaults to the local user."))
}

func timezoneParam() mcp.ToolOption {
	return mcp.WithString("timezone", mcp.Description("IANA zone used to resolve today, e.g. Europe/Berlin. Defaults to the user's setting."))
}

var todayToolDef = mcp.NewTool("habit_today",
	mcp.WithDescription("Today's snapshot: energy budget, recommended tasks picked by urgency and health, the remaining tasks, overall garden health and the daily score."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
	mcp.WithString("date", mcp.Description("Day to build the snapshot for (YYYY-MM-DD). Defaults to today.")),
	timezoneParam(),
)

var completeToolDef = mcp.NewTool("habit_complete",
	mcp.WithDescription("Mark a task done for a day. Completing the same task twice on one day is a no-op that reports already_completed."),
	userParam(),
	mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	mcp.WithString("date", mcp.Description("Day of the completion (YYYY-MM-DD). Defaults to today.")),
	timezoneParam(),
	mcp.WithString("note", mcp.Description("Optional note, up to 500 characters")),
	mcp.WithNumber("mood", mcp.Description("Optional mood from 1 to 5"), mcp.Min(1), mcp.Max(5)),
)

var uncompleteToolDef = mcp.NewTool("habit_uncomplete",
	mcp.WithDescription("Remove a task's completion for a day."),
	mcp.WithDestructiveHintAnnotation(true),
	userParam(),
	mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	mcp.WithString("date", mcp.Description("Day to clear (YYYY-MM-DD). Defaults to today.")),
	timezoneParam(),
)

var taskCreateToolDef = mcp.NewTool("task_create",
	mcp.WithDescription("Create a recurring task. Energy cost and importance range 1-5, the expected interval is in days (1-30)."),
	userParam(),
	mcp.WithString("name", mcp.Required(), mcp.Description("Task name")),
	mcp.WithString("description", mcp.Description("Markdown description")),
	mcp.WithNumber("energy_cost", mcp.Description("Energy the task takes, 1-5 (default 2)"), mcp.Min(1), mcp.Max(5)),
	mcp.WithNumber("expected_interval", mcp.Description("Days between completions, 1-30 (default 2)"), mcp.Min(1), mcp.Max(30)),
	mcp.WithNumber("importance", mcp.Description("Importance, 1-5 (default 3)"), mcp.Min(1), mcp.Max(5)),
	mcp.WithString("category_id", mcp.Description("Category ID")),
	mcp.WithString("icon", mcp.Description("Display icon")),
	mcp.WithString("color", mcp.Description("Hex color, e.g. #4caf50")),
)

var taskGetToolDef = mcp.NewTool("task_get",
	mcp.WithDescription("Fetch one task by ID."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
)

var taskUpdateToolDef = mcp.NewTool("task_update",
	mcp.WithDescription("Update a task. Only the given fields change. Set is_active=false to pause a task."),
	userParam(),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
	mcp.WithString("name", mcp.Description("New name")),
	mcp.WithString("description", mcp.Description("New markdown description")),
	mcp.WithNumber("energy_cost", mcp.Min(1), mcp.Max(5)),
	mcp.WithNumber("expected_interval", mcp.Min(1), mcp.Max(30)),
	mcp.WithNumber("importance", mcp.Min(1), mcp.Max(5)),
	mcp.WithString("category_id", mcp.Description("Category ID, empty string to detach")),
	mcp.WithBoolean("is_active", mcp.Description("false pauses the task")),
	mcp.WithString("icon"),
	mcp.WithString("color"),
)

var taskDeleteToolDef = mcp.NewTool("task_delete",
	mcp.WithDescription("Delete a task and its completion history."),
	mcp.WithDestructiveHintAnnotation(true),
	userParam(),
	mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
)

var taskListToolDef = mcp.NewTool("task_list",
	mcp.WithDescription("List tasks in creation order."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
	mcp.WithString("category_id", mcp.Description("Only tasks in this category")),
	mcp.WithBoolean("active", mcp.Description("true for active tasks only, false for paused only")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Pagination offset")),
)

var categoryCreateToolDef = mcp.NewTool("category_create",
	mcp.WithDescription("Create a category. Names are unique per user, ignoring case."),
	userParam(),
	mcp.WithString("name", mcp.Required(), mcp.Description("Category name")),
	mcp.WithString("color", mcp.Description("Hex color")),
	mcp.WithNumber("sort_order", mcp.Description("Position in listings")),
)

var categoryListToolDef = mcp.NewTool("category_list",
	mcp.WithDescription("List categories by sort order."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
)

var statsTaskToolDef = mcp.NewTool("stats_task",
	mcp.WithDescription("Streaks, completion rate and current health of one task."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
	mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	timezoneParam(),
)

var statsDailyToolDef = mcp.NewTool("stats_daily",
	mcp.WithDescription("Daily score, energy spent and overall health for the last N days."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
	mcp.WithNumber("days", mcp.Description("Number of days (default 7, max 90)")),
	timezoneParam(),
)

var statsHeatmapToolDef = mcp.NewTool("stats_heatmap",
	mcp.WithDescription("Completions per day for the last N days."),
	mcp.WithReadOnlyHintAnnotation(true),
	userParam(),
	mcp.WithNumber("days", mcp.Description("Number of days (default 365)")),
	timezoneParam(),
)
