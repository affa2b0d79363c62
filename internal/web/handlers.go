package web

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/lentoflow/lento/internal/auth"
	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/habit"
	"github.com/lentoflow/lento/internal/ops"
)

// Handlers contains HTTP route handlers for the API.
type Handlers struct {
	db      *sql.DB
	engine  *habit.Engine
	cfg     *config.Config
	logger  *slog.Logger
	version string
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	renderError(h.logger, w, r, err)
}

// userID returns the authenticated user, or "" for the default local user.
func userID(r *http.Request) string {
	uid, _ := auth.UserIDFromContext(r.Context())
	return uid
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleToday handles GET /api/today?date=&tz= and returns the day's snapshot.
func (h *Handlers) HandleToday(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, "date")
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	snap, err := ops.Today(r.Context(), h.db, h.engine, h.cfg, ops.TodayInput{
		UserID: userID(r),
		Date:   date,
		TZ:     r.URL.Query().Get("tz"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, snap)
}

// completeBody is the optional body of POST /api/today/complete/{task_id}.
type completeBody struct {
	Date habit.Date `json:"date"`
	Note *string    `json:"note"`
	Mood *int       `json:"mood"`
}

// HandleComplete handles POST /api/today/complete/{task_id}.
func (h *Handlers) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var body completeBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.renderError(w, r, err)
		return
	}
	out, err := ops.Complete(r.Context(), h.db, h.engine, h.cfg, ops.CompleteInput{
		UserID: userID(r),
		TaskID: r.PathValue("task_id"),
		Date:   body.Date,
		TZ:     r.URL.Query().Get("tz"),
		Note:   body.Note,
		Mood:   body.Mood,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	status := http.StatusCreated
	if out.AlreadyCompleted {
		status = http.StatusOK
	}
	renderJSON(w, status, out)
}

// HandleUncomplete handles DELETE /api/today/complete/{task_id}.
func (h *Handlers) HandleUncomplete(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, "date")
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	out, err := ops.Uncomplete(r.Context(), h.db, h.cfg, ops.UncompleteInput{
		UserID: userID(r),
		TaskID: r.PathValue("task_id"),
		Date:   date,
		TZ:     r.URL.Query().Get("tz"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleListTasks handles GET /api/tasks?category_id=&active=&limit=&offset=.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListTasks(r.Context(), h.db, h.cfg, ops.ListTasksInput{
		UserID:     userID(r),
		CategoryID: ptrString(r.URL.Query().Get("category_id")),
		Active:     parseBoolParam(r, "active"),
		Limit:      parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:     parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCreateTask handles POST /api/tasks.
func (h *Handlers) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateTaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.renderError(w, r, err)
		return
	}
	input.UserID = userID(r)
	task, err := ops.CreateTask(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, task)
}

// taskDetail is a task with its description rendered from markdown.
type taskDetail struct {
	*db.Task
	DescriptionHTML string `json:"description_html,omitempty"`
}

// HandleGetTask handles GET /api/tasks/{id}.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := ops.GetTask(r.Context(), h.db, h.cfg, ops.GetTaskInput{
		UserID: userID(r),
		ID:     r.PathValue("id"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	detail := taskDetail{Task: task}
	if task.Description != nil {
		detail.DescriptionHTML = renderMarkdown(*task.Description)
	}
	renderJSON(w, http.StatusOK, detail)
}

// HandleUpdateTask handles PUT /api/tasks/{id} as a partial update.
func (h *Handlers) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateTaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.renderError(w, r, err)
		return
	}
	input.UserID = userID(r)
	input.ID = r.PathValue("id")
	task, err := ops.UpdateTask(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, task)
}

// HandleDeleteTask handles DELETE /api/tasks/{id}.
func (h *Handlers) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteTask(r.Context(), h.db, h.cfg, ops.DeleteTaskInput{
		UserID: userID(r),
		ID:     r.PathValue("id"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleListCategories handles GET /api/categories.
func (h *Handlers) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListCategories(r.Context(), h.db, h.cfg, ops.ListCategoriesInput{UserID: userID(r)})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCreateCategory handles POST /api/categories.
func (h *Handlers) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateCategoryInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.renderError(w, r, err)
		return
	}
	input.UserID = userID(r)
	c, err := ops.CreateCategory(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, c)
}

// HandleUpdateCategory handles PUT /api/categories/{id}.
func (h *Handlers) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateCategoryInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.renderError(w, r, err)
		return
	}
	input.UserID = userID(r)
	input.ID = r.PathValue("id")
	c, err := ops.UpdateCategory(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, c)
}

// HandleDeleteCategory handles DELETE /api/categories/{id}.
func (h *Handlers) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteCategory(r.Context(), h.db, h.cfg, ops.DeleteCategoryInput{
		UserID: userID(r),
		ID:     r.PathValue("id"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleGetSettings handles GET /api/settings.
func (h *Handlers) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	u, err := ops.GetSettings(r.Context(), h.db, h.cfg, ops.GetSettingsInput{UserID: userID(r)})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, u)
}

// HandleUpdateSettings handles PUT /api/settings.
func (h *Handlers) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateSettingsInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.renderError(w, r, err)
		return
	}
	input.UserID = userID(r)
	u, err := ops.UpdateSettings(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, u)
}

// HandleDailyStats handles GET /api/stats/daily?days=7.
func (h *Handlers) HandleDailyStats(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DailyHistory(r.Context(), h.db, h.engine, h.cfg, ops.DailyHistoryInput{
		UserID: userID(r),
		Days:   parseIntParam(r, "days", ops.DefaultDailyDays),
		TZ:     r.URL.Query().Get("tz"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleHeatmap handles GET /api/stats/heatmap?days=365.
func (h *Handlers) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Heatmap(r.Context(), h.db, h.cfg, ops.HeatmapInput{
		UserID: userID(r),
		Days:   parseIntParam(r, "days", ops.DefaultHeatmapDays),
		TZ:     r.URL.Query().Get("tz"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleTaskStats handles GET /api/stats/task/{id}.
func (h *Handlers) HandleTaskStats(w http.ResponseWriter, r *http.Request) {
	out, err := ops.TaskStats(r.Context(), h.db, h.engine, h.cfg, ops.TaskStatsInput{
		UserID: userID(r),
		TaskID: r.PathValue("id"),
		TZ:     r.URL.Query().Get("tz"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}
