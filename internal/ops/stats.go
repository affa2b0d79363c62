package ops

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/habit"
)

// TaskStatsInput contains parameters for the TaskStats operation.
type TaskStatsInput struct {
	UserID string    `json:"user_id"`
	TaskID string    `json:"task_id" validate:"required"`
	TZ     string    `json:"timezone"`
	Now    time.Time `json:"-"`
}

// TaskStatsOutput summarizes one task's history.
type TaskStatsOutput struct {
	TaskID           string      `json:"task_id"`
	TaskName         string      `json:"task_name"`
	TotalCompletions int         `json:"total_completions"`
	LongestStreak    int         `json:"longest_streak"`
	CurrentStreak    int         `json:"current_streak"`
	CompletionRate   float64     `json:"completion_rate"`
	Health           int         `json:"health"`
	LastCompleted    *habit.Date `json:"last_completed"`
}

// TaskStats computes streaks, completion rate and current health of a task.
//
// Streaks count consecutive calendar days with a completion. The current streak
// is nonzero only when the task was completed today. Completion rate compares
// completions to the number of expected intervals since the task was created.
func TaskStats(ctx context.Context, database *sql.DB, engine *habit.Engine, cfg *config.Config, input TaskStatsInput) (*TaskStatsOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	loc, err := userLocation(u, input.TZ)
	if err != nil {
		return nil, err
	}
	now := nowOr(input.Now)
	today := habit.Today(now, loc)

	t, err := db.GetTask(ctx, database, u.ID, input.TaskID)
	if err != nil {
		return nil, err
	}
	completions, err := db.ListCompletions(ctx, database, u.ID, t.ID, habit.Date{}, today)
	if err != nil {
		return nil, err
	}

	days := make([]habit.Date, 0, len(completions))
	for _, c := range completions {
		days = append(days, c.Day)
	}
	longest, current := streaks(days, today)

	out := &TaskStatsOutput{
		TaskID:           t.ID,
		TaskName:         t.Name,
		TotalCompletions: len(days),
		LongestStreak:    longest,
		CurrentStreak:    current,
	}

	created := habit.Today(time.Unix(t.CreatedAt, 0), loc)
	if expected := float64(today.DaysSince(created)) / float64(max(t.ExpectedInterval, 1)); expected > 0 {
		out.CompletionRate = math.Round(float64(len(days))/expected*100) / 100
	}

	ht := t.Habit()
	ht.LastDoneDate = nil
	if len(days) > 0 {
		last := days[len(days)-1]
		out.LastCompleted = &last
		ht.LastDoneDate = &last
	}
	out.Health = engine.Health(ht, today)

	return out, nil
}

// streaks returns the longest and current runs of consecutive days.
// days must be sorted ascending without duplicates.
func streaks(days []habit.Date, today habit.Date) (longest, current int) {
	if len(days) == 0 {
		return 0, 0
	}
	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].DaysSince(days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	if days[len(days)-1] == today {
		current = run
	}
	return longest, current
}

// HeatmapInput contains parameters for the Heatmap operation.
type HeatmapInput struct {
	UserID string    `json:"user_id"`
	Days   int       `json:"days"` // default: 365, max: 730
	TZ     string    `json:"timezone"`
	Now    time.Time `json:"-"`
}

// HeatmapCell is the number of completions on one day.
type HeatmapCell struct {
	Date  habit.Date `json:"date"`
	Value int        `json:"value"`
}

// HeatmapOutput contains the result of the Heatmap operation.
type HeatmapOutput struct {
	Data     []HeatmapCell `json:"data"`
	MinValue int           `json:"min_value"`
	MaxValue int           `json:"max_value"`
}

// Heatmap returns completion counts for every day of the window ending today.
func Heatmap(ctx context.Context, database *sql.DB, cfg *config.Config, input HeatmapInput) (*HeatmapOutput, error) {
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	loc, err := userLocation(u, input.TZ)
	if err != nil {
		return nil, err
	}
	days := clampDays(input.Days, DefaultHeatmapDays, MaxHeatmapDays)
	end := habit.Today(nowOr(input.Now), loc)
	start := end.AddDays(-(days - 1))

	counts, err := db.CountByDay(ctx, database, u.ID, start, end)
	if err != nil {
		return nil, err
	}
	byDay := make(map[habit.Date]int, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Completions
	}

	out := &HeatmapOutput{Data: make([]HeatmapCell, 0, days)}
	for d := start; !d.After(end); d = d.AddDays(1) {
		v := byDay[d]
		if len(out.Data) == 0 {
			out.MinValue, out.MaxValue = v, v
		}
		out.Data = append(out.Data, HeatmapCell{Date: d, Value: v})
		out.MinValue = min(out.MinValue, v)
		out.MaxValue = max(out.MaxValue, v)
	}
	return out, nil
}

// DailyHistoryInput contains parameters for the DailyHistory operation.
type DailyHistoryInput struct {
	UserID string    `json:"user_id"`
	Days   int       `json:"days"` // default: 7, max: 90
	TZ     string    `json:"timezone"`
	Now    time.Time `json:"-"`
}

// DayStats is the engine's view of one past day.
type DayStats struct {
	Date           habit.Date         `json:"date"`
	EnergySpent    int                `json:"energy_spent"`
	TasksCompleted int                `json:"tasks_completed"`
	DailyScore     float64            `json:"daily_score"`
	Grade          habit.Grade        `json:"grade"`
	OverallHealth  int                `json:"overall_health"`
	Status         habit.HealthStatus `json:"status"`
}

// DailyHistoryOutput contains the result of the DailyHistory operation.
type DailyHistoryOutput struct {
	Days []DayStats `json:"days"`
}

// DailyHistory replays the engine over each day of the window ending today.
// Tasks are evaluated with their current settings.
func DailyHistory(ctx context.Context, database *sql.DB, engine *habit.Engine, cfg *config.Config, input DailyHistoryInput) (*DailyHistoryOutput, error) {
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	loc, err := userLocation(u, input.TZ)
	if err != nil {
		return nil, err
	}
	days := clampDays(input.Days, DefaultDailyDays, MaxDailyDays)
	end := habit.Today(nowOr(input.Now), loc)
	start := end.AddDays(-(days - 1))

	out := &DailyHistoryOutput{Days: make([]DayStats, 0, days)}
	for d := start; !d.After(end); d = d.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := snapshotInput(ctx, database, u, d)
		if err != nil {
			return nil, err
		}
		snap := engine.Snapshot(in)
		out.Days = append(out.Days, DayStats{
			Date:           d,
			EnergySpent:    snap.EnergySpent,
			TasksCompleted: snap.DailyScore.TasksCompleted,
			DailyScore:     snap.DailyScore.TotalScore,
			Grade:          snap.DailyScore.Grade,
			OverallHealth:  snap.OverallHealth.Score,
			Status:         snap.OverallHealth.Status,
		})
	}
	return out, nil
}

func clampDays(days, def, limit int) int {
	if days <= 0 {
		return def
	}
	return min(days, limit)
}
