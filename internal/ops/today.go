package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/habit"
)

// TodayInput contains parameters for the Today operation.
type TodayInput struct {
	UserID string     `json:"user_id"`
	Date   habit.Date `json:"date"`     // optional; defaults to today in the resolved zone
	TZ     string     `json:"timezone"` // optional IANA zone; defaults to the user's
	Now    time.Time  `json:"-"`
}

// Today builds the user's snapshot for one day.
func Today(ctx context.Context, database *sql.DB, engine *habit.Engine, cfg *config.Config, input TodayInput) (*habit.TodaySnapshot, error) {
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	day, err := resolveDay(u, input.Date, input.TZ, input.Now)
	if err != nil {
		return nil, err
	}

	in, err := snapshotInput(ctx, database, u, day)
	if err != nil {
		return nil, err
	}
	snap := engine.Snapshot(in)
	return &snap, nil
}

// resolveDay returns date when set, else today in the resolved zone.
func resolveDay(u *db.User, date habit.Date, tz string, now time.Time) (habit.Date, error) {
	loc, err := userLocation(u, tz)
	if err != nil {
		return habit.Date{}, err
	}
	if !date.IsZero() {
		return date, nil
	}
	return habit.Today(nowOr(now), loc), nil
}

// snapshotInput loads the engine inputs for day: active tasks with their last
// done date as of day, and the completions in the lookback window.
func snapshotInput(ctx context.Context, q db.Querier, u *db.User, day habit.Date) (habit.SnapshotInput, error) {
	active := true
	rows, _, err := db.ListTasks(ctx, q, db.TaskFilter{UserID: u.ID, Active: &active})
	if err != nil {
		return habit.SnapshotInput{}, err
	}
	lastDone, err := db.LastDoneThrough(ctx, q, u.ID, day)
	if err != nil {
		return habit.SnapshotInput{}, err
	}

	tasks := make([]habit.Task, 0, len(rows))
	for i := range rows {
		t := rows[i].Habit()
		t.LastDoneDate = nil
		if d, ok := lastDone[t.ID]; ok {
			t.LastDoneDate = &d
		}
		tasks = append(tasks, t)
	}

	from := day.AddDays(-habit.LookbackDays(tasks))
	stored, err := db.ListCompletions(ctx, q, u.ID, "", from, day)
	if err != nil {
		return habit.SnapshotInput{}, err
	}
	completions := make([]habit.Completion, 0, len(stored))
	for _, c := range stored {
		completions = append(completions, habit.Completion{TaskID: c.TaskID, Date: c.Day})
	}

	return habit.SnapshotInput{
		Tasks:         tasks,
		Completions:   completions,
		Budget:        u.DailyEnergyBudget,
		MaxDailyTasks: u.MaxDailyTasks,
		Today:         day,
	}, nil
}
