package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
)

// CompleteInput contains parameters for the Complete operation.
type CompleteInput struct {
	UserID string     `json:"user_id"`
	TaskID string     `json:"task_id" validate:"required"`
	Date   habit.Date `json:"date"` // optional; defaults to today in the user's zone
	TZ     string     `json:"timezone"`
	Note   *string    `json:"note" validate:"omitempty,max=500"`
	Mood   *int       `json:"mood" validate:"omitempty,min=1,max=5"`
	Now    time.Time  `json:"-"`
}

// CompleteOutput contains the result of the Complete operation.
type CompleteOutput struct {
	Completion       db.Completion    `json:"completion"`
	AlreadyCompleted bool             `json:"already_completed"`
	DailyScore       habit.DailyScore `json:"daily_score"`
}

// Complete marks a task done for a day. Completing twice on the same day is a
// no-op that reports already_completed and returns the existing record.
func Complete(ctx context.Context, database *sql.DB, engine *habit.Engine, cfg *config.Config, input CompleteInput) (*CompleteOutput, error) {
	input.TaskID = strings.TrimSpace(input.TaskID)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Mood != nil && *input.Mood == 0 {
		return nil, errors.NewInvalidField("mood", "must be at least 1")
	}

	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	now := nowOr(input.Now)
	day, err := resolveDay(u, input.Date, input.TZ, now)
	if err != nil {
		return nil, err
	}
	if today, _ := resolveDay(u, habit.Date{}, input.TZ, now); day.After(today) {
		return nil, errors.NewInvalidField("date", "must not be in the future")
	}

	t, err := db.GetTask(ctx, database, u.ID, input.TaskID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, errors.NewConflict("task is paused: " + t.ID)
	}

	c := &db.Completion{
		ID:          newID(now),
		TaskID:      t.ID,
		UserID:      u.ID,
		Day:         day,
		CompletedAt: now.Unix(),
		Note:        input.Note,
		Mood:        input.Mood,
	}
	inserted, err := db.InsertCompletion(ctx, database, c)
	if err != nil {
		return nil, err
	}
	if !inserted {
		if c, err = db.GetCompletion(ctx, database, t.ID, day); err != nil {
			return nil, err
		}
	}

	in, err := snapshotInput(ctx, database, u, day)
	if err != nil {
		return nil, err
	}

	return &CompleteOutput{
		Completion:       *c,
		AlreadyCompleted: !inserted,
		DailyScore:       engine.DailyScore(in.Tasks, in.Completions, day),
	}, nil
}

// UncompleteInput contains parameters for the Uncomplete operation.
type UncompleteInput struct {
	UserID string     `json:"user_id"`
	TaskID string     `json:"task_id" validate:"required"`
	Date   habit.Date `json:"date"`
	TZ     string     `json:"timezone"`
	Now    time.Time  `json:"-"`
}

// UncompleteOutput contains the result of the Uncomplete operation.
type UncompleteOutput struct {
	Removed bool       `json:"removed"`
	TaskID  string     `json:"task_id"`
	Date    habit.Date `json:"date"`
}

// Uncomplete removes the task's completion for one day (today by default).
func Uncomplete(ctx context.Context, database *sql.DB, cfg *config.Config, input UncompleteInput) (*UncompleteOutput, error) {
	input.TaskID = strings.TrimSpace(input.TaskID)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	day, err := resolveDay(u, input.Date, input.TZ, input.Now)
	if err != nil {
		return nil, err
	}
	if _, err := db.GetTask(ctx, database, u.ID, input.TaskID); err != nil {
		return nil, err
	}
	if err := db.DeleteCompletion(ctx, database, u.ID, input.TaskID, day); err != nil {
		return nil, err
	}
	return &UncompleteOutput{Removed: true, TaskID: input.TaskID, Date: day}, nil
}
