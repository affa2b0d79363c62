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

// Task field defaults.
const (
	DefaultEnergyCost       = 2
	DefaultExpectedInterval = 2
	DefaultImportance       = 3
)

// CreateTaskInput contains parameters for the CreateTask operation.
// Zero numeric fields take their defaults.
type CreateTaskInput struct {
	UserID           string  `json:"user_id"`
	Name             string  `json:"name" validate:"required,max=100"`
	Description      *string `json:"description" validate:"omitempty,max=10000"`
	EnergyCost       int     `json:"energy_cost" validate:"omitempty,min=1,max=5"`
	ExpectedInterval int     `json:"expected_interval" validate:"omitempty,min=1,max=30"`
	Importance       int     `json:"importance" validate:"omitempty,min=1,max=5"`
	CategoryID       *string `json:"category_id"`
	Icon             string  `json:"icon" validate:"max=50"`
	Color            string  `json:"color" validate:"omitempty,hexcolor"`
}

// CreateTask stores a new active task.
func CreateTask(ctx context.Context, database *sql.DB, cfg *config.Config, input CreateTaskInput) (*db.Task, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	categoryID, err := checkCategory(ctx, database, u.ID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &db.Task{
		ID:               newID(now),
		UserID:           u.ID,
		Name:             input.Name,
		Description:      input.Description,
		EnergyCost:       orDefault(input.EnergyCost, DefaultEnergyCost),
		ExpectedInterval: orDefault(input.ExpectedInterval, DefaultExpectedInterval),
		Importance:       orDefault(input.Importance, DefaultImportance),
		CategoryID:       categoryID,
		IsActive:         true,
		Icon:             orDefault(strings.TrimSpace(input.Icon), habit.DefaultIcon),
		Color:            orDefault(input.Color, habit.DefaultColor),
		CreatedAt:        now.Unix(),
		UpdatedAt:        now.Unix(),
	}
	if err := db.InsertTask(ctx, database, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTaskInput contains parameters for the GetTask operation.
type GetTaskInput struct {
	UserID string `json:"user_id"`
	ID     string `json:"id" validate:"required"`
}

// GetTask retrieves one task.
func GetTask(ctx context.Context, database *sql.DB, cfg *config.Config, input GetTaskInput) (*db.Task, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, database, u.ID, input.ID)
}

// ListTasksInput contains parameters for the ListTasks operation.
type ListTasksInput struct {
	UserID     string  `json:"user_id"`
	CategoryID *string `json:"category_id"`
	Active     *bool   `json:"active"` // nil lists all tasks
	Limit      int     `json:"limit"`  // default: 20, max: 100
	Offset     int     `json:"offset"`
}

// ListTasksOutput contains the result of the ListTasks operation.
type ListTasksOutput struct {
	Items      []db.Task  `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// ListTasks retrieves the user's tasks with optional filters and pagination.
func ListTasks(ctx context.Context, database *sql.DB, cfg *config.Config, input ListTasksInput) (*ListTasksOutput, error) {
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	limit, offset := clampLimit(input.Limit, input.Offset)
	items, total, err := db.ListTasks(ctx, database, db.TaskFilter{
		UserID:     u.ID,
		CategoryID: input.CategoryID,
		Active:     input.Active,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []db.Task{}
	}

	return &ListTasksOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_asc",
	}, nil
}

// UpdateTaskInput contains parameters for the UpdateTask operation.
// Nil fields are left unchanged. An empty CategoryID detaches the task.
type UpdateTaskInput struct {
	UserID           string  `json:"user_id"`
	ID               string  `json:"id" validate:"required"`
	Name             *string `json:"name" validate:"omitempty,max=100"`
	Description      *string `json:"description" validate:"omitempty,max=10000"`
	EnergyCost       *int    `json:"energy_cost" validate:"omitempty,min=1,max=5"`
	ExpectedInterval *int    `json:"expected_interval" validate:"omitempty,min=1,max=30"`
	Importance       *int    `json:"importance" validate:"omitempty,min=1,max=5"`
	CategoryID       *string `json:"category_id"`
	IsActive         *bool   `json:"is_active"`
	Icon             *string `json:"icon" validate:"omitempty,max=50"`
	Color            *string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateTask applies a partial update to a task.
func UpdateTask(ctx context.Context, database *sql.DB, cfg *config.Config, input UpdateTaskInput) (*db.Task, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if zeroPtr(input.EnergyCost) || zeroPtr(input.ExpectedInterval) || zeroPtr(input.Importance) {
		return nil, errors.NewInvalidRequest("energy_cost, expected_interval and importance must be positive")
	}

	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	t, err := db.GetTask(ctx, database, u.ID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.NewInvalidField("name", "must not be empty")
		}
		t.Name = name
	}
	if input.Description != nil {
		if *input.Description == "" {
			t.Description = nil
		} else {
			t.Description = input.Description
		}
	}
	if input.EnergyCost != nil {
		t.EnergyCost = *input.EnergyCost
	}
	if input.ExpectedInterval != nil {
		t.ExpectedInterval = *input.ExpectedInterval
	}
	if input.Importance != nil {
		t.Importance = *input.Importance
	}
	if input.CategoryID != nil {
		if t.CategoryID, err = checkCategory(ctx, database, u.ID, input.CategoryID); err != nil {
			return nil, err
		}
	}
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}
	if input.Icon != nil {
		t.Icon = orDefault(strings.TrimSpace(*input.Icon), habit.DefaultIcon)
	}
	if input.Color != nil {
		t.Color = orDefault(*input.Color, habit.DefaultColor)
	}

	if err := db.UpdateTask(ctx, database, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTaskInput contains parameters for the DeleteTask operation.
type DeleteTaskInput struct {
	UserID string `json:"user_id"`
	ID     string `json:"id" validate:"required"`
}

// DeleteTaskOutput contains the result of the DeleteTask operation.
type DeleteTaskOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteTask removes a task and its completion history.
func DeleteTask(ctx context.Context, database *sql.DB, cfg *config.Config, input DeleteTaskInput) (*DeleteTaskOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteTask(ctx, database, u.ID, input.ID); err != nil {
		return nil, err
	}
	return &DeleteTaskOutput{Deleted: true, ID: input.ID}, nil
}

// checkCategory verifies the category belongs to the user. Nil or empty means none.
func checkCategory(ctx context.Context, database *sql.DB, userID string, id *string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	c, err := db.GetCategory(ctx, database, userID, strings.TrimSpace(*id))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewInvalidField("category_id", "unknown category "+*id)
		}
		return nil, err
	}
	return &c.ID, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func zeroPtr(p *int) bool {
	return p != nil && *p == 0
}
