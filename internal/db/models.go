package db

import "github.com/lentoflow/lento/internal/habit"

// User holds per-user settings. Timestamps are unix seconds.
type User struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DailyEnergyBudget int    `json:"daily_energy_budget"`
	MaxDailyTasks     int    `json:"max_daily_tasks"`
	Timezone          string `json:"timezone"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

// Category groups tasks. Names are unique per user, ignoring case.
type Category struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Task is a stored recurring task. LastDoneDate is derived from completions.
type Task struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	Name             string      `json:"name"`
	Description      *string     `json:"description,omitempty"`
	EnergyCost       int         `json:"energy_cost"`
	ExpectedInterval int         `json:"expected_interval"`
	Importance       int         `json:"importance"`
	CategoryID       *string     `json:"category_id"`
	IsActive         bool        `json:"is_active"`
	Icon             string      `json:"icon"`
	Color            string      `json:"color"`
	CreatedAt        int64       `json:"created_at"`
	UpdatedAt        int64       `json:"updated_at"`
	LastDoneDate     *habit.Date `json:"last_done_date"`
}

// Habit returns the engine view of t.
func (t *Task) Habit() habit.Task {
	return habit.Task{
		ID:               t.ID,
		Name:             t.Name,
		EnergyCost:       t.EnergyCost,
		ExpectedInterval: t.ExpectedInterval,
		Importance:       t.Importance,
		CategoryID:       t.CategoryID,
		IsActive:         t.IsActive,
		LastDoneDate:     t.LastDoneDate,
		Icon:             t.Icon,
		Color:            t.Color,
	}
}

// Completion records one task done on one day in the user's zone.
type Completion struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	UserID      string     `json:"user_id"`
	Day         habit.Date `json:"day"`
	CompletedAt int64      `json:"completed_at"`
	Note        *string    `json:"note,omitempty"`
	Mood        *int       `json:"mood,omitempty"`
}

// DayCount is the number of completions and energy spent on one day.
type DayCount struct {
	Day         habit.Date `json:"date"`
	Completions int        `json:"completions"`
	EnergySpent int        `json:"energy_spent"`
}
