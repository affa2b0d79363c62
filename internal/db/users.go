package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lentoflow/lento/internal/errors"
)

// EnsureUser returns the user with u.ID, inserting u first if it does not exist.
func EnsureUser(ctx context.Context, q Querier, u *User) (*User, error) {
	now := time.Now().Unix()
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, name, daily_energy_budget, max_daily_tasks, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, u.ID, u.Name, u.DailyEnergyBudget, u.MaxDailyTasks, u.Timezone, now, now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return GetUser(ctx, q, u.ID)
}

// GetUser retrieves a user by id.
func GetUser(ctx context.Context, q Querier, id string) (*User, error) {
	var u User
	err := q.QueryRowContext(ctx, `
		SELECT id, name, daily_energy_budget, max_daily_tasks, timezone, created_at, updated_at
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.DailyEnergyBudget, &u.MaxDailyTasks, &u.Timezone, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("user", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &u, nil
}

// UpdateUser writes the mutable settings of u and refreshes u.UpdatedAt.
func UpdateUser(ctx context.Context, q Querier, u *User) error {
	now := time.Now().Unix()
	result, err := q.ExecContext(ctx, `
		UPDATE users
		SET name = ?, daily_energy_budget = ?, max_daily_tasks = ?, timezone = ?, updated_at = ?
		WHERE id = ?
	`, u.Name, u.DailyEnergyBudget, u.MaxDailyTasks, u.Timezone, now, u.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := rowAffected(result, "user", u.ID); err != nil {
		return err
	}
	u.UpdatedAt = now
	return nil
}
