package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lentoflow/lento/internal/errors"
)

const taskSelect = `
	SELECT t.id, t.user_id, t.name, t.description, t.energy_cost, t.expected_interval,
		t.importance, t.category_id, t.is_active, t.icon, t.color, t.created_at, t.updated_at,
		(SELECT MAX(c.day) FROM completions c WHERE c.task_id = t.id) AS last_done
	FROM tasks t
`

// TaskFilter narrows ListTasks. Zero values mean no filter.
type TaskFilter struct {
	UserID     string
	CategoryID *string
	Active     *bool
	Limit      int // 0 means no limit
	Offset     int
}

// InsertTask stores a new task.
func InsertTask(ctx context.Context, q Querier, t *Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, name, description, energy_cost, expected_interval,
			importance, category_id, is_active, icon, color, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.UserID, t.Name, toNullString(t.Description), t.EnergyCost, t.ExpectedInterval,
		t.Importance, toNullString(t.CategoryID), boolToInt(t.IsActive), t.Icon, t.Color, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetTask retrieves a task owned by userID, with its derived last done date.
func GetTask(ctx context.Context, q Querier, userID, id string) (*Task, error) {
	row := q.QueryRowContext(ctx, taskSelect+` WHERE t.user_id = ? AND t.id = ?`, userID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("task", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// ListTasks returns matching tasks ordered by creation, and the total match count.
func ListTasks(ctx context.Context, q Querier, f TaskFilter) ([]Task, int, error) {
	where := []string{"t.user_id = ?"}
	args := []any{f.UserID}
	if f.CategoryID != nil {
		where = append(where, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Active != nil {
		where = append(where, "t.is_active = ?")
		args = append(args, boolToInt(*f.Active))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t`+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := taskSelect + cond + ` ORDER BY t.created_at, t.id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// UpdateTask writes the mutable fields of t and refreshes t.UpdatedAt.
func UpdateTask(ctx context.Context, q Querier, t *Task) error {
	now := time.Now().Unix()
	result, err := q.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, description = ?, energy_cost = ?, expected_interval = ?, importance = ?,
			category_id = ?, is_active = ?, icon = ?, color = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`,
		t.Name, toNullString(t.Description), t.EnergyCost, t.ExpectedInterval, t.Importance,
		toNullString(t.CategoryID), boolToInt(t.IsActive), t.Icon, t.Color, now,
		t.UserID, t.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := rowAffected(result, "task", t.ID); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// DeleteTask removes a task and, by cascade, its completions.
func DeleteTask(ctx context.Context, q Querier, userID, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return rowAffected(result, "task", id)
}

func scanTask(row scanner) (*Task, error) {
	var (
		t           Task
		description sql.NullString
		categoryID  sql.NullString
		active      int
		lastDone    sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &description, &t.EnergyCost, &t.ExpectedInterval,
		&t.Importance, &categoryID, &active, &t.Icon, &t.Color, &t.CreatedAt, &t.UpdatedAt,
		&lastDone,
	)
	if err != nil {
		return nil, err
	}
	t.Description = fromNullString(description)
	t.CategoryID = fromNullString(categoryID)
	t.IsActive = active != 0
	if t.LastDoneDate, err = fromNullDate(lastDone); err != nil {
		return nil, err
	}
	return &t, nil
}
