package db

import (
	"context"
	"database/sql"

	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
)

// InsertCompletion records c unless the task already has a completion on c.Day.
// Reports whether a row was inserted. An id collision returns ErrUniqueConstraint.
func InsertCompletion(ctx context.Context, q Querier, c *Completion) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO completions (id, task_id, user_id, day, completed_at, note, mood)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, day) DO NOTHING
	`, c.ID, c.TaskID, c.UserID, c.Day.String(), c.CompletedAt, toNullString(c.Note), toNullInt(c.Mood))
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, ErrUniqueConstraint
		}
		return false, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// GetCompletion returns the completion of taskID on day.
func GetCompletion(ctx context.Context, q Querier, taskID string, day habit.Date) (*Completion, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, task_id, user_id, day, completed_at, note, mood
		FROM completions WHERE task_id = ? AND day = ?
	`, taskID, day.String())
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("completion", taskID+"@"+day.String())
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// DeleteCompletion removes the completion of taskID on day.
func DeleteCompletion(ctx context.Context, q Querier, userID, taskID string, day habit.Date) error {
	result, err := q.ExecContext(ctx, `DELETE FROM completions WHERE user_id = ? AND task_id = ? AND day = ?`,
		userID, taskID, day.String())
	if err != nil {
		return errors.NewInternal(err)
	}
	return rowAffected(result, "completion", taskID+"@"+day.String())
}

// ListCompletions returns the user's completions with from <= day <= to, oldest first.
// A zero from or to leaves that side open. A non-empty taskID restricts to one task.
func ListCompletions(ctx context.Context, q Querier, userID, taskID string, from, to habit.Date) ([]Completion, error) {
	query := `
		SELECT id, task_id, user_id, day, completed_at, note, mood
		FROM completions WHERE user_id = ?`
	args := []any{userID}
	if taskID != "" {
		query += ` AND task_id = ?`
		args = append(args, taskID)
	}
	if !from.IsZero() {
		query += ` AND day >= ?`
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += ` AND day <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY day, completed_at, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// CountByDay aggregates the user's completions per day within [from, to].
// Days without completions are omitted.
func CountByDay(ctx context.Context, q Querier, userID string, from, to habit.Date) ([]DayCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.day, COUNT(*), COALESCE(SUM(t.energy_cost), 0)
		FROM completions c JOIN tasks t ON t.id = c.task_id
		WHERE c.user_id = ? AND c.day >= ? AND c.day <= ?
		GROUP BY c.day
		ORDER BY c.day
	`, userID, from.String(), to.String())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var (
			dc  DayCount
			day string
		)
		if err := rows.Scan(&day, &dc.Completions, &dc.EnergySpent); err != nil {
			return nil, errors.NewInternal(err)
		}
		if dc.Day, err = habit.ParseDate(day); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanCompletion(row scanner) (*Completion, error) {
	var (
		c    Completion
		day  string
		note sql.NullString
		mood sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &day, &c.CompletedAt, &note, &mood); err != nil {
		return nil, err
	}
	d, err := habit.ParseDate(day)
	if err != nil {
		return nil, err
	}
	c.Day = d
	c.Note = fromNullString(note)
	c.Mood = fromNullInt(mood)
	return &c, nil
}

// LastDoneThrough returns each task's latest completion day on or before through.
func LastDoneThrough(ctx context.Context, q Querier, userID string, through habit.Date) (map[string]habit.Date, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT task_id, MAX(day) FROM completions
		WHERE user_id = ? AND day <= ?
		GROUP BY task_id
	`, userID, through.String())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := make(map[string]habit.Date)
	for rows.Next() {
		var taskID, day string
		if err := rows.Scan(&taskID, &day); err != nil {
			return nil, errors.NewInternal(err)
		}
		d, err := habit.ParseDate(day)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out[taskID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}
