package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lentoflow/lento/internal/errors"
)

const categoryColumns = `id, user_id, name, color, sort_order, is_active, created_at, updated_at`

// NormalizeName lowercases, trims, and collapses whitespace for uniqueness checks.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// InsertCategory stores a new category.
// Returns ErrUniqueConstraint if the user already has a category with that name.
func InsertCategory(ctx context.Context, q Querier, c *Category) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, name_norm, color, sort_order, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, NormalizeName(c.Name), c.Color, c.SortOrder, boolToInt(c.IsActive), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetCategory retrieves a category owned by userID.
func GetCategory(ctx context.Context, q Querier, userID, id string) (*Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("category", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListCategories returns the user's categories ordered by sort_order, then name.
func ListCategories(ctx context.Context, q Querier, userID string) ([]Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = ?
		ORDER BY sort_order, name_norm
	`, userID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
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

// UpdateCategory writes the mutable fields of c.
// Returns ErrUniqueConstraint on a name collision.
func UpdateCategory(ctx context.Context, q Querier, c *Category) error {
	now := time.Now().Unix()
	result, err := q.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, name_norm = ?, color = ?, sort_order = ?, is_active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, c.Name, NormalizeName(c.Name), c.Color, c.SortOrder, boolToInt(c.IsActive), now, c.UserID, c.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	if err := rowAffected(result, "category", c.ID); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// DeleteCategory removes a category and detaches its tasks.
func DeleteCategory(ctx context.Context, q Querier, userID, id string) (detached int, err error) {
	result, err := q.ExecContext(ctx, `UPDATE tasks SET category_id = NULL WHERE user_id = ? AND category_id = ?`, userID, id)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	result, err = q.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if err := rowAffected(result, "category", id); err != nil {
		return 0, err
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (*Category, error) {
	var (
		c      Category
		active int
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.SortOrder, &active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.IsActive = active != 0
	return &c, nil
}
