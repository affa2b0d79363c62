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

// CreateCategoryInput contains parameters for the CreateCategory operation.
type CreateCategoryInput struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name" validate:"required,max=50"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
	SortOrder int    `json:"sort_order"`
}

// CreateCategory stores a new category. Names are unique per user, ignoring case.
func CreateCategory(ctx context.Context, database *sql.DB, cfg *config.Config, input CreateCategoryInput) (*db.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	c := &db.Category{
		ID:        newID(now),
		UserID:    u.ID,
		Name:      input.Name,
		Color:     orDefault(input.Color, habit.DefaultColor),
		SortOrder: input.SortOrder,
		IsActive:  true,
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
	}
	if err := db.InsertCategory(ctx, database, c); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists("category", input.Name)
		}
		return nil, err
	}
	return c, nil
}

// ListCategoriesInput contains parameters for the ListCategories operation.
type ListCategoriesInput struct {
	UserID string `json:"user_id"`
}

// ListCategoriesOutput contains the result of the ListCategories operation.
type ListCategoriesOutput struct {
	Items []db.Category `json:"items"`
}

// ListCategories returns all of the user's categories.
func ListCategories(ctx context.Context, database *sql.DB, cfg *config.Config, input ListCategoriesInput) (*ListCategoriesOutput, error) {
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	items, err := db.ListCategories(ctx, database, u.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.Category{}
	}
	return &ListCategoriesOutput{Items: items}, nil
}

// UpdateCategoryInput contains parameters for the UpdateCategory operation.
// Nil fields are left unchanged.
type UpdateCategoryInput struct {
	UserID    string  `json:"user_id"`
	ID        string  `json:"id" validate:"required"`
	Name      *string `json:"name" validate:"omitempty,max=50"`
	Color     *string `json:"color" validate:"omitempty,hexcolor"`
	SortOrder *int    `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

// UpdateCategory applies a partial update to a category.
func UpdateCategory(ctx context.Context, database *sql.DB, cfg *config.Config, input UpdateCategoryInput) (*db.Category, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}
	c, err := db.GetCategory(ctx, database, u.ID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.NewInvalidField("name", "must not be empty")
		}
		c.Name = name
	}
	if input.Color != nil {
		c.Color = orDefault(*input.Color, habit.DefaultColor)
	}
	if input.SortOrder != nil {
		c.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}

	if err := db.UpdateCategory(ctx, database, c); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists("category", c.Name)
		}
		return nil, err
	}
	return c, nil
}

// DeleteCategoryInput contains parameters for the DeleteCategory operation.
type DeleteCategoryInput struct {
	UserID string `json:"user_id"`
	ID     string `json:"id" validate:"required"`
}

// DeleteCategoryOutput contains the result of the DeleteCategory operation.
type DeleteCategoryOutput struct {
	Deleted       bool   `json:"deleted"`
	ID            string `json:"id"`
	TasksDetached int    `json:"tasks_detached"`
}

// DeleteCategory removes a category. Its tasks are kept and become uncategorized.
func DeleteCategory(ctx context.Context, database *sql.DB, cfg *config.Config, input DeleteCategoryInput) (*DeleteCategoryOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	detached, err := db.DeleteCategory(ctx, tx, u.ID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &DeleteCategoryOutput{Deleted: true, ID: input.ID, TasksDetached: detached}, nil
}
