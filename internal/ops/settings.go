package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/errors"
)

// DefaultUserID is the user for single-user local use.
const DefaultUserID = "local"

// ResolveUser returns the user, creating it with configured defaults on first use.
func ResolveUser(ctx context.Context, database *sql.DB, cfg *config.Config, userID string) (*db.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = DefaultUserID
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return db.EnsureUser(ctx, database, &db.User{
		ID:                userID,
		Name:              userID,
		DailyEnergyBudget: cfg.DefaultEnergyBudget,
		Timezone:          cfg.Location().String(),
	})
}

// userLocation resolves the zone for a request: explicit tz, then the user's, then UTC.
func userLocation(u *db.User, tz string) (*time.Location, error) {
	if tz = strings.TrimSpace(tz); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, errors.NewInvalidField("tz", "must be an IANA time zone")
		}
		return loc, nil
	}
	if u != nil && u.Timezone != "" {
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			return loc, nil
		}
	}
	return time.UTC, nil
}

// GetSettingsInput contains parameters for the GetSettings operation.
type GetSettingsInput struct {
	UserID string `json:"user_id"`
}

// GetSettings returns the user's settings.
func GetSettings(ctx context.Context, database *sql.DB, cfg *config.Config, input GetSettingsInput) (*db.User, error) {
	return ResolveUser(ctx, database, cfg, input.UserID)
}

// UpdateSettingsInput contains parameters for the UpdateSettings operation.
// Nil fields are left unchanged.
type UpdateSettingsInput struct {
	UserID            string  `json:"user_id"`
	Name              *string `json:"name" validate:"omitempty,min=1,max=50"`
	DailyEnergyBudget *int    `json:"daily_energy_budget" validate:"omitempty,gte=0,lte=1000"`
	MaxDailyTasks     *int    `json:"max_daily_tasks" validate:"omitempty,gte=0,lte=100"`
	Timezone          *string `json:"timezone" validate:"omitempty,timezone"`
}

// UpdateSettings updates the user's settings.
func UpdateSettings(ctx context.Context, database *sql.DB, cfg *config.Config, input UpdateSettingsInput) (*db.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.NewInvalidField("name", "must not be empty")
		}
		u.Name = name
	}
	if input.DailyEnergyBudget != nil {
		u.DailyEnergyBudget = *input.DailyEnergyBudget
	}
	if input.MaxDailyTasks != nil {
		u.MaxDailyTasks = *input.MaxDailyTasks
	}
	if input.Timezone != nil {
		u.Timezone = *input.Timezone
	}

	if err := db.UpdateUser(ctx, database, u); err != nil {
		return nil, err
	}
	return u, nil
}
