package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tailscale/hujson"

	"github.com/lentoflow/lento/internal/habit"
)

// HomeEnv overrides the default base directory (~/.lento).
const HomeEnv = "LENTO_HOME"

// Config holds application configuration.
type Config struct {
	// BaseDir is the directory the config was loaded from. It holds lento.db and exports/.
	BaseDir string `json:"-"`

	// DefaultEnergyBudget seeds daily_energy_budget for newly created users.
	DefaultEnergyBudget int `json:"default_energy_budget" validate:"gte=0,lte=1000"`

	// DefaultTimezone is the IANA zone for new users and for requests that carry none.
	DefaultTimezone string `json:"default_timezone,omitempty"`

	// LogLevel is one of debug, info, warn, error. Logs go to stderr.
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" validate:"gte=0"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" validate:"gte=0"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes disables every tool of a type. Known types: "habit", "task", "category", "stats".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// JWTSecret signs and verifies API bearer tokens. When empty the HTTP API
	// runs unauthenticated as the local user.
	JWTSecret string `json:"jwt_secret,omitempty"`

	// TokenTTLHours is the lifetime of tokens issued by `lento token`.
	TokenTTLHours int `json:"token_ttl_hours,omitempty" validate:"gte=0"`

	// AllowedOrigins lists CORS origins for the HTTP API.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// Bind and Port select the HTTP listen address.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty" validate:"gte=0,lte=65535"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.lento/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// Policy overrides individual engine constants.
	Policy PolicyOverrides `json:"policy,omitempty"`
}

// PolicyOverrides mirrors habit.Policy with optional fields. Nil keeps the default.
type PolicyOverrides struct {
	DecayScale          *float64 `json:"decay_scale,omitempty"`
	CriticalHealth      *int     `json:"critical_health,omitempty"`
	CriticalImportance  *int     `json:"critical_importance,omitempty"`
	HighHealth          *int     `json:"high_health,omitempty"`
	NormalHealth        *int     `json:"normal_health,omitempty"`
	HealthyMin          *int     `json:"healthy_min,omitempty"`
	FairMin             *int     `json:"fair_min,omitempty"`
	WeakMin             *int     `json:"weak_min,omitempty"`
	PointsPerImportance *float64 `json:"points_per_importance,omitempty"`
	UrgencyBonusFactor  *float64 `json:"urgency_bonus_factor,omitempty"`
	GradeExcellentMin   *float64 `json:"grade_excellent_min,omitempty"`
	GradeGoodMin        *float64 `json:"grade_good_min,omitempty"`
	GradeOkayMin        *float64 `json:"grade_okay_min,omitempty"`
	DeductSpentEnergy   *bool    `json:"deduct_spent_energy,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultEnergyBudget: habit.DefaultEnergyBudget,
		DefaultTimezone:     "UTC",
		LogLevel:            "info",
		TokenTTLHours:       24 * 30,
		Bind:                "127.0.0.1",
		Port:                8080,
	}
}

// BaseDir returns $LENTO_HOME, or ~/.lento when unset.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lento"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The file may contain comments and trailing commas.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	merged.BaseDir = baseDir
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	data, err = hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges, the timezone and the resulting engine policy.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DefaultTimezone != "" {
		if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
			return fmt.Errorf("invalid config: default_timezone: %w", err)
		}
	}
	if _, err := c.EnginePolicy(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EnginePolicy applies the overrides to habit.DefaultPolicy and validates the result.
func (c *Config) EnginePolicy() (habit.Policy, error) {
	p := habit.DefaultPolicy()
	o := c.Policy

	setFloat(&p.DecayScale, o.DecayScale)
	setInt(&p.CriticalHealth, o.CriticalHealth)
	setInt(&p.CriticalImportance, o.CriticalImportance)
	setInt(&p.HighHealth, o.HighHealth)
	setInt(&p.NormalHealth, o.NormalHealth)
	setInt(&p.HealthyMin, o.HealthyMin)
	setInt(&p.FairMin, o.FairMin)
	setInt(&p.WeakMin, o.WeakMin)
	setFloat(&p.PointsPerImportance, o.PointsPerImportance)
	setFloat(&p.UrgencyBonusFactor, o.UrgencyBonusFactor)
	setFloat(&p.GradeExcellentMin, o.GradeExcellentMin)
	setFloat(&p.GradeGoodMin, o.GradeGoodMin)
	setFloat(&p.GradeOkayMin, o.GradeOkayMin)
	if o.DeductSpentEnergy != nil {
		p.DeductSpentEnergy = *o.DeductSpentEnergy
	}

	if err := p.Validate(); err != nil {
		return habit.Policy{}, err
	}
	return p, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Location returns the configured default zone, UTC if unset or unknown.
func (c *Config) Location() *time.Location {
	if c.DefaultTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ExportsDir returns BaseDir/exports, or ~/.lento/exports when BaseDir is unset.
func (c *Config) ExportsDir() (string, error) {
	base := c.BaseDir
	if base == "" {
		var err error
		if base, err = BaseDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(base, "exports"), nil
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.BaseDir = pick(overlay.BaseDir, base.BaseDir)
	result.DefaultEnergyBudget = pick(overlay.DefaultEnergyBudget, base.DefaultEnergyBudget)
	result.DefaultTimezone = pick(overlay.DefaultTimezone, base.DefaultTimezone)
	result.LogLevel = pick(overlay.LogLevel, base.LogLevel)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.JWTSecret = pick(overlay.JWTSecret, base.JWTSecret)
	result.TokenTTLHours = pick(overlay.TokenTTLHours, base.TokenTTLHours)
	result.Bind = pick(overlay.Bind, base.Bind)
	result.Port = pick(overlay.Port, base.Port)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.AllowedOrigins = mergeStringSlice(base.AllowedOrigins, overlay.AllowedOrigins)

	result.Policy = mergePolicy(base.Policy, overlay.Policy)

	return result
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

func pickPtr[T any](overlay, base *T) *T {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergePolicy(base, overlay PolicyOverrides) PolicyOverrides {
	return PolicyOverrides{
		DecayScale:          pickPtr(overlay.DecayScale, base.DecayScale),
		CriticalHealth:      pickPtr(overlay.CriticalHealth, base.CriticalHealth),
		CriticalImportance:  pickPtr(overlay.CriticalImportance, base.CriticalImportance),
		HighHealth:          pickPtr(overlay.HighHealth, base.HighHealth),
		NormalHealth:        pickPtr(overlay.NormalHealth, base.NormalHealth),
		HealthyMin:          pickPtr(overlay.HealthyMin, base.HealthyMin),
		FairMin:             pickPtr(overlay.FairMin, base.FairMin),
		WeakMin:             pickPtr(overlay.WeakMin, base.WeakMin),
		PointsPerImportance: pickPtr(overlay.PointsPerImportance, base.PointsPerImportance),
		UrgencyBonusFactor:  pickPtr(overlay.UrgencyBonusFactor, base.UrgencyBonusFactor),
		GradeExcellentMin:   pickPtr(overlay.GradeExcellentMin, base.GradeExcellentMin),
		GradeGoodMin:        pickPtr(overlay.GradeGoodMin, base.GradeGoodMin),
		GradeOkayMin:        pickPtr(overlay.GradeOkayMin, base.GradeOkayMin),
		DeductSpentEnergy:   pickPtr(overlay.DeductSpentEnergy, base.DeductSpentEnergy),
	}
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
