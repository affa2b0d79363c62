package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lentoflow/lento/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/lento.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lento.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the DSN apply to every pooled connection.
	dbPath := filepath.Join(baseDir, "lento.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS users (
		  id                  TEXT PRIMARY KEY,
		  name                TEXT NOT NULL,
		  daily_energy_budget INTEGER NOT NULL,
		  max_daily_tasks     INTEGER NOT NULL DEFAULT 0,
		  timezone            TEXT NOT NULL,
		  created_at          INTEGER NOT NULL,
		  updated_at          INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS categories (
		  id         TEXT PRIMARY KEY,
		  user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		  name       TEXT NOT NULL,
		  name_norm  TEXT NOT NULL,
		  color      TEXT NOT NULL,
		  sort_order INTEGER NOT NULL DEFAULT 0,
		  is_active  INTEGER NOT NULL DEFAULT 1,
		  created_at INTEGER NOT NULL,
		  updated_at INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_user_name
		ON categories(user_id, name_norm);

		CREATE TABLE IF NOT EXISTS tasks (
		  id                TEXT PRIMARY KEY,
		  user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		  name              TEXT NOT NULL,
		  description       TEXT,
		  energy_cost       INTEGER NOT NULL,
		  expected_interval INTEGER NOT NULL,
		  importance        INTEGER NOT NULL,
		  category_id       TEXT REFERENCES categories(id) ON DELETE SET NULL,
		  is_active         INTEGER NOT NULL DEFAULT 1,
		  icon              TEXT NOT NULL,
		  color             TEXT NOT NULL,
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_user_active
		ON tasks(user_id, is_active, created_at);

		CREATE INDEX IF NOT EXISTS idx_tasks_category
		ON tasks(category_id)
		WHERE category_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS completions (
		  id           TEXT PRIMARY KEY,
		  task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		  user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		  day          TEXT NOT NULL,
		  completed_at INTEGER NOT NULL,
		  note         TEXT,
		  mood         INTEGER
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_completions_task_day
		ON completions(task_id, day);

		CREATE INDEX IF NOT EXISTS idx_completions_user_day
		ON completions(user_id, day);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
