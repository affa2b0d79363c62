package ops

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1"

// Export record types.
const (
	RecordCategory   = "category"
	RecordTask       = "task"
	RecordCompletion = "completion"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	UserID string `json:"user_id"`
	Path   string `json:"path"` // optional, default: <base>/exports/<user>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path        string `json:"path"`
	Categories  int    `json:"categories"`
	Tasks       int    `json:"tasks"`
	Completions int    `json:"completions"`
	ExportedAt  int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	LentoExport   bool   `json:"_lento_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	UserID        string `json:"user_id"`
}

// ExportRecord is one data line of an export file. Exactly one payload is set,
// matching Type.
type ExportRecord struct {
	Type       string         `json:"type"`
	Category   *db.Category   `json:"category,omitempty"`
	Task       *db.Task       `json:"task,omitempty"`
	Completion *db.Completion `json:"completion,omitempty"`
}

// Export writes the user's categories, tasks and completions to a JSONL file.
// The file is replaced atomically, so a failed export leaves any previous file intact.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(cfg, u.ID, now)
		if err != nil {
			return nil, err
		}
	}

	// Default paths are checked too: the user id ends up in the file name.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(ExportHeader{
		LentoExport:   true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
		UserID:        u.ID,
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{Path: exportPath, ExportedAt: now.Unix()}
	if err := writeRecords(ctx, database, u.ID, enc, out); err != nil {
		return nil, err
	}

	if err := atomic.WriteFile(exportPath, &buf); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to write export: %w", err))
	}
	return out, nil
}

// writeRecords encodes categories, then tasks, then completions, so an import
// can resolve references in a single pass.
func writeRecords(ctx context.Context, database *sql.DB, userID string, enc *json.Encoder, out *ExportOutput) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	categories, err := db.ListCategories(ctx, tx, userID)
	if err != nil {
		return err
	}
	for i := range categories {
		if err := enc.Encode(ExportRecord{Type: RecordCategory, Category: &categories[i]}); err != nil {
			return errors.NewInternal(err)
		}
	}
	out.Categories = len(categories)

	tasks, _, err := db.ListTasks(ctx, tx, db.TaskFilter{UserID: userID})
	if err != nil {
		return err
	}
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(ExportRecord{Type: RecordTask, Task: &tasks[i]}); err != nil {
			return errors.NewInternal(err)
		}
	}
	out.Tasks = len(tasks)

	completions, err := db.ListCompletions(ctx, tx, userID, "", habit.Date{}, habit.Date{})
	if err != nil {
		return err
	}
	for i := range completions {
		if err := enc.Encode(ExportRecord{Type: RecordCompletion, Completion: &completions[i]}); err != nil {
			return errors.NewInternal(err)
		}
	}
	out.Completions = len(completions)
	return nil
}

// defaultExportPath returns <base>/exports/<user>-<timestamp>.jsonl.
func defaultExportPath(cfg *config.Config, userID string, now time.Time) (string, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	dir, err := cfg.ExportsDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to resolve exports directory: %w", err))
	}
	filename := fmt.Sprintf("%s-%s.jsonl", SanitizeForFilename(userID), now.Format("2006-01-02T150405"))
	return filepath.Join(dir, filename), nil
}
