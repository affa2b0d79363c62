package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeSkip    ImportMode = "skip"    // keep existing records
	ImportModeReplace ImportMode = "replace" // overwrite existing records
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	UserID string     `json:"user_id"`
	Path   string     `json:"path"` // required
	Mode   ImportMode `json:"mode"` // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Categories  int           `json:"categories"`
	Tasks       int           `json:"tasks"`
	Completions int           `json:"completions"`
	Skipped     int           `json:"skipped"`
	Errors      []ImportError `json:"errors"`
}

// ImportError describes one record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// exportLine is a header or a record; the header flag tells them apart.
type exportLine struct {
	LentoExport   bool   `json:"_lento_export"`
	SchemaVersion string `json:"schema_version"`
	ExportRecord
}

type parsedRecord struct {
	line int
	ExportRecord
}

// Import loads a JSONL export into the user's data. Records are re-owned by the
// importing user. Categories merge by name; task and completion references are
// remapped when an id has to change.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeSkip, ImportModeReplace:
	default:
		return nil, errors.NewInvalidField("mode", "must be one of: error, skip, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	u, err := ResolveUser(ctx, database, cfg, input.UserID)
	if err != nil {
		return nil, err
	}

	file, err := openImportFile(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, parseErrors, err := parseExportFile(file)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Errors: []ImportError{}}
	if len(parseErrors) > 0 {
		out.Errors = append(out.Errors, parseErrors...)
		out.Skipped += len(parseErrors)
		// mode:error is all or nothing
		if input.Mode == ImportModeError {
			return out, nil
		}
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	imp := &importer{
		tx:         tx,
		userID:     u.ID,
		mode:       input.Mode,
		now:        time.Now(),
		out:        out,
		categories: map[string]string{},
		tasks:      map[string]string{},
	}
	if err := imp.run(ctx, records); err != nil {
		if err == errAbortImport {
			return &ImportOutput{Errors: out.Errors}, nil
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// parseExportFile reads every line of r. Malformed lines become ImportErrors; a
// header with an unknown schema version fails the whole import.
func parseExportFile(r io.Reader) ([]parsedRecord, []ImportError, error) {
	var (
		records     []parsedRecord
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec exportLine
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if rec.LentoExport {
			if rec.SchemaVersion != ExportSchemaVersion {
				return nil, nil, errors.NewInvalidRequest(
					fmt.Sprintf("unsupported export schema version %q", rec.SchemaVersion))
			}
			continue
		}

		if msg := checkRecord(rec.ExportRecord); msg != "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      recordID(rec.ExportRecord),
				Code:    "INVALID_RECORD",
				Message: msg,
			})
			continue
		}

		records = append(records, parsedRecord{line: lineNum, ExportRecord: rec.ExportRecord})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors, nil
}

// checkRecord returns a reason the record is unusable, or "".
func checkRecord(r ExportRecord) string {
	switch r.Type {
	case RecordCategory:
		if r.Category == nil || r.Category.ID == "" {
			return "missing category"
		}
		if strings.TrimSpace(r.Category.Name) == "" {
			return "category name is empty"
		}
	case RecordTask:
		t := r.Task
		if t == nil || t.ID == "" {
			return "missing task"
		}
		if strings.TrimSpace(t.Name) == "" {
			return "task name is empty"
		}
		if t.EnergyCost < 1 || t.EnergyCost > 5 ||
			t.ExpectedInterval < 1 || t.ExpectedInterval > 30 ||
			t.Importance < habit.MinImportance || t.Importance > habit.MaxImportance {
			return "task fields out of range"
		}
	case RecordCompletion:
		c := r.Completion
		if c == nil || c.ID == "" || c.TaskID == "" {
			return "missing completion"
		}
		if c.Day.IsZero() {
			return "completion day is empty"
		}
	default:
		return fmt.Sprintf("unknown record type %q", r.Type)
	}
	return ""
}

func recordID(r ExportRecord) string {
	switch {
	case r.Category != nil:
		return r.Category.ID
	case r.Task != nil:
		return r.Task.ID
	case r.Completion != nil:
		return r.Completion.ID
	}
	return ""
}

var errAbortImport = errors.NewConflict("import aborted")

type importer struct {
	tx     *sql.Tx
	userID string
	mode   ImportMode
	now    time.Time
	out    *ImportOutput

	// file id -> stored id
	categories map[string]string
	tasks      map[string]string
}

func (imp *importer) run(ctx context.Context, records []parsedRecord) error {
	existing, err := db.ListCategories(ctx, imp.tx, imp.userID)
	if err != nil {
		return err
	}
	byName := make(map[string]db.Category, len(existing))
	for _, c := range existing {
		byName[db.NormalizeName(c.Name)] = c
	}

	for _, kind := range []string{RecordCategory, RecordTask, RecordCompletion} {
		for _, rec := range records {
			if rec.Type != kind {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			switch kind {
			case RecordCategory:
				err = imp.category(ctx, rec, byName)
			case RecordTask:
				err = imp.task(ctx, rec)
			case RecordCompletion:
				err = imp.completion(ctx, rec)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// collision records an id clash. mode:error aborts the import, mode:skip counts
// the record as skipped, mode:replace reports false so the caller overwrites.
func (imp *importer) collision(rec parsedRecord, kind, id string) (handled bool, err error) {
	switch imp.mode {
	case ImportModeError:
		imp.out.Errors = append(imp.out.Errors, ImportError{
			Line:    rec.line,
			ID:      id,
			Code:    "ID_COLLISION",
			Message: fmt.Sprintf("%s with id %q already exists", kind, id),
		})
		return true, errAbortImport
	case ImportModeSkip:
		imp.out.Skipped++
		return true, nil
	}
	return false, nil
}

func (imp *importer) category(ctx context.Context, rec parsedRecord, byName map[string]db.Category) error {
	c := *rec.Category
	fileID := c.ID
	c.UserID = imp.userID
	c.Name = strings.TrimSpace(c.Name)
	if c.Color == "" {
		c.Color = habit.DefaultColor
	}

	// Same name: merge into the existing category.
	if prev, ok := byName[db.NormalizeName(c.Name)]; ok {
		imp.categories[fileID] = prev.ID
		if prev.ID == fileID {
			if handled, err := imp.collision(rec, RecordCategory, fileID); handled {
				return err
			}
		} else if imp.mode == ImportModeError {
			imp.out.Errors = append(imp.out.Errors, ImportError{
				Line:    rec.line,
				ID:      fileID,
				Code:    "NAME_COLLISION",
				Message: fmt.Sprintf("category with name %q already exists", c.Name),
			})
			return errAbortImport
		} else if imp.mode == ImportModeSkip {
			imp.out.Skipped++
			return nil
		}
		c.ID = prev.ID
		if err := db.UpdateCategory(ctx, imp.tx, &c); err != nil {
			return err
		}
		byName[db.NormalizeName(c.Name)] = c
		imp.out.Categories++
		return nil
	}

	// Same id, renamed since the export.
	prev, err := db.GetCategory(ctx, imp.tx, imp.userID, fileID)
	switch {
	case err == nil:
		imp.categories[fileID] = fileID
		if handled, err := imp.collision(rec, RecordCategory, fileID); handled {
			return err
		}
		if err := db.UpdateCategory(ctx, imp.tx, &c); err != nil {
			return err
		}
		delete(byName, db.NormalizeName(prev.Name))
		byName[db.NormalizeName(c.Name)] = c
		imp.out.Categories++
		return nil
	case !errors.Is(err, errors.ErrNotFound):
		return err
	}

	err = db.InsertCategory(ctx, imp.tx, &c)
	if err == db.ErrUniqueConstraint {
		// The id belongs to another user's category.
		c.ID = newID(imp.now)
		err = db.InsertCategory(ctx, imp.tx, &c)
	}
	if err != nil {
		return err
	}
	imp.categories[fileID] = c.ID
	byName[db.NormalizeName(c.Name)] = c
	imp.out.Categories++
	return nil
}

func (imp *importer) task(ctx context.Context, rec parsedRecord) error {
	t := *rec.Task
	fileID := t.ID
	t.UserID = imp.userID
	t.LastDoneDate = nil
	if t.CategoryID != nil {
		if id, ok := imp.categories[*t.CategoryID]; ok {
			t.CategoryID = &id
		} else if _, err := db.GetCategory(ctx, imp.tx, imp.userID, *t.CategoryID); err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				return err
			}
			t.CategoryID = nil
		}
	}
	if t.Icon == "" {
		t.Icon = habit.DefaultIcon
	}
	if t.Color == "" {
		t.Color = habit.DefaultColor
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = imp.now.Unix()
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = t.CreatedAt
	}

	_, err := db.GetTask(ctx, imp.tx, imp.userID, fileID)
	switch {
	case err == nil:
		imp.tasks[fileID] = fileID
		if handled, err := imp.collision(rec, RecordTask, fileID); handled {
			return err
		}
		if err := db.UpdateTask(ctx, imp.tx, &t); err != nil {
			return err
		}
		imp.out.Tasks++
		return nil
	case !errors.Is(err, errors.ErrNotFound):
		return err
	}

	err = db.InsertTask(ctx, imp.tx, &t)
	if err == db.ErrUniqueConstraint {
		t.ID = newID(imp.now)
		err = db.InsertTask(ctx, imp.tx, &t)
	}
	if err != nil {
		return err
	}
	imp.tasks[fileID] = t.ID
	imp.out.Tasks++
	return nil
}

// completion inserts one completion. A completion already present for the same
// task and day is skipped in every mode.
func (imp *importer) completion(ctx context.Context, rec parsedRecord) error {
	c := *rec.Completion
	taskID, ok := imp.tasks[c.TaskID]
	if !ok {
		imp.out.Skipped++
		imp.out.Errors = append(imp.out.Errors, ImportError{
			Line:    rec.line,
			ID:      c.ID,
			Code:    "UNKNOWN_TASK",
			Message: fmt.Sprintf("completion references task %q which was not imported", c.TaskID),
		})
		return nil
	}
	c.TaskID = taskID
	c.UserID = imp.userID
	if c.CompletedAt == 0 {
		c.CompletedAt = imp.now.Unix()
	}

	inserted, err := db.InsertCompletion(ctx, imp.tx, &c)
	if err == db.ErrUniqueConstraint {
		c.ID = newID(imp.now)
		inserted, err = db.InsertCompletion(ctx, imp.tx, &c)
	}
	if err != nil {
		return err
	}
	if !inserted {
		imp.out.Skipped++
		return nil
	}
	imp.out.Completions++
	return nil
}
