package ops

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
)

// seed creates a category, two tasks and three completions.
func seed(t *testing.T, f *fixture) {
	t.Helper()
	cat, err := CreateCategory(f.ctx, f.db, f.cfg, CreateCategoryInput{Name: "Home", Color: "#00ff00"})
	require.NoError(t, err)
	desc := "rinse *first*"
	a, err := CreateTask(f.ctx, f.db, f.cfg, CreateTaskInput{Name: "Dishes", Description: &desc, CategoryID: &cat.ID, EnergyCost: 2, ExpectedInterval: 1, Importance: 4})
	require.NoError(t, err)
	b := f.task(t, "Laundry", 3, 7, 3)
	f.complete(t, a.ID, 1)
	f.complete(t, a.ID, 0)
	f.complete(t, b.ID, 4)
}

func TestExport_WritesHeaderAndRecords(t *testing.T) {
	f := setup(t)
	seed(t, f)

	out, err := Export(f.ctx, f.db, f.cfg, ExportInput{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Categories)
	require.Equal(t, 2, out.Tasks)
	require.Equal(t, 3, out.Completions)
	require.Equal(t, filepath.Join(f.cfg.BaseDir, "exports"), filepath.Dir(out.Path))
	require.True(t, strings.HasPrefix(filepath.Base(out.Path), "local-"))

	file, err := os.Open(out.Path)
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)
	require.True(t, scanner.Scan())
	var header ExportHeader
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &header))
	require.True(t, header.LentoExport)
	require.Equal(t, ExportSchemaVersion, header.SchemaVersion)
	require.Equal(t, DefaultUserID, header.UserID)

	var types []string
	for scanner.Scan() {
		var rec ExportRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		types = append(types, rec.Type)
	}
	require.Equal(t, []string{"category", "task", "task", "completion", "completion", "completion"}, types)
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	f := setup(t)
	_, err := Export(f.ctx, f.db, f.cfg, ExportInput{Path: filepath.Join(t.TempDir(), "out.jsonl")})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := setup(t)
	seed(t, src)
	exported, err := Export(src.ctx, src.db, src.cfg, ExportInput{})
	require.NoError(t, err)

	dst := setup(t)
	dst.cfg.AllowedPaths = []string{filepath.Dir(exported.Path)}
	out, err := Import(dst.ctx, dst.db, dst.cfg, ImportInput{Path: exported.Path})
	require.NoError(t, err)
	require.Empty(t, out.Errors)
	require.Equal(t, 1, out.Categories)
	require.Equal(t, 2, out.Tasks)
	require.Equal(t, 3, out.Completions)

	wantTasks, _, err := db.ListTasks(src.ctx, src.db, db.TaskFilter{UserID: DefaultUserID})
	require.NoError(t, err)
	gotTasks, _, err := db.ListTasks(dst.ctx, dst.db, db.TaskFilter{UserID: DefaultUserID})
	require.NoError(t, err)
	if diff := cmp.Diff(wantTasks, gotTasks); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}

	wantComps, err := db.ListCompletions(src.ctx, src.db, DefaultUserID, "", habit.Date{}, habit.Date{})
	require.NoError(t, err)
	gotComps, err := db.ListCompletions(dst.ctx, dst.db, DefaultUserID, "", habit.Date{}, habit.Date{})
	require.NoError(t, err)
	if diff := cmp.Diff(wantComps, gotComps); diff != "" {
		t.Errorf("completions mismatch (-want +got):\n%s", diff)
	}

	wantSnap, err := Today(src.ctx, src.db, src.engine, src.cfg, TodayInput{Now: src.now})
	require.NoError(t, err)
	gotSnap, err := Today(dst.ctx, dst.db, dst.engine, dst.cfg, TodayInput{Now: dst.now})
	require.NoError(t, err)
	require.Equal(t, wantSnap, gotSnap)
}

func TestImport_ReownsRecords(t *testing.T) {
	src := setup(t)
	seed(t, src)
	exported, err := Export(src.ctx, src.db, src.cfg, ExportInput{})
	require.NoError(t, err)

	src.cfg.AllowedPaths = []string{filepath.Dir(exported.Path)}
	// Same ids already belong to "local" in this database.
	out, err := Import(src.ctx, src.db, src.cfg, ImportInput{UserID: "alice", Path: exported.Path})
	require.NoError(t, err)
	require.Empty(t, out.Errors)
	require.Equal(t, 2, out.Tasks)
	require.Equal(t, 3, out.Completions)

	alice, total, err := db.ListTasks(src.ctx, src.db, db.TaskFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.NotNil(t, alice[0].CategoryID)
	cats, err := db.ListCategories(src.ctx, src.db, "alice")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, cats[0].ID, *alice[0].CategoryID, "category reference remapped")
}

func TestImport_Modes(t *testing.T) {
	f := setup(t)
	seed(t, f)
	exported, err := Export(f.ctx, f.db, f.cfg, ExportInput{})
	require.NoError(t, err)
	f.cfg.AllowedPaths = []string{filepath.Dir(exported.Path)}

	// mode:error aborts on the first collision and writes nothing.
	out, err := Import(f.ctx, f.db, f.cfg, ImportInput{Path: exported.Path})
	require.NoError(t, err)
	require.Len(t, out.Errors, 1)
	require.Equal(t, "ID_COLLISION", out.Errors[0].Code)
	require.Zero(t, out.Tasks)

	// mode:skip keeps everything as is.
	out, err = Import(f.ctx, f.db, f.cfg, ImportInput{Path: exported.Path, Mode: ImportModeSkip})
	require.NoError(t, err)
	require.Empty(t, out.Errors)
	require.Zero(t, out.Tasks)
	require.Equal(t, 1+2+3, out.Skipped)

	// mode:replace restores edited tasks.
	list, err := ListTasks(f.ctx, f.db, f.cfg, ListTasksInput{})
	require.NoError(t, err)
	renamed := "Edited"
	_, err = UpdateTask(f.ctx, f.db, f.cfg, UpdateTaskInput{ID: list.Items[0].ID, Name: &renamed})
	require.NoError(t, err)

	out, err = Import(f.ctx, f.db, f.cfg, ImportInput{Path: exported.Path, Mode: ImportModeReplace})
	require.NoError(t, err)
	require.Equal(t, 2, out.Tasks)
	require.Equal(t, 3, out.Skipped, "completions already present")

	got, err := GetTask(f.ctx, f.db, f.cfg, GetTaskInput{ID: list.Items[0].ID})
	require.NoError(t, err)
	require.Equal(t, "Dishes", got.Name)

	_, err = Import(f.ctx, f.db, f.cfg, ImportInput{Path: exported.Path, Mode: "merge"})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestImport_BadLines(t *testing.T) {
	f := setup(t)
	dir := t.TempDir()
	f.cfg.AllowedPaths = []string{dir}
	path := filepath.Join(dir, "bad.jsonl")
	content := strings.Join([]string{
		`{"_lento_export":true,"schema_version":"1","exported_at":0,"user_id":"x"}`,
		`{"type":"task","task":{"id":"T1","name":"ok","energy_cost":1,"expected_interval":1,"importance":1}}`,
		`not json`,
		`{"type":"task","task":{"id":"T2","name":"bad","energy_cost":9,"expected_interval":1,"importance":1}}`,
		`{"type":"completion","completion":{"id":"C1","task_id":"T9","day":"2026-03-01"}}`,
		`{"type":"widget"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	// mode:error refuses a file with malformed lines.
	out, err := Import(f.ctx, f.db, f.cfg, ImportInput{Path: path})
	require.NoError(t, err)
	require.Len(t, out.Errors, 3)
	require.Zero(t, out.Tasks)

	out, err = Import(f.ctx, f.db, f.cfg, ImportInput{Path: path, Mode: ImportModeSkip})
	require.NoError(t, err)
	require.Equal(t, 1, out.Tasks)
	codes := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		codes = append(codes, e.Code)
	}
	if diff := cmp.Diff([]string{"PARSE_ERROR", "INVALID_RECORD", "INVALID_RECORD", "UNKNOWN_TASK"}, codes,
		cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("error codes (-want +got):\n%s", diff)
	}

	got, err := GetTask(f.ctx, f.db, f.cfg, GetTaskInput{ID: "T1"})
	require.NoError(t, err)
	require.Equal(t, habit.DefaultIcon, got.Icon)
}

func TestImport_UnsupportedSchema(t *testing.T) {
	f := setup(t)
	dir := t.TempDir()
	f.cfg.AllowedPaths = []string{dir}
	path := filepath.Join(dir, "future.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"_lento_export":true,"schema_version":"9"}`+"\n"), 0600))

	_, err := Import(f.ctx, f.db, f.cfg, ImportInput{Path: path})
	requireCode(t, err, errors.ErrInvalidRequest)
}
