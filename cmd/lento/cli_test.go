package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lentoflow/lento/internal/auth"
	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/habit"
	"github.com/lentoflow/lento/internal/ops"
)

// setupEnv creates a temporary database and command environment.
func setupEnv(t *testing.T) *appEnv {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.BaseDir = tmpDir
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &appEnv{
		db:     database,
		engine: habit.MustNewEngine(habit.DefaultPolicy(), logger),
		cfg:    cfg,
		logger: logger,
	}
}

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, env *appEnv, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(env)
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"lento"}, args...))
	return out.String(), err
}

// mustRun runs the CLI, fails the test on error and decodes the output into T.
func mustRun[T any](t *testing.T, env *appEnv, args ...string) T {
	t.Helper()
	out, err := run(t, env, args...)
	if err != nil {
		t.Fatalf("lento %s: %v", strings.Join(args, " "), err)
	}
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return v
}

func TestCLIAddListShow(t *testing.T) {
	env := setupEnv(t)

	task := mustRun[db.Task](t, env, "add", "--energy=3", "--interval=7", "--importance=4", "Water", "plants")
	if task.Name != "Water plants" {
		t.Errorf("name = %q, want %q", task.Name, "Water plants")
	}
	if task.EnergyCost != 3 || task.ExpectedInterval != 7 || task.Importance != 4 {
		t.Errorf("unexpected task fields: %+v", task)
	}

	list := mustRun[ops.ListTasksOutput](t, env, "list")
	if len(list.Items) != 1 || list.Items[0].ID != task.ID {
		t.Errorf("list = %+v", list.Items)
	}

	shown := mustRun[db.Task](t, env, "show", task.ID)
	if shown.ID != task.ID {
		t.Errorf("show returned %s, want %s", shown.ID, task.ID)
	}
}

func TestCLIEditPauseRemove(t *testing.T) {
	env := setupEnv(t)
	task := mustRun[db.Task](t, env, "add", "Laundry")

	edited := mustRun[db.Task](t, env, "edit", "--name=Fold laundry", "--pause", task.ID)
	if edited.Name != "Fold laundry" || edited.IsActive {
		t.Errorf("edit result = %+v", edited)
	}
	if edited.EnergyCost != task.EnergyCost {
		t.Errorf("unset flags must not change energy_cost: %d → %d", task.EnergyCost, edited.EnergyCost)
	}

	paused := mustRun[ops.ListTasksOutput](t, env, "list", "--paused")
	if len(paused.Items) != 1 {
		t.Errorf("paused tasks = %d, want 1", len(paused.Items))
	}
	active := mustRun[ops.ListTasksOutput](t, env, "list", "--active")
	if len(active.Items) != 0 {
		t.Errorf("active tasks = %d, want 0", len(active.Items))
	}

	if _, err := run(t, env, "edit", "--pause", "--resume", task.ID); err == nil {
		t.Error("expected error for --pause with --resume")
	}

	del := mustRun[ops.DeleteTaskOutput](t, env, "rm", task.ID)
	if !del.Deleted {
		t.Error("expected deleted=true")
	}
	if _, err := run(t, env, "show", task.ID); err == nil {
		t.Error("expected error showing a deleted task")
	}
}

func TestCLIDoneUndoToday(t *testing.T) {
	env := setupEnv(t)
	task := mustRun[db.Task](t, env, "add", "--energy=2", "Stretch")

	done := mustRun[ops.CompleteOutput](t, env, "done", "--mood=4", "--note=easy", task.ID)
	if done.AlreadyCompleted {
		t.Error("first completion should not be already_completed")
	}
	if done.DailyScore.EnergySpent != 2 {
		t.Errorf("energy_spent = %d, want 2", done.DailyScore.EnergySpent)
	}

	again := mustRun[ops.CompleteOutput](t, env, "done", task.ID)
	if !again.AlreadyCompleted {
		t.Error("second completion should be already_completed")
	}

	snap := mustRun[habit.TodaySnapshot](t, env, "today")
	if snap.EnergySpent != 2 {
		t.Errorf("today energy_spent = %d, want 2", snap.EnergySpent)
	}

	undo := mustRun[ops.UncompleteOutput](t, env, "undo", task.ID)
	if !undo.Removed {
		t.Error("expected removed=true")
	}
	snap = mustRun[habit.TodaySnapshot](t, env, "today")
	if snap.EnergySpent != 0 {
		t.Errorf("after undo energy_spent = %d, want 0", snap.EnergySpent)
	}
}

func TestCLIBackfill(t *testing.T) {
	env := setupEnv(t)
	task := mustRun[db.Task](t, env, "add", "Journal")

	out := mustRun[ops.CompleteOutput](t, env, "done", "--date=2026-01-02", task.ID)
	if out.Completion.Day != habit.MustParseDate("2026-01-02") {
		t.Errorf("completion day = %s, want 2026-01-02", out.Completion.Day)
	}

	snap := mustRun[habit.TodaySnapshot](t, env, "today", "--date=2026-01-02")
	if snap.DailyScore.TasksCompleted != 1 {
		t.Errorf("tasks_completed on 2026-01-02 = %d, want 1", snap.DailyScore.TasksCompleted)
	}

	if _, err := run(t, env, "today", "--date=02/01/2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestCLICategoriesAndSettings(t *testing.T) {
	env := setupEnv(t)

	cat := mustRun[db.Category](t, env, "category", "add", "--color=#336699", "Home")
	if cat.Name != "Home" {
		t.Errorf("category name = %q", cat.Name)
	}
	mustRun[db.Task](t, env, "add", "--category="+cat.ID, "Vacuum")

	cats := mustRun[ops.ListCategoriesOutput](t, env, "category", "list")
	if len(cats.Items) != 1 {
		t.Errorf("categories = %d, want 1", len(cats.Items))
	}

	renamed := mustRun[db.Category](t, env, "category", "edit", "--name=House", cat.ID)
	if renamed.Name != "House" {
		t.Errorf("renamed = %q, want House", renamed.Name)
	}

	del := mustRun[ops.DeleteCategoryOutput](t, env, "category", "rm", cat.ID)
	if del.TasksDetached != 1 {
		t.Errorf("tasks_detached = %d, want 1", del.TasksDetached)
	}

	u := mustRun[db.User](t, env, "settings", "set", "--budget=9", "--timezone=Europe/Berlin")
	if u.DailyEnergyBudget != 9 || u.Timezone != "Europe/Berlin" {
		t.Errorf("settings = %+v", u)
	}
	shown := mustRun[db.User](t, env, "settings", "show")
	if shown.DailyEnergyBudget != 9 {
		t.Errorf("budget = %d, want 9", shown.DailyEnergyBudget)
	}
}

func TestCLIStats(t *testing.T) {
	env := setupEnv(t)
	task := mustRun[db.Task](t, env, "add", "Read")
	mustRun[ops.CompleteOutput](t, env, "done", task.ID)

	stats := mustRun[ops.TaskStatsOutput](t, env, "stats", "task", task.ID)
	if stats.TotalCompletions != 1 || stats.CurrentStreak != 1 {
		t.Errorf("stats = %+v", stats)
	}

	heat := mustRun[ops.HeatmapOutput](t, env, "stats", "heatmap", "--days=14")
	if len(heat.Data) != 14 {
		t.Errorf("heatmap cells = %d, want 14", len(heat.Data))
	}

	daily := mustRun[ops.DailyHistoryOutput](t, env, "stats", "daily", "--days=3")
	if len(daily.Days) != 3 {
		t.Errorf("daily rows = %d, want 3", len(daily.Days))
	}
}

func TestCLIUserFlag(t *testing.T) {
	env := setupEnv(t)
	mustRun[db.Task](t, env, "--user=alice", "add", "Alice's task")

	local := mustRun[ops.ListTasksOutput](t, env, "list")
	if len(local.Items) != 0 {
		t.Errorf("local user sees %d tasks, want 0", len(local.Items))
	}
	alice := mustRun[ops.ListTasksOutput](t, env, "-u", "alice", "list")
	if len(alice.Items) != 1 {
		t.Errorf("alice sees %d tasks, want 1", len(alice.Items))
	}
}

func TestCLIExportImport(t *testing.T) {
	env := setupEnv(t)
	task := mustRun[db.Task](t, env, "add", "Dishes")
	mustRun[ops.CompleteOutput](t, env, "done", task.ID)

	exported := mustRun[ops.ExportOutput](t, env, "export")
	if exported.Tasks != 1 || exported.Completions != 1 {
		t.Errorf("export = %+v", exported)
	}
	if filepath.Dir(exported.Path) != filepath.Join(env.cfg.BaseDir, "exports") {
		t.Errorf("export path = %s", exported.Path)
	}

	dst := setupEnv(t)
	dst.cfg.AllowedPaths = []string{filepath.Dir(exported.Path)}
	imported := mustRun[ops.ImportOutput](t, dst, "import", exported.Path)
	if imported.Tasks != 1 || imported.Completions != 1 || len(imported.Errors) != 0 {
		t.Errorf("import = %+v", imported)
	}

	if _, err := run(t, dst, "import", "--mode=merge", exported.Path); err == nil {
		t.Error("expected error for unknown import mode")
	}
	if _, err := run(t, dst, "import"); err == nil {
		t.Error("expected error without a path")
	}
}

func TestCLIToken(t *testing.T) {
	env := setupEnv(t)

	if _, err := run(t, env, "--user=alice", "token"); err == nil {
		t.Error("expected error when jwt_secret is unset")
	}

	env.cfg.JWTSecret = "cli-secret"
	out := mustRun[map[string]any](t, env, "--user=alice", "token", "--ttl=1h")
	token, _ := out["token"].(string)
	userID, err := auth.New("cli-secret", 0).Parse(token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if userID != "alice" {
		t.Errorf("token subject = %q, want alice", userID)
	}
}

func TestCLIErrorHandling(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"show not found", []string{"show", "nope"}},
		{"rm not found", []string{"rm", "nope"}},
		{"done not found", []string{"done", "nope"}},
		{"add without name", []string{"add"}},
		{"add out of range", []string{"add", "--energy=9", "x"}},
		{"bad timezone", []string{"today", "--tz=Mars/Base"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, env, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	_, err := run(t, env, "show", "nope")
	if err == nil || !strings.HasPrefix(err.Error(), "[NOT_FOUND]") {
		t.Errorf("error = %v, want [NOT_FOUND] prefix", err)
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"lento"}, expected: false},
		{name: "today command", args: []string{"lento", "today"}, expected: true},
		{name: "category command", args: []string{"lento", "category", "list"}, expected: true},
		{name: "global user flag", args: []string{"lento", "--user=alice", "today"}, expected: true},
		{name: "help flag", args: []string{"lento", "--help"}, expected: true},
		{name: "version flag", args: []string{"lento", "-v"}, expected: true},
		{name: "unknown word defaults to MCP", args: []string{"lento", "garden"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"lento"}, expected: false},
		{name: "help flag", args: []string{"lento", "--help"}, expected: true},
		{name: "short help flag", args: []string{"lento", "-h"}, expected: true},
		{name: "version flag", args: []string{"lento", "--version"}, expected: true},
		{name: "help subcommand", args: []string{"lento", "help"}, expected: true},
		{name: "today is not help", args: []string{"lento", "today"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, "  small content\n")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "small content" {
			t.Errorf("expected %q, got %q", "small content", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})

	t.Run("description from stdin", func(t *testing.T) {
		env := setupEnv(t)
		withStdin(t, "Use the **blue** can")
		task := mustRun[db.Task](t, env, "add", "--description=-", "Water")
		if task.Description == nil || *task.Description != "Use the **blue** can" {
			t.Errorf("description = %v", task.Description)
		}
	})
}
