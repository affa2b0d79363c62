package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lentoflow/lento/internal/auth"
	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/errors"
	"github.com/lentoflow/lento/internal/habit"
	"github.com/lentoflow/lento/internal/ops"
	"github.com/lentoflow/lento/internal/web"
)

// maxStdinBytes caps descriptions piped via stdin.
const maxStdinBytes = 64 * 1024

// appEnv carries what every command needs. It is nil for --help and --version.
type appEnv struct {
	db     *sql.DB
	engine *habit.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "lento",
		Usage:   "Gentle daily habit planner",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, EnvVars: []string{"LENTO_USER"}, Usage: "User to act as (default: local)"},
		},
		Commands: []*cli.Command{
			todayCmd(env),
			addCmd(env),
			listCmd(env),
			showCmd(env),
			editCmd(env),
			rmCmd(env),
			doneCmd(env),
			undoCmd(env),
			categoryCmd(env),
			settingsCmd(env),
			statsCmd(env),
			exportCmd(env),
			importCmd(env),
			serveCmd(env),
			tokenCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func dateFlag() cli.Flag {
	return &cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Day as YYYY-MM-DD (default: today)"}
}

func tzFlag() cli.Flag {
	return &cli.StringFlag{Name: "tz", Usage: "IANA time zone (default: the user's setting)"}
}

// todayCmd creates the today command.
func todayCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Show today's recommended tasks, garden health and score",
		Flags: []cli.Flag{dateFlag(), tzFlag()},
		Action: func(c *cli.Context) error {
			date, err := parseDate(c.String("date"))
			if err != nil {
				return outputError(err)
			}
			snap, err := ops.Today(c.Context, env.db, env.engine, env.cfg, ops.TodayInput{
				UserID: c.String("user"),
				Date:   date,
				TZ:     c.String("tz"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, snap)
		},
	}
}

func taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "energy", Aliases: []string{"e"}, Usage: "Energy cost, 1-5"},
		&cli.IntFlag{Name: "interval", Aliases: []string{"i"}, Usage: "Expected days between completions, 1-30"},
		&cli.IntFlag{Name: "importance", Aliases: []string{"p"}, Usage: "Importance, 1-5"},
		&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Category ID"},
		&cli.StringFlag{Name: "description", Usage: "Markdown description, or - to read stdin"},
		&cli.StringFlag{Name: "icon", Usage: "Display icon"},
		&cli.StringFlag{Name: "color", Usage: "Hex color"},
	}
}

// addCmd creates the add command.
func addCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a recurring task",
		ArgsUsage: "<name>",
		Flags:     taskFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("task name is required"))
			}
			desc, err := descriptionFlag(c)
			if err != nil {
				return outputError(err)
			}
			task, err := ops.CreateTask(c.Context, env.db, env.cfg, ops.CreateTaskInput{
				UserID:           c.String("user"),
				Name:             strings.Join(c.Args().Slice(), " "),
				Description:      desc,
				EnergyCost:       c.Int("energy"),
				ExpectedInterval: c.Int("interval"),
				Importance:       c.Int("importance"),
				CategoryID:       optString(c, "category"),
				Icon:             c.String("icon"),
				Color:            c.String("color"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, task)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category ID"},
			&cli.BoolFlag{Name: "active", Usage: "Only active tasks"},
			&cli.BoolFlag{Name: "paused", Usage: "Only paused tasks"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListTasksInput{
				UserID:     c.String("user"),
				CategoryID: optString(c, "category"),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			}
			switch {
			case c.Bool("active") && c.Bool("paused"):
				return outputError(errors.NewInvalidRequest("--active and --paused are mutually exclusive"))
			case c.Bool("active"):
				input.Active = ptr(true)
			case c.Bool("paused"):
				input.Active = ptr(false)
			}

			output, err := ops.ListTasks(c.Context, env.db, env.cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a task",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			task, err := ops.GetTask(c.Context, env.db, env.cfg, ops.GetTaskInput{
				UserID: c.String("user"),
				ID:     c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, task)
		},
	}
}

// editCmd creates the edit command.
func editCmd(env *appEnv) *cli.Command {
	flags := append(taskFlags(),
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
		&cli.BoolFlag{Name: "pause", Usage: "Pause the task"},
		&cli.BoolFlag{Name: "resume", Usage: "Resume a paused task"},
	)
	return &cli.Command{
		Name:      "edit",
		Usage:     "Update a task; only the given flags change",
		ArgsUsage: "<id>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			desc, err := descriptionFlag(c)
			if err != nil {
				return outputError(err)
			}
			input := ops.UpdateTaskInput{
				UserID:           c.String("user"),
				ID:               c.Args().First(),
				Name:             optString(c, "name"),
				Description:      desc,
				EnergyCost:       optInt(c, "energy"),
				ExpectedInterval: optInt(c, "interval"),
				Importance:       optInt(c, "importance"),
				CategoryID:       optString(c, "category"),
				Icon:             optString(c, "icon"),
				Color:            optString(c, "color"),
			}
			switch {
			case c.Bool("pause") && c.Bool("resume"):
				return outputError(errors.NewInvalidRequest("--pause and --resume are mutually exclusive"))
			case c.Bool("pause"):
				input.IsActive = ptr(false)
			case c.Bool("resume"):
				input.IsActive = ptr(true)
			}

			task, err := ops.UpdateTask(c.Context, env.db, env.cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, task)
		},
	}
}

// rmCmd creates the rm command.
func rmCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a task and its history",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.DeleteTask(c.Context, env.db, env.cfg, ops.DeleteTaskInput{
				UserID: c.String("user"),
				ID:     c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// doneCmd creates the done command.
func doneCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "done",
		Usage:     "Mark a task done",
		ArgsUsage: "<task-id>",
		Flags: []cli.Flag{
			dateFlag(),
			tzFlag(),
			&cli.StringFlag{Name: "note", Usage: "Optional note"},
			&cli.IntFlag{Name: "mood", Usage: "Optional mood, 1-5"},
		},
		Action: func(c *cli.Context) error {
			date, err := parseDate(c.String("date"))
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Complete(c.Context, env.db, env.engine, env.cfg, ops.CompleteInput{
				UserID: c.String("user"),
				TaskID: c.Args().First(),
				Date:   date,
				TZ:     c.String("tz"),
				Note:   optString(c, "note"),
				Mood:   optInt(c, "mood"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// undoCmd creates the undo command.
func undoCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "undo",
		Usage:     "Remove a task's completion",
		ArgsUsage: "<task-id>",
		Flags:     []cli.Flag{dateFlag(), tzFlag()},
		Action: func(c *cli.Context) error {
			date, err := parseDate(c.String("date"))
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Uncomplete(c.Context, env.db, env.cfg, ops.UncompleteInput{
				UserID: c.String("user"),
				TaskID: c.Args().First(),
				Date:   date,
				TZ:     c.String("tz"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// categoryCmd creates the category command group.
func categoryCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "category",
		Usage: "Manage categories",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a category",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "color", Usage: "Hex color"},
					&cli.IntFlag{Name: "sort", Usage: "Sort order"},
				},
				Action: func(c *cli.Context) error {
					cat, err := ops.CreateCategory(c.Context, env.db, env.cfg, ops.CreateCategoryInput{
						UserID:    c.String("user"),
						Name:      strings.Join(c.Args().Slice(), " "),
						Color:     c.String("color"),
						SortOrder: c.Int("sort"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, cat)
				},
			},
			{
				Name:  "list",
				Usage: "List categories",
				Action: func(c *cli.Context) error {
					output, err := ops.ListCategories(c.Context, env.db, env.cfg, ops.ListCategoriesInput{UserID: c.String("user")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "edit",
				Usage:     "Update a category",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "color", Usage: "Hex color"},
					&cli.IntFlag{Name: "sort", Usage: "Sort order"},
					&cli.BoolFlag{Name: "active", Value: true, Usage: "Whether the category is shown"},
				},
				Action: func(c *cli.Context) error {
					input := ops.UpdateCategoryInput{
						UserID:    c.String("user"),
						ID:        c.Args().First(),
						Name:      optString(c, "name"),
						Color:     optString(c, "color"),
						SortOrder: optInt(c, "sort"),
					}
					if c.IsSet("active") {
						input.IsActive = ptr(c.Bool("active"))
					}
					cat, err := ops.UpdateCategory(c.Context, env.db, env.cfg, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, cat)
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a category; its tasks become uncategorized",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteCategory(c.Context, env.db, env.cfg, ops.DeleteCategoryInput{
						UserID: c.String("user"),
						ID:     c.Args().First(),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// settingsCmd creates the settings command group.
func settingsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change user settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show settings",
				Action: func(c *cli.Context) error {
					u, err := ops.GetSettings(c.Context, env.db, env.cfg, ops.GetSettingsInput{UserID: c.String("user")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, u)
				},
			},
			{
				Name:  "set",
				Usage: "Change settings; only the given flags change",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.IntFlag{Name: "budget", Usage: "Daily energy budget"},
					&cli.IntFlag{Name: "max-tasks", Usage: "Maximum recommended tasks per day (0 = no limit)"},
					&cli.StringFlag{Name: "timezone", Usage: "IANA time zone"},
				},
				Action: func(c *cli.Context) error {
					u, err := ops.UpdateSettings(c.Context, env.db, env.cfg, ops.UpdateSettingsInput{
						UserID:            c.String("user"),
						Name:              optString(c, "name"),
						DailyEnergyBudget: optInt(c, "budget"),
						MaxDailyTasks:     optInt(c, "max-tasks"),
						Timezone:          optString(c, "timezone"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, u)
				},
			},
		},
	}
}

// statsCmd creates the stats command group.
func statsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Task and daily statistics",
		Subcommands: []*cli.Command{
			{
				Name:      "task",
				Usage:     "Streaks and completion rate of one task",
				ArgsUsage: "<task-id>",
				Flags:     []cli.Flag{tzFlag()},
				Action: func(c *cli.Context) error {
					output, err := ops.TaskStats(c.Context, env.db, env.engine, env.cfg, ops.TaskStatsInput{
						UserID: c.String("user"),
						TaskID: c.Args().First(),
						TZ:     c.String("tz"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "heatmap",
				Usage: "Completions per day",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Value: ops.DefaultHeatmapDays, Usage: "Number of days"},
					tzFlag(),
				},
				Action: func(c *cli.Context) error {
					output, err := ops.Heatmap(c.Context, env.db, env.cfg, ops.HeatmapInput{
						UserID: c.String("user"),
						Days:   c.Int("days"),
						TZ:     c.String("tz"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "daily",
				Usage: "Daily score and garden health for recent days",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Value: ops.DefaultDailyDays, Usage: "Number of days"},
					tzFlag(),
				},
				Action: func(c *cli.Context) error {
					output, err := ops.DailyHistory(c.Context, env.db, env.engine, env.cfg, ops.DailyHistoryInput{
						UserID: c.String("user"),
						Days:   c.Int("days"),
						TZ:     c.String("tz"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export categories, tasks and completions to JSONL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.lento/exports/<user>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.db, env.cfg, ops.ExportInput{
				UserID: c.String("user"),
				Path:   c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a JSONL export",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeError), Usage: "Collision mode: error|skip|replace"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			output, err := ops.Import(c.Context, env.db, env.cfg, ops.ImportInput{
				UserID: c.String("user"),
				Path:   c.Args().First(),
				Mode:   ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config: 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default from config: 8080)"},
		},
		Action: func(c *cli.Context) error {
			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if cfg.JWTSecret == "" {
				env.logger.Warn("jwt_secret is not set; the API is unauthenticated and acts as the local user")
			}
			srv := web.NewServer(env.db, env.engine, &cfg, env.logger, Version)
			return web.Run(srv, env.logger)
		},
	}
}

// tokenCmd creates the token command.
func tokenCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an API bearer token for --user",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime (default from config: token_ttl_hours)"},
		},
		Action: func(c *cli.Context) error {
			ttl := time.Duration(env.cfg.TokenTTLHours) * time.Hour
			if c.IsSet("ttl") {
				ttl = c.Duration("ttl")
			}
			userID := c.String("user")
			if userID == "" {
				userID = ops.DefaultUserID
			}
			token, expires, err := auth.New(env.cfg.JWTSecret, ttl).Issue(userID)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{
				"token":      token,
				"user_id":    userID,
				"expires_at": expires.Unix(),
			})
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if lErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", lErr.Code, lErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDate parses an optional YYYY-MM-DD flag value.
func parseDate(s string) (habit.Date, error) {
	if s == "" {
		return habit.Date{}, nil
	}
	d, err := habit.ParseDate(s)
	if err != nil {
		return habit.Date{}, errors.NewInvalidField("date", "must be YYYY-MM-DD")
	}
	return d, nil
}

// descriptionFlag returns --description, reading stdin when it is "-".
func descriptionFlag(c *cli.Context) (*string, error) {
	if !c.IsSet("description") {
		return nil, nil
	}
	desc := c.String("description")
	if desc != "-" {
		return &desc, nil
	}
	if !stdinHasData() {
		return nil, errors.NewInvalidRequest("--description - expects piped stdin")
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return nil, err
	}
	return &text, nil
}

func optString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func optInt(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

func ptr[T any](v T) *T { return &v }

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads up to limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}
