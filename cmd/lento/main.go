package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/db"
	"github.com/lentoflow/lento/internal/habit"
	"github.com/lentoflow/lento/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"today": true, "add": true, "list": true, "show": true, "edit": true,
	"rm": true, "done": true, "undo": true,
	"category": true, "settings": true, "stats": true,
	"export": true, "import": true, "serve": true, "token": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags (--user alice today) also mean CLI.
	return strings.HasPrefix(arg, "-")
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _             _
  | | ___ _ __  | |_ ___
  | |/ _ \ '_ \ | __/ _ \
  | |  __/ | | || || (_) |
  |_|\___|_| |_| \__\___/

  Gentle daily habit planner

  Usage: lento <command> [options]
         lento --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no database.
	if isHelpOrVersion() {
		exitOn(newCLIApp(nil).Run(os.Args))
		return
	}

	env, cleanup, err := setup()
	exitOn(err)
	defer cleanup()

	if isCLIMode() {
		err := newCLIApp(env).Run(os.Args)
		cleanup()
		exitOn(err)
		return
	}

	// Unknown argument on a terminal is a typo, not an MCP client.
	if len(os.Args) >= 2 && isTerminal() {
		cleanup()
		fmt.Fprintf(os.Stderr, "error: unknown command %q\nRun 'lento --help' for usage.\n", os.Args[1])
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
		env.logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(env.cfg.DisabledTypes); len(unknown) > 0 {
		env.logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	err = mcp.Run(env.db, env.engine, env.cfg, Version)
	cleanup()
	exitOn(err)
}

// setup loads config, opens the store and builds the engine.
func setup() (*appEnv, func(), error) {
	baseDir, err := config.BaseDir()
	if err != nil {
		return nil, nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	policy, err := cfg.EnginePolicy()
	if err != nil {
		return nil, nil, err
	}
	engine, err := habit.NewEngine(policy, logger)
	if err != nil {
		return nil, nil, err
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	var once sync.Once
	cleanup := func() { once.Do(func() { database.Close() }) }
	return &appEnv{db: database, engine: engine, cfg: cfg, logger: logger}, cleanup, nil
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
