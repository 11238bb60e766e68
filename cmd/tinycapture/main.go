package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/hpungsan/tinycapture/internal/config"
	"github.com/hpungsan/tinycapture/internal/db"
	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/logging"
	"github.com/hpungsan/tinycapture/internal/mcp"
	"github.com/hpungsan/tinycapture/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// baseDirName holds the database, lock file and global config under $HOME.
const baseDirName = ".tinycapture"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "command": true,
	"export": true, "import": true, "clear": true,
	"count": true, "list": true, "settings": true,
	"serve": true, "popup": true,
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
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
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
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  tinycapture

  Queue the URL of the focused tab, export it as JSON.

  Usage: tinycapture <command> [options]
         tinycapture --help

  MCP server mode requires piped input.`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatalf("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tinycapture --help' for usage.\n")
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatalf("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, baseDirName)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = homeDir
	}
	cfg, err := config.LoadWithProject(baseDir, cwd)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	env, err := ops.NewEnv(baseDir, database, cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}

	runner := dispatch.New(logger)
	defer runner.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env, runner)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			runner.Close()
			database.Close()
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(env, runner, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		runner.Close()
		database.Close()
		os.Exit(1)
	}
}
