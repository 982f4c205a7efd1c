package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
//
// Settings are layered: defaults, then the TOML config file, then BUILDGRID_*
// variables (process environment first, then the .env file next to the build
// files), then the flags given explicitly on the command line.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("buildgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
BuildGridGo - An incremental, parallel build task runner.

Usage:
  buildgrid [options] BUILD_PATH [TASK...]

Arguments:
  BUILD_PATH
    Path to a single .hcl file or a directory containing .hcl files.
  TASK
    Task paths to run, such as "compile" or ":app:test". Every task runs
    when none is given.

Options:
`)
		flagSet.PrintDefaults()
	}

	var excluded stringList
	configFlag := flagSet.String("config", "", "Path to a TOML config file. Defaults to "+app.DefaultConfigFile+" in the build directory.")
	envFileFlag := flagSet.String("env-file", ".env", "Path of the .env file, relative to the build directory.")
	flagSet.Var(&excluded, "x", "Exclude a task and its exclusive dependencies. May be repeated.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the tasks that would run without running them.")
	rerunFlag := flagSet.Bool("rerun-tasks", false, "Ignore up-to-date checks and execute every task.")
	continueFlag := flagSet.Bool("continue", false, "Keep running independent tasks after a failure.")
	parallelismFlag := flagSet.Int("parallelism", 0, "Maximum number of tasks running at once.")
	watchFlag := flagSet.Bool("watch", false, "Rebuild whenever a task input changes.")
	storeFlag := flagSet.String("store", "", "Fingerprint store backend: memory, file, sqlite or postgres.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error(), Err: err}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No build path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg := app.DefaultConfig()
	cfg.BuildPath = flagSet.Arg(0)
	cfg.Requested = flagSet.Args()[1:]
	cfg.Excluded = excluded
	slog.Debug("Build path determined.", "path", cfg.BuildPath, "requested", cfg.Requested)

	configPath, required := *configFlag, true
	if configPath == "" {
		configPath, required = filepath.Join(cfg.BuildDir(), app.DefaultConfigFile), false
	}
	if err := app.LoadConfigFile(cfg, configPath, required); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error(), Err: err}
	}

	envFile := *envFileFlag
	if envFile != "" && !filepath.IsAbs(envFile) {
		envFile = filepath.Join(cfg.BuildDir(), envFile)
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error(), Err: err}
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dry-run":
			cfg.DryRun = *dryRunFlag
		case "rerun-tasks":
			cfg.Build.RerunTasks = *rerunFlag
		case "continue":
			cfg.Build.Continue = *continueFlag
		case "parallelism":
			cfg.Build.Parallelism = *parallelismFlag
		case "watch":
			cfg.Watch = *watchFlag
		case "store":
			cfg.Store.Backend = *storeFlag
		case "healthcheck-port":
			cfg.Server.HealthcheckPort = *healthPortFlag
		case "log-format":
			cfg.Log.Format = *logFormatFlag
		case "log-level":
			cfg.Log.Level = *logLevelFlag
		}
	})
	if cfg.DryRun && cfg.Watch {
		return nil, false, &ExitError{Code: 2, Message: "-dry-run and -watch cannot be combined"}
	}

	config, err := app.NewConfig(*cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error(), Err: err}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
