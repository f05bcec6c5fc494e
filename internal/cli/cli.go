// Package cli parses TASKER's command-line surface (spec.md §6) into a
// Config the orchestrator consumes directly, grounded in the teacher's own
// stdlib flag.FlagSet usage rather than a third-party CLI framework — the
// surface is small and flat (no subcommands), exactly what flag.FlagSet is
// for (see DESIGN.md).
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"tasker/internal/logging"
	"tasker/internal/model"
)

// Config is the fully-parsed CLI invocation.
type Config struct {
	TaskFile string

	Run                  bool // -r/--run; false means dry-run
	LogDir               string
	LogLevel             logging.Level
	ExecOverride         model.ExecType
	DefaultTimeout       int
	ConnectionTest       bool
	Project              string
	StartFrom            int
	SkipTaskValidation   bool
	SkipHostValidation   bool
	SkipValidation       bool
	ValidateOnly         bool
	ShowPlan             bool
	Debug                bool
	EnvFile              string
}

// Parse parses args (excluding the program name, i.e. os.Args[1:]) into a
// Config. errOut receives flag.FlagSet's own usage/error text.
func Parse(args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet("tasker", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var cfg Config
	var logLevelStr string
	var execOverrideStr string

	fs.BoolVar(&cfg.Run, "r", false, "real execution; default is dry-run")
	fs.BoolVar(&cfg.Run, "run", false, "real execution; default is dry-run")
	fs.StringVar(&cfg.LogDir, "log-dir", "", "directory for the per-run log file")
	fs.StringVar(&logLevelStr, "log-level", "INFO", "ERROR|WARN|INFO|DEBUG")
	fs.StringVar(&execOverrideStr, "t", "", "exec type override")
	fs.StringVar(&execOverrideStr, "type", "", "exec type override")
	fs.IntVar(&cfg.DefaultTimeout, "o", 30, "default per-task timeout seconds, clamped 5-1000")
	fs.IntVar(&cfg.DefaultTimeout, "timeout", 30, "default per-task timeout seconds, clamped 5-1000")
	fs.BoolVar(&cfg.ConnectionTest, "c", false, "connection-test mode")
	fs.BoolVar(&cfg.ConnectionTest, "connection-test", false, "connection-test mode")
	fs.StringVar(&cfg.Project, "p", "", "sanitized summary-file prefix")
	fs.StringVar(&cfg.Project, "project", "", "sanitized summary-file prefix")
	fs.IntVar(&cfg.StartFrom, "start-from", 0, "resume execution at task N")
	fs.BoolVar(&cfg.SkipTaskValidation, "skip-task-validation", false, "")
	fs.BoolVar(&cfg.SkipHostValidation, "skip-host-validation", false, "")
	fs.BoolVar(&cfg.SkipValidation, "skip-validation", false, "")
	fs.BoolVar(&cfg.ValidateOnly, "validate-only", false, "parse and validate, then exit")
	fs.BoolVar(&cfg.ShowPlan, "show-plan", false, "print the resolved execution plan and exit")
	fs.BoolVar(&cfg.Debug, "d", false, "echo DEBUG-level log lines to stderr")
	fs.BoolVar(&cfg.Debug, "debug", false, "echo DEBUG-level log lines to stderr")
	fs.StringVar(&cfg.EnvFile, "env-file", "", "optional .env file loaded before global-variable expansion")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() < 1 {
		return Config{}, fmt.Errorf("usage: tasker [flags] <task-file>")
	}
	cfg.TaskFile = fs.Arg(0)

	level, err := logging.ParseLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	cfg.ExecOverride = model.NormalizeExecType(execOverrideStr)

	if cfg.LogDir == "" {
		cfg.LogDir = os.Getenv("TASK_EXECUTOR_LOG")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "."
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil {
			return Config{}, fmt.Errorf("loading --env-file %s: %w", cfg.EnvFile, err)
		}
	}

	return cfg, nil
}
