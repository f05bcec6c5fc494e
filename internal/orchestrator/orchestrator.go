// Package orchestrator wires every other package into the run loop
// spec.md §4.10 describes: parse the task file, validate it, resolve the
// hosts it touches, drive tasks through the executor package one routing
// Decision at a time, persist a recovery snapshot when the run stops short,
// and write exactly one summary row once tasks have been driven. A run that
// ends before that (parse, validation or host-resolution failure, a log
// file that cannot be opened, --show-plan, --validate-only) writes no
// summary row. Grounded in the teacher's
// cmd/scriptweaver/main.go + internal/cli/run.go split between argument
// handling and the actual run loop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tasker/internal/cli"
	"tasker/internal/exitcode"
	"tasker/internal/executor"
	"tasker/internal/hostresolve"
	"tasker/internal/logging"
	"tasker/internal/model"
	"tasker/internal/parser"
	"tasker/internal/recovery"
	"tasker/internal/state"
	"tasker/internal/summary"
	"tasker/internal/taskerrors"
	"tasker/internal/trace"
	"tasker/internal/validate"
	"tasker/internal/workflow"
)

// Result is what Run returns: the process exit code and, for
// --show-plan/--validate-only, nothing further to do.
type Result struct {
	ExitCode int
}

// Run executes one full engine invocation against cfg and returns the
// process exit code to use.
func Run(cfg cli.Config, stdout, stderr *os.File) Result {
	runID := uuid.New().String()

	f, err := os.Open(cfg.TaskFile)
	if err != nil {
		fmt.Fprintf(stderr, "FAILURE: cannot open task file: %v\n", err)
		return Result{ExitCode: exitcode.ValidationFailed}
	}
	parsed, perr := parser.Parse(f)
	f.Close()
	if perr != nil {
		fmt.Fprintf(stderr, "FAILURE: %v\n", perr)
		return Result{ExitCode: exitcode.ForError(perr)}
	}

	if !cfg.SkipValidation && !cfg.SkipTaskValidation {
		if verr := validate.File(parsed.Tasks); verr != nil {
			fmt.Fprintf(stderr, "FAILURE: validation errors:\n%v\n", verr)
			return Result{ExitCode: exitcode.ValidationFailed}
		}
	}

	if cfg.ShowPlan {
		printPlan(stdout, parsed)
		return Result{ExitCode: exitcode.OK}
	}
	if cfg.ValidateOnly {
		fmt.Fprintln(stdout, "SUCCESS: task file is valid")
		return Result{ExitCode: exitcode.OK}
	}

	if !cfg.SkipValidation && !cfg.SkipHostValidation {
		if herr := resolveHosts(parsed.Tasks); herr != nil {
			fmt.Fprintf(stderr, "FAILURE: %v\n", herr)
			return Result{ExitCode: exitcode.GenericFailure}
		}
	}

	logPath := logFilePath(cfg)
	logger, lerr := logging.NewFile(logPath, cfg.LogLevel, debugEcho(cfg, stderr))
	if lerr != nil {
		fmt.Fprintf(stderr, "FAILURE: cannot open log file: %v\n", lerr)
		return Result{ExitCode: exitcode.GenericFailure}
	}
	logger.Infof("run %s starting, task file %s, dry-run=%v", runID, cfg.TaskFile, !cfg.Run)

	taskFileHash, _ := recovery.HashTaskFile(cfg.TaskFile)
	recoveryPath := recovery.Path(cfg.LogDir, cfg.TaskFile, taskFileHash)

	mgr := state.New(parsed.Globals)
	recorder := trace.NewRecorder()
	rt := &executor.Runtime{
		Tasks:                 parsed.Tasks,
		State:                 mgr,
		Logger:                logger,
		DryRun:                !cfg.Run,
		CLIExecOverride:       cfg.ExecOverride,
		DefaultTimeoutSeconds: clamp(cfg.DefaultTimeout),
		Trace:                 recorder,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalHandler(cancel, logger)

	startID := 1
	if cfg.StartFrom > 0 {
		startID = cfg.StartFrom
	}

	finalCode, runErr := drive(ctx, rt, startID, logger, func(failure *recovery.FailureInfo) {
		snap := recovery.Build(taskFileHash, mgr.ExecutionPath(), mgr.AllResults(), mgr.Globals(), failure)
		if err := recovery.Save(recoveryPath, snap); err != nil {
			logger.Warnf("could not save recovery snapshot: %v", err)
		}
	})

	status := "SUCCESS"
	if finalCode != exitcode.OK {
		status = "FAILURE"
	}
	fmt.Fprintf(stdout, "%s: run %s finished with exit code %d\n", status, runID, finalCode)

	if status == "SUCCESS" {
		_ = recovery.Delete(recoveryPath)
	}

	sumPath := summaryPath(cfg)
	lastID := mgr.CurrentTask()
	lastTask := rt.Tasks[lastID]
	lastResult, _ := mgr.TaskResult(lastID)
	if serr := summary.Append(sumPath, summary.Row{
		Timestamp: time.Now(),
		TaskFile:  cfg.TaskFile,
		TaskID:    lastID,
		Hostname:  lastTask.Hostname,
		Command:   lastTask.Command,
		ExitCode:  lastResult.ExitCode,
		Status:    status,
		LogFile:   logPath,
	}); serr != nil {
		logger.Errorf("summary write failed: %v", serr)
		fmt.Fprintf(stderr, "WARNING: summary write failed: %v\n", serr)
	}

	if runErr != nil {
		logger.Errorf("run ended with error: %v", runErr)
	}
	if h, herr := recorder.Trace(runID).Hash(); herr == nil {
		logger.Debugf("execution trace hash: %s", h)
	}
	logger.Infof("run %s exiting with code %d", runID, finalCode)

	return Result{ExitCode: finalCode}
}

// drive is the core task-to-task loop: dispatch the current task, apply
// its Decision, repeat until a terminal signal or SignalExit.
func drive(ctx context.Context, rt *executor.Runtime, startID int, logger *logging.Logger, snapshot func(*recovery.FailureInfo)) (int, error) {
	id := startID
	for {
		select {
		case <-ctx.Done():
			snapshot(&recovery.FailureInfo{TaskID: id, Message: "interrupted"})
			return exitcode.Interrupted, &taskerrors.Interrupted{Signal: "SIGINT/SIGTERM"}
		default:
		}

		if _, ok := rt.Tasks[id]; !ok {
			return exitcode.OK, nil
		}

		logger.Debugf("dispatching task %d", id)
		decision, err := rt.RunTask(ctx, id)
		if err != nil {
			snapshot(&recovery.FailureInfo{TaskID: id, Message: err.Error()})
			logger.Errorf("task %d: %v", id, err)
			if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
				// FatalRuntime: the command's binary is missing.
				return exitcode.ValidationFailed, err
			}
			return exitcode.GenericFailure, err
		}

		switch decision.Signal {
		case workflow.SignalNone:
			id = decision.Target
		case workflow.SignalLoop:
			id = decision.Target
		case workflow.SignalTerminalOK:
			return exitcode.OK, nil
		case workflow.SignalTerminalFail:
			snapshot(&recovery.FailureInfo{TaskID: id, Message: "workflow condition failed"})
			return exitcode.WorkflowConditionFail, nil
		case workflow.SignalExit:
			if decision.ExitCode != 0 {
				snapshot(&recovery.FailureInfo{TaskID: id, Message: "task-defined return"})
			}
			return decision.ExitCode, nil
		default:
			return exitcode.GenericFailure, fmt.Errorf("internal: unknown decision signal %v", decision.Signal)
		}
	}
}

func resolveHosts(tasks map[int]model.Task) error {
	r := hostresolve.New()
	seen := make(map[string]bool)
	for _, t := range tasks {
		if t.Hostname == "" || seen[t.Hostname] {
			continue
		}
		seen[t.Hostname] = true
		if err := r.Resolve(context.Background(), t.Hostname); err != nil {
			return err
		}
	}
	return nil
}

func clamp(n int) int {
	if n < 5 {
		return 5
	}
	if n > 1000 {
		return 1000
	}
	return n
}

func logFilePath(cfg cli.Config) string {
	base := filepath.Base(cfg.TaskFile)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	suffix := "log"
	if !cfg.Run {
		suffix = "dryrun"
	}
	name := fmt.Sprintf("%s_%s.%s", sanitizeName(stem), time.Now().Format("02Jan06_150405"), suffix)
	return filepath.Join(cfg.LogDir, name)
}

func summaryPath(cfg cli.Config) string {
	prefix := cfg.Project
	if prefix == "" {
		prefix = "tasker"
	}
	return filepath.Join(cfg.LogDir, sanitizeName(prefix)+"_summary.tsv")
}

func sanitizeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func debugEcho(cfg cli.Config, stderr *os.File) io.Writer {
	if cfg.Debug {
		return stderr
	}
	return nil
}

func printPlan(out *os.File, parsed *parser.File) {
	fmt.Fprintln(out, "execution plan:")
	for _, id := range parsed.Order {
		t := parsed.Tasks[id]
		fmt.Fprintf(out, "  %d: type=%s command=%q hostname=%q\n", id, t.EffectiveType(), t.Command, t.Hostname)
	}
}

var signalOnce sync.Once

func installSignalHandler(cancel context.CancelFunc, logger *logging.Logger) {
	signalOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-ch
			logger.Warnf("received %v, shutting down", sig)
			cancel()
		}()
	})
}
