// Package executor implements the four task dispatch flavors — sequential,
// parallel, conditional, decision — per spec.md §4.6-§4.9, plus the
// routing/result bookkeeping shared between them.
package executor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tasker/internal/condition"
	"tasker/internal/logging"
	"tasker/internal/model"
	"tasker/internal/state"
	"tasker/internal/trace"
	"tasker/internal/variables"
	"tasker/internal/workflow"
)

// Runtime bundles everything the four executors need: the parsed task map,
// the shared state manager, the logger, and runtime configuration that
// spec.md treats as CLI/env-sourced (exec-type override, default timeout,
// dry-run mode).
type Runtime struct {
	Tasks map[int]model.Task

	State  *state.Manager
	Logger *logging.Logger

	// DryRun mirrors the CLI's default of not executing real commands;
	// spec.md §6 "-r/--run (real execution; default is dry-run)".
	DryRun bool

	// CLIExecOverride, from -t/--type; empty means unset.
	CLIExecOverride model.ExecType
	// DefaultExecType is the configured fallback when nothing else applies.
	DefaultExecType model.ExecType

	// DefaultTimeoutSeconds is the -o/--timeout default.
	DefaultTimeoutSeconds int

	// WorkDir is the directory subprocesses are spawned in.
	WorkDir string

	// Trace records routing decisions for post-run diagnostics; nil is
	// equivalent to trace.NopSink{}.
	Trace trace.Sink
}

func (rt *Runtime) trace(kind trace.TraceEventKind, taskID, nextTaskID int) {
	trace.SafeRecord(rt.Trace, trace.TraceEvent{Kind: kind, TaskID: taskID, NextTaskID: nextTaskID})
}

const (
	minTimeout = 5
	maxTimeout = 1000
)

func clampTimeout(n int) int {
	if n < minTimeout {
		return minTimeout
	}
	if n > maxTimeout {
		return maxTimeout
	}
	return n
}

// resolveExecType implements spec.md §4.6 step 4's priority order: task
// field > CLI override > env var > configured default.
func (rt *Runtime) resolveExecType(task model.Task) model.ExecType {
	if task.Exec != "" {
		return model.NormalizeExecType(string(task.Exec))
	}
	if rt.CLIExecOverride != "" {
		return rt.CLIExecOverride
	}
	if v := os.Getenv("TASK_EXECUTOR_TYPE"); v != "" {
		return model.NormalizeExecType(v)
	}
	if rt.DefaultExecType != "" {
		return rt.DefaultExecType
	}
	return model.ExecLocal
}

// buildArgv constructs the subprocess name+args per spec.md §4.6 step 5.
func buildArgv(execType model.ExecType, hostname, command, arguments string) (name string, argv []string) {
	splitArgs := strings.Fields(arguments)

	switch execType {
	case model.ExecShell:
		full := command
		if arguments != "" {
			full = command + " " + arguments
		}
		return "/bin/bash", []string{"-c", full}
	case model.ExecPbrun:
		args := append([]string{"-n", "-h", hostname, command}, splitArgs...)
		return "pbrun", args
	case model.ExecP7s:
		args := append([]string{hostname, command}, splitArgs...)
		return "p7s", args
	case model.ExecWwrs:
		args := append([]string{hostname, command}, splitArgs...)
		return "wwrs_clir", args
	default: // ExecLocal and unknown types fall back to local.
		return command, splitArgs
	}
}

// evalCondition resolves @...@ tokens in a raw condition-expression string
// against globals/results, then parses and evaluates the result against
// streamCtx. VAR lhs tokens in the grammar fall back to a raw globals
// lookup for any reference the substitution pass didn't already resolve
// inline.
func evalCondition(raw string, streamCtx condition.Context, globals model.Globals, results variables.ResultLookup) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return true, nil
	}
	resolved, _ := variables.Resolve(raw, globals, results)
	streamCtx.Vars = map[string]string(globals)
	return condition.Eval(resolved, streamCtx)
}

// computeSuccess implements spec.md §4.6 step 10 / §4.2's success/failure
// resolution: success field if present, else inverse of failure field if
// present, else exit_code==0.
func computeSuccess(task model.Task, streamCtx condition.Context, globals model.Globals, results variables.ResultLookup) (bool, error) {
	switch {
	case task.Success != "":
		return evalCondition(task.Success, streamCtx, globals, results)
	case task.Failure != "":
		failed, err := evalCondition(task.Failure, streamCtx, globals, results)
		if err != nil {
			return false, err
		}
		return !failed, nil
	default:
		return streamCtx.ExitCode == 0, nil
	}
}

// displayID formats a child task's display identifier for logs: parent-child
// or parent-child.attempt, per spec.md §4.7/§4.8.
func displayID(parent, child, attempt int) string {
	if attempt <= 0 {
		return fmt.Sprintf("%d-%d", parent, child)
	}
	return fmt.Sprintf("%d-%d.%d", parent, child, attempt)
}

// childContext returns a Runtime suitable for invoking the sequential
// executor on a parallel/conditional block's child, reusing the same state
// manager and configuration.
func (rt *Runtime) childContext() *Runtime {
	return rt
}

// RunTask dispatches a task by its effective type and drives it to a
// routing Decision. ctx carries the orchestrator's shutdown signal.
func (rt *Runtime) RunTask(ctx context.Context, id int) (workflow.Decision, error) {
	task, ok := rt.Tasks[id]
	if !ok {
		return workflow.Decision{}, fmt.Errorf("unknown task %d", id)
	}
	rt.State.SetCurrentTask(id)
	rt.trace(trace.EventTaskStarted, id, 0)

	var decision workflow.Decision
	var err error
	switch task.EffectiveType() {
	case model.TypeParallel:
		decision, err = rt.runParallel(ctx, task)
	case model.TypeConditional:
		decision, err = rt.runConditional(ctx, task)
	case model.TypeDecision:
		decision, err = rt.runDecision(task)
	default:
		decision, err = rt.runSequential(ctx, task)
	}

	rt.traceDecision(id, decision, err)
	return decision, err
}

func (rt *Runtime) traceDecision(id int, decision workflow.Decision, err error) {
	switch {
	case err != nil:
		rt.trace(trace.EventTaskFailed, id, 0)
	case decision.Signal == workflow.SignalLoop:
		rt.trace(trace.EventTaskLooped, id, decision.Target)
	case decision.Signal == workflow.SignalNone:
		if result, ok := rt.State.TaskResult(id); ok && result.TimedOut {
			rt.trace(trace.EventTaskTimedOut, id, decision.Target)
		} else if ok && result.Skipped {
			rt.trace(trace.EventTaskSkipped, id, decision.Target)
		} else {
			rt.trace(trace.EventTaskSucceeded, id, decision.Target)
		}
	default:
		rt.trace(trace.EventTaskSucceeded, id, decision.Target)
	}
}
