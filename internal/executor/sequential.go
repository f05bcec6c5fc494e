package executor

import (
	"context"
	"os"
	"time"

	"tasker/internal/condition"
	"tasker/internal/model"
	"tasker/internal/output"
	"tasker/internal/variables"
	"tasker/internal/workflow"
)

// runSequential implements spec.md §4.6, the normal-task dispatch flavor.
func (rt *Runtime) runSequential(ctx context.Context, task model.Task) (workflow.Decision, error) {
	globals := rt.State.Globals()

	// Step 1: condition gate.
	if task.Condition != "" {
		pass, err := evalCondition(task.Condition, condition.Context{}, globals, rt.State)
		if err != nil {
			result := model.TaskResult{ExitCode: 255, Success: false, Stderr: err.Error()}
			rt.State.StoreResult(task.ID, result)
			evalCtx := condition.Context{ExitCode: result.ExitCode, Stderr: result.Stderr, ExplicitSucc: &result.Success, Vars: globals}
			return workflow.Next(task, result, rt.State, evalCtx)
		}
		if !pass {
			rt.State.StoreResult(task.ID, model.TaskResult{Skipped: true, Success: false})
			return workflow.Decision{Signal: workflow.SignalNone, Target: task.ID + 1}, nil
		}
	}

	// Step 2: pure return-only task terminates immediately without spawning.
	if task.HasReturn && task.Command == "" {
		res := model.TaskResult{ExitCode: task.Return, Success: task.Return == 0}
		rt.State.StoreResult(task.ID, res)
		return workflow.Decision{Signal: workflow.SignalExit, ExitCode: task.Return}, nil
	}

	result, err := rt.execOne(ctx, task, globals)
	if err != nil {
		return workflow.Decision{}, err
	}
	rt.State.StoreResult(task.ID, result)

	if task.Sleep > 0 && !rt.DryRun {
		workflow.Sleep(ctx, durationFromSeconds(task.Sleep))
	}

	// Step 12: command ran AND return=N present -> exit workflow with N once
	// the result (reflecting the command's real exit) has been stored.
	if task.HasReturn {
		return workflow.Decision{Signal: workflow.SignalExit, ExitCode: task.Return}, nil
	}

	evalCtx := condition.Context{
		ExitCode:     result.ExitCode,
		Stdout:       result.Stdout,
		Stderr:       result.Stderr,
		ExplicitSucc: &result.Success,
		Vars:         globals,
	}
	return workflow.Next(task, result, rt.State, evalCtx)
}

// execOne implements spec.md §4.6 steps 3-10: substitute, spawn, split,
// evaluate success. Shared by the top-level sequential executor and by
// parallel/conditional children (spec.md §4.7 step 2, §4.8 step 3 both
// dispatch children "through the sequential executor").
func (rt *Runtime) execOne(ctx context.Context, task model.Task, globals model.Globals) (model.TaskResult, error) {
	hostname, _ := variables.Resolve(task.Hostname, globals, rt.State)
	command, _ := variables.Resolve(task.Command, globals, rt.State)
	arguments, _ := variables.Resolve(task.Arguments, globals, rt.State)

	execType := rt.resolveExecType(task)

	timeout := rt.DefaultTimeoutSeconds
	if task.HasTimeout {
		timeout = task.Timeout
	}
	timeout = clampTimeout(timeout)

	if rt.DryRun {
		if rt.Logger != nil {
			rt.Logger.Infof("DRY-RUN task %d: would execute [%s] %s %s", task.ID, execType, command, arguments)
		}
		return model.TaskResult{ExitCode: 0, Success: true, Stdout: "dry-run: " + command}, nil
	}

	name, argv := buildArgv(execType, hostname, command, arguments)
	shutdownCheck := func() bool { return ctx.Err() != nil }

	res, err := output.Run(ctx, name, argv, rt.WorkDir, nil, durationFromSeconds(float64(timeout)), shutdownCheck)
	if err != nil {
		return model.TaskResult{}, err
	}

	stdout, stdoutTrunc, stdoutFile := res.Stdout, res.StdoutTruncated, res.StdoutFile
	stderr, stderrTrunc, stderrFile := res.Stderr, res.StderrTruncated, res.StderrFile

	if task.StdoutSplit != "" {
		full := fullStream(stdout, stdoutFile, stdoutTrunc)
		stdout = condition.Split(full, task.StdoutSplit)
		stdoutTrunc, stdoutFile = false, ""
	}
	if task.StderrSplit != "" {
		full := fullStream(stderr, stderrFile, stderrTrunc)
		stderr = condition.Split(full, task.StderrSplit)
		stderrTrunc, stderrFile = false, ""
	}

	streamCtx := condition.Context{ExitCode: res.ExitCode, Stdout: stdout, Stderr: stderr}
	success, err := computeSuccess(task, streamCtx, globals, rt.State)
	if err != nil {
		return model.TaskResult{}, err
	}

	return model.TaskResult{
		ExitCode:        res.ExitCode,
		Stdout:          stdout,
		Stderr:          stderr,
		StdoutFile:      stdoutFile,
		StderrFile:      stderrFile,
		StdoutSize:      res.StdoutSize,
		StderrSize:      res.StderrSize,
		StdoutTruncated: stdoutTrunc,
		StderrTruncated: stderrTrunc,
		Success:         success,
		TimedOut:        res.TimedOut,
		SleepSeconds:    task.Sleep,
	}, nil
}

func fullStream(preview, spillPath string, truncated bool) string {
	if !truncated || spillPath == "" {
		return preview
	}
	b, err := os.ReadFile(spillPath)
	if err != nil {
		return preview
	}
	return string(b)
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// runChild executes one parallel/conditional child through the sequential
// path (minus routing/sleep, which the caller — the parallel/conditional
// collector — handles itself so it can serialize sleep-then-record per
// spec.md §4.7 step 5 / §4.8 step 4).
func (rt *Runtime) runChild(ctx context.Context, task model.Task) model.TaskResult {
	globals := rt.State.Globals()

	if task.Condition != "" {
		pass, err := evalCondition(task.Condition, condition.Context{}, globals, rt.State)
		if err == nil && !pass {
			return model.TaskResult{Skipped: true, Success: false}
		}
	}

	result, err := rt.execOne(ctx, task, globals)
	if err != nil {
		return model.TaskResult{ExitCode: 255, Success: false, Stderr: err.Error()}
	}
	return result
}
