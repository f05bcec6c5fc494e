// Package workflow computes the next task ID from a task's routing fields
// and its result, per spec.md §4.5. It also provides the cancelable
// post-task sleep helper used by the sequential/parallel/conditional
// executors (spec.md §9's reimagining of the original's non-blocking
// timer-thread sleep as a context-cancelable wait).
package workflow

import (
	"context"
	"time"

	"tasker/internal/condition"
	"tasker/internal/model"
	"tasker/internal/state"
)

// Signal is one of the non-numeric routing outcomes the controller can
// return in place of a concrete next task ID.
type Signal int

const (
	// SignalNone means Target holds a real next-task ID.
	SignalNone Signal = iota
	SignalLoop
	SignalTerminalOK
	SignalTerminalFail
	// SignalExit is produced by a return-only/return-augmented task: the
	// whole workflow terminates immediately with ExitCode (spec.md §4.6
	// steps 2 and 12). It is constructed directly by the sequential
	// executor, not by Next.
	SignalExit
)

// Decision is the workflow controller's verdict for one task's routing.
type Decision struct {
	Signal   Signal
	Target   int // valid when Signal == SignalNone or SignalLoop (loop re-enters Target)
	ExitCode int // valid when Signal == SignalExit
}

// Next computes routing for a completed task, given its stored result.
// mgr supplies loop-counter bookkeeping; evalCtx supplies the (exit_code,
// stdout, stderr) triple the `next` expression is evaluated against —
// callers pass the task's own triple for sequential tasks, or the
// synthesized parent triple for parallel/conditional blocks.
func Next(task model.Task, result model.TaskResult, mgr *state.Manager, evalCtx condition.Context) (Decision, error) {
	// Rule 1: on_success/on_failure, mutually exclusive with next (enforced
	// by validation, not re-checked here).
	if task.HasOnSucc || task.HasOnFail {
		switch {
		case result.Success && task.HasOnSucc:
			return Decision{Signal: SignalNone, Target: task.OnSuccess}, nil
		case !result.Success && task.HasOnFail:
			return Decision{Signal: SignalNone, Target: task.OnFailure}, nil
		case result.Success && !task.HasOnSucc:
			return Decision{Signal: SignalNone, Target: task.ID + 1}, nil
		default: // !result.Success && !task.HasOnFail
			return Decision{Signal: SignalTerminalFail}, nil
		}
	}

	// Rule 2: next.
	if task.Next != "" {
		switch task.Next {
		case "never":
			return Decision{Signal: SignalTerminalOK}, nil
		case "always":
			return Decision{Signal: SignalNone, Target: task.ID + 1}, nil
		case "loop":
			return nextLoop(task, mgr, evalCtx)
		default:
			ok, err := condition.Eval(task.Next, evalCtx)
			if err != nil {
				mgr.StoreResult(task.ID, model.TaskResult{ExitCode: 255, Success: false, Stderr: err.Error()})
				return Decision{Signal: SignalTerminalFail}, nil
			}
			if ok {
				return Decision{Signal: SignalNone, Target: task.ID + 1}, nil
			}
			return Decision{Signal: SignalTerminalFail}, nil
		}
	}

	// Rule 3: no routing fields at all.
	return Decision{Signal: SignalNone, Target: task.ID + 1}, nil
}

func nextLoop(task model.Task, mgr *state.Manager, evalCtx condition.Context) (Decision, error) {
	_, _, initialized := mgr.LoopState(task.ID)
	if !initialized {
		mgr.InitLoop(task.ID, task.Loop)
	}

	if task.LoopBreak != "" {
		broke, err := condition.Eval(task.LoopBreak, evalCtx)
		if err != nil {
			mgr.StoreResult(task.ID, model.TaskResult{ExitCode: 255, Success: false, Stderr: err.Error()})
			return Decision{Signal: SignalTerminalFail}, nil
		}
		if broke {
			mgr.ClearLoop(task.ID)
			return Decision{Signal: SignalNone, Target: task.ID + 1}, nil
		}
	}

	remaining := mgr.AdvanceLoop(task.ID)
	if remaining >= 0 {
		return Decision{Signal: SignalLoop, Target: task.ID}, nil
	}
	mgr.ClearLoop(task.ID)
	return Decision{Signal: SignalNone, Target: task.ID + 1}, nil
}

// Sleep waits for d, honoring ctx cancellation (shutdown) without blocking
// a worker thread indefinitely. It returns true if the sleep completed
// normally and false if it was cut short by ctx cancellation.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
