package executor

import (
	"tasker/internal/condition"
	"tasker/internal/model"
	"tasker/internal/workflow"
)

// routeAggregate implements the shared tail of the parallel (§4.7 steps
// 6-10) and conditional (§4.8 steps 5-6) executors: build the synthetic
// parent result, store it, then route using either a recognized aggregate
// predicate or the general routing rules of §4.5.
func (rt *Runtime) routeAggregate(task model.Task, childIDs []int, childResults map[int]model.TaskResult) (model.TaskResult, workflow.Decision, error) {
	resultSlice := make([]model.TaskResult, 0, len(childIDs))
	for _, id := range childIDs {
		resultSlice = append(resultSlice, childResults[id])
	}
	c := countChildren(resultSlice)
	stdout, stderr := synthesizeParentSummary(childIDs, childResults, c)

	exitCode := 0
	if c.failed > 0 {
		exitCode = 1
	}
	parentResult := model.TaskResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr, Success: c.failed == 0}
	rt.State.StoreResult(task.ID, parentResult)

	streamCtx := condition.Context{ExitCode: exitCode, Stdout: stdout, Stderr: stderr, ExplicitSucc: &parentResult.Success}

	if task.HasOnSucc || task.HasOnFail {
		d, err := workflow.Next(task, parentResult, rt.State, streamCtx)
		return parentResult, d, err
	}

	if task.Next != "" && task.Next != "never" && task.Next != "always" && task.Next != "loop" {
		if ok, recognized, err := evalAggregatePredicate(task.Next, c); recognized {
			if err != nil {
				return parentResult, workflow.Decision{}, err
			}
			if ok {
				return parentResult, workflow.Decision{Signal: workflow.SignalNone, Target: task.ID + 1}, nil
			}
			return parentResult, workflow.Decision{Signal: workflow.SignalTerminalFail}, nil
		}
	}

	// A failed block with no routing fields of its own ends the workflow:
	// there is no on_failure to catch it.
	if task.Next == "" && !parentResult.Success {
		return parentResult, workflow.Decision{Signal: workflow.SignalTerminalFail}, nil
	}

	d, err := workflow.Next(task, parentResult, rt.State, streamCtx)
	return parentResult, d, err
}
