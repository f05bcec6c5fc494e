package executor

import (
	"context"
	"strconv"

	"tasker/internal/condition"
	"tasker/internal/model"
	"tasker/internal/workflow"
)

// runConditional implements spec.md §4.8: evaluate a gate, then run one
// branch's children sequentially (not in parallel), with the same
// per-child retry shape as the parallel executor.
func (rt *Runtime) runConditional(ctx context.Context, task model.Task) (workflow.Decision, error) {
	globals := rt.State.Globals()

	gate, err := evalCondition(task.Condition, condition.Context{}, globals, rt.State)
	if err != nil {
		result := model.TaskResult{ExitCode: 255, Success: false, Stderr: err.Error()}
		rt.State.StoreResult(task.ID, result)
		evalCtx := condition.Context{ExitCode: result.ExitCode, Stderr: result.Stderr, ExplicitSucc: &result.Success, Vars: globals}
		return workflow.Next(task, result, rt.State, evalCtx)
	}

	branch := task.IfFalseTasks
	if gate {
		branch = task.IfTrueTasks
	}
	if len(branch) == 0 {
		return workflow.Decision{}, errNoBranchTasks(task.ID, gate)
	}

	results := make(map[int]model.TaskResult, len(branch))
	for _, childID := range branch {
		result := rt.runChildWithRetry(ctx, task, childID)
		results[childID] = result
		rt.State.StoreResult(childID, result)

		if result.SleepSeconds > 0 && !rt.DryRun {
			workflow.Sleep(ctx, durationFromSeconds(result.SleepSeconds))
		}
	}

	_, decision, err := rt.routeAggregate(task, branch, results)
	return decision, err
}

func errNoBranchTasks(taskID int, gate bool) error {
	branch := "if_false_tasks"
	if gate {
		branch = "if_true_tasks"
	}
	return &conditionalBranchError{taskID: taskID, branch: branch}
}

type conditionalBranchError struct {
	taskID int
	branch string
}

func (e *conditionalBranchError) Error() string {
	return "conditional task " + strconv.Itoa(e.taskID) + ": " + e.branch + " resolved to no tasks at runtime"
}
