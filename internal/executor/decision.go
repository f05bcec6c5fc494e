package executor

import (
	"tasker/internal/condition"
	"tasker/internal/model"
	"tasker/internal/workflow"
)

// runDecision implements spec.md §4.9: a pure routing node with no command.
// Exactly one of success/failure must be present (enforced by validation).
func (rt *Runtime) runDecision(task model.Task) (workflow.Decision, error) {
	globals := rt.State.Globals()

	var passed bool
	var err error
	switch {
	case task.Success != "":
		passed, err = evalCondition(task.Success, condition.Context{}, globals, rt.State)
	case task.Failure != "":
		var failed bool
		failed, err = evalCondition(task.Failure, condition.Context{}, globals, rt.State)
		passed = !failed
	}
	if err != nil {
		result := model.TaskResult{ExitCode: 255, Success: false, Stderr: err.Error()}
		rt.State.StoreResult(task.ID, result)
		evalCtx := condition.Context{ExitCode: result.ExitCode, Stderr: result.Stderr, ExplicitSucc: &result.Success, Vars: globals}
		return workflow.Next(task, result, rt.State, evalCtx)
	}

	exitCode := 1
	stdout := "Decision: failure"
	if passed {
		exitCode = 0
		stdout = "Decision: success"
	}
	result := model.TaskResult{ExitCode: exitCode, Success: passed, Stdout: stdout}
	rt.State.StoreResult(task.ID, result)

	evalCtx := condition.Context{ExitCode: exitCode, Stdout: stdout, ExplicitSucc: &passed, Vars: globals}
	return workflow.Next(task, result, rt.State, evalCtx)
}
