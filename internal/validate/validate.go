// Package validate performs static validation of a parsed task map before
// any task runs: schema-level field combinations, forward-only routing,
// composite nesting rules, and reachability. All findings are collected
// and joined into one error rather than failing on the first, so a user
// fixing a task file sees every problem in one pass.
package validate

import (
	"errors"
	"fmt"

	"tasker/internal/condition"
	"tasker/internal/model"
	"tasker/internal/taskerrors"
)

// File validates every task in tasks (keyed by ID) and returns a joined
// error (via errors.Join) describing every violation found, or nil.
func File(tasks map[int]model.Task) error {
	var errs []error

	for id, task := range tasks {
		errs = append(errs, validateTask(id, task, tasks)...)
	}
	errs = append(errs, checkReachability(tasks)...)

	return errors.Join(errs...)
}

func validateTask(id int, task model.Task, tasks map[int]model.Task) []error {
	var errs []error
	ve := func(format string, args ...any) {
		errs = append(errs, &taskerrors.ValidationError{TaskID: id, Msg: fmt.Sprintf(format, args...)})
	}

	switch task.EffectiveType() {
	case model.TypeNormal:
		if task.Command == "" && !task.HasReturn {
			ve("normal task has neither command nor return")
		}
	case model.TypeParallel:
		if len(task.Tasks) == 0 {
			ve("parallel task has empty tasks list")
		}
		for _, childID := range task.Tasks {
			checkChild(id, childID, tasks, &errs)
		}
	case model.TypeConditional:
		if task.Condition == "" {
			ve("conditional task has no condition")
		}
		if len(task.IfTrueTasks) == 0 && len(task.IfFalseTasks) == 0 {
			ve("conditional task has no if_true_tasks or if_false_tasks")
		}
		for _, childID := range task.IfTrueTasks {
			checkChild(id, childID, tasks, &errs)
		}
		for _, childID := range task.IfFalseTasks {
			checkChild(id, childID, tasks, &errs)
		}
	case model.TypeDecision:
		if task.Success == "" && task.Failure == "" {
			ve("decision task has neither success nor failure condition")
		}
		if task.Success != "" && task.Failure != "" {
			ve("decision task has both success and failure; exactly one is required")
		}
	default:
		ve("unknown task type %q", task.Type)
	}

	if task.HasOnSucc && task.HasOnFail && task.Next != "" {
		// Rejected by the mutual-exclusion check below, like any other
		// combination of on_success/on_failure with next.
	}
	if (task.HasOnSucc || task.HasOnFail) && task.Next != "" {
		ve("on_success/on_failure and next are mutually exclusive routing styles")
	}

	if task.HasOnSucc {
		checkForwardRef(id, "on_success", task.OnSuccess, tasks, &errs)
	}
	if task.HasOnFail {
		checkForwardRef(id, "on_failure", task.OnFailure, tasks, &errs)
	}

	if task.Next != "" && task.Next != "never" && task.Next != "always" && task.Next != "loop" {
		if _, err := condition.Parse(task.Next); err != nil {
			ve("next: invalid condition expression: %v", err)
		}
	}
	if task.Condition != "" {
		if _, err := condition.Parse(task.Condition); err != nil {
			ve("condition: invalid expression: %v", err)
		}
	}
	if task.Success != "" {
		if _, err := condition.Parse(task.Success); err != nil {
			ve("success: invalid expression: %v", err)
		}
	}
	if task.Failure != "" {
		if _, err := condition.Parse(task.Failure); err != nil {
			ve("failure: invalid expression: %v", err)
		}
	}
	if task.LoopBreak != "" {
		if _, err := condition.Parse(task.LoopBreak); err != nil {
			ve("loop_break: invalid expression: %v", err)
		}
	}

	if task.HasTimeout && (task.Timeout < 5 || task.Timeout > 1000) {
		// Not an error: spec.md clamps silently. Left as a comment marker
		// for the one place this policy decision is visible.
	}

	return errs
}

// checkChild validates a parallel/conditional child reference: it must
// exist and must not itself be a composite (nested parallel/conditional is
// disallowed per spec.md's ValidationError taxonomy).
func checkChild(parentID, childID int, tasks map[int]model.Task, errs *[]error) {
	child, ok := tasks[childID]
	if !ok {
		*errs = append(*errs, &taskerrors.ValidationError{TaskID: parentID, Msg: fmt.Sprintf("references undefined task %d", childID)})
		return
	}
	if child.IsComposite() {
		*errs = append(*errs, &taskerrors.ValidationError{TaskID: parentID, Msg: fmt.Sprintf("child task %d is itself parallel/conditional; nesting is not allowed", childID)})
	}
}

// checkForwardRef enforces forward-only routing: on_success/on_failure may
// not target an earlier or equal task ID (that would be a silent loop
// outside the explicit loop mechanism).
func checkForwardRef(fromID int, field string, target int, tasks map[int]model.Task, errs *[]error) {
	if _, ok := tasks[target]; !ok {
		*errs = append(*errs, &taskerrors.ValidationError{TaskID: fromID, Msg: fmt.Sprintf("%s references undefined task %d", field, target)})
		return
	}
	if target <= fromID {
		*errs = append(*errs, &taskerrors.ValidationError{TaskID: fromID, Msg: fmt.Sprintf("%s routes backward to task %d; only forward routing is allowed outside loop", field, target)})
	}
}

// checkReachability flags tasks no routing path can ever reach: not task 1,
// not referenced by any on_success/on_failure, not a child of any
// parallel/conditional task, and not the fall-through target of the task
// before it.
func checkReachability(tasks map[int]model.Task) []error {
	reached := make(map[int]bool)
	for id, task := range tasks {
		if task.HasOnSucc {
			reached[task.OnSuccess] = true
		}
		if task.HasOnFail {
			reached[task.OnFailure] = true
		}
		for _, c := range task.Tasks {
			reached[c] = true
		}
		for _, c := range task.IfTrueTasks {
			reached[c] = true
		}
		for _, c := range task.IfFalseTasks {
			reached[c] = true
		}
		// A task can fall through to id+1 unless on_success is set (success
		// jumps, failure terminates) or next=never.
		if !task.HasOnSucc && task.Next != "never" {
			reached[id+1] = true
		}
	}

	var errs []error
	for id := range tasks {
		if id == 1 {
			continue
		}
		if !reached[id] {
			errs = append(errs, &taskerrors.ValidationError{TaskID: id, Msg: "unreachable: no task routes to it"})
		}
	}
	return errs
}
