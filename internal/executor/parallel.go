package executor

import (
	"context"
	"sync"

	"tasker/internal/model"
	"tasker/internal/workflow"
)

// childOutcome is one completed (or timed-out) child's result, delivered to
// the single-threaded collector so sleep-then-record stays serialized.
type childOutcome struct {
	childID int
	result  model.TaskResult
}

func masterTimeoutResult() model.TaskResult {
	return model.TaskResult{ExitCode: 124, Success: false, Stderr: "cancelled due to master timeout", TimedOut: true}
}

// runParallel implements spec.md §4.7: fan out children onto a bounded
// worker pool, apply per-child retry, enforce one master timeout for the
// whole block, then aggregate and route.
func (rt *Runtime) runParallel(ctx context.Context, task model.Task) (workflow.Decision, error) {
	children := task.Tasks

	maxParallel := task.MaxParallel
	if maxParallel <= 0 || maxParallel > len(children) {
		maxParallel = len(children)
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	timeout := rt.DefaultTimeoutSeconds
	if task.HasTimeout {
		timeout = task.Timeout
	}
	timeout = clampTimeout(timeout)

	blockCtx, cancel := context.WithTimeout(ctx, durationFromSeconds(float64(timeout)))
	defer cancel()

	sem := make(chan struct{}, maxParallel)
	outcomes := make(chan childOutcome, len(children))

	var wg sync.WaitGroup
	for _, childID := range children {
		childID := childID
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-blockCtx.Done():
				outcomes <- childOutcome{childID: childID, result: masterTimeoutResult()}
				return
			}
			defer func() { <-sem }()

			result := rt.runChildWithRetry(blockCtx, task, childID)
			outcomes <- childOutcome{childID: childID, result: result}
		}()
	}
	go func() { wg.Wait(); close(outcomes) }()

	results := make(map[int]model.TaskResult, len(children))
	received := 0

collect:
	for received < len(children) {
		select {
		case outcome, ok := <-outcomes:
			if !ok {
				break collect
			}
			if outcome.result.SleepSeconds > 0 && !rt.DryRun {
				workflow.Sleep(ctx, durationFromSeconds(outcome.result.SleepSeconds))
			}
			results[outcome.childID] = outcome.result
			rt.State.StoreResult(outcome.childID, outcome.result)
			received++
		case <-blockCtx.Done():
			break collect
		}
	}

	for _, childID := range children {
		if _, ok := results[childID]; !ok {
			r := masterTimeoutResult()
			results[childID] = r
			rt.State.StoreResult(childID, r)
		}
	}

	_, decision, err := rt.routeAggregate(task, children, results)
	return decision, err
}

// runChildWithRetry implements spec.md §4.7 step 3: a child that FAILED
// (success=false and exit_code != 124) is retried up to retry_count times
// with retry_delay seconds between attempts. SUCCESS short-circuits;
// TIMEOUT is never retried.
func (rt *Runtime) runChildWithRetry(ctx context.Context, parent model.Task, childID int) model.TaskResult {
	childTask, ok := rt.Tasks[childID]
	if !ok {
		return model.TaskResult{ExitCode: 255, Success: false, Stderr: "unknown child task"}
	}

	totalAttempts := 1
	if parent.RetryFailed || parent.RetryCount >= 1 {
		rc := parent.RetryCount
		if rc < 1 {
			rc = 1
		}
		totalAttempts = rc + 1
	}

	var result model.TaskResult
	for attempt := 1; attempt <= totalAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return masterTimeoutResult()
		default:
		}

		result = rt.runChild(ctx, childTask)
		if result.Success || result.ExitCode == 124 {
			return result
		}
		if attempt < totalAttempts && parent.RetryDelay > 0 {
			workflow.Sleep(ctx, durationFromSeconds(parent.RetryDelay))
		}
	}
	return result
}
