package executor

import (
	"fmt"
	"strconv"
	"strings"

	"tasker/internal/model"
)

// aggregateCounts summarizes a set of child results for the parallel/
// conditional aggregate predicates (spec.md §4.7 step 8).
type aggregateCounts struct {
	total   int
	success int
	failed  int
	timeout int
}

func countChildren(results []model.TaskResult) aggregateCounts {
	c := aggregateCounts{total: len(results)}
	for _, r := range results {
		switch {
		case r.Success:
			c.success++
		case r.ExitCode == 124:
			c.timeout++
			c.failed++
		default:
			c.failed++
		}
	}
	return c
}

// evalAggregatePredicate evaluates one of the simple aggregate predicates
// TASKER supports on a parallel/conditional parent's `next` field. ok
// reports whether expr was recognized as an aggregate predicate at all;
// callers fall back to the general condition grammar when ok is false.
func evalAggregatePredicate(expr string, c aggregateCounts) (result bool, ok bool, err error) {
	switch expr {
	case "all_success":
		return c.failed == 0, true, nil
	case "any_success":
		return c.success > 0, true, nil
	case "majority_success":
		// Strict majority; ties resolve to false (DESIGN.md Open Question 3).
		return c.success*2 > c.total, true, nil
	}

	if n, okPrefix := parsePredicateArg(expr, "min_success="); okPrefix {
		return c.success >= n, true, nil
	}
	if n, okPrefix := parsePredicateArg(expr, "max_failed="); okPrefix {
		return c.failed <= n, true, nil
	}
	if n, okPrefix := parsePredicateArg(expr, "min_failed="); okPrefix {
		return c.failed >= n, true, nil
	}
	if n, okPrefix := parsePredicateArg(expr, "max_success="); okPrefix {
		return c.success <= n, true, nil
	}

	return false, false, nil
}

func parsePredicateArg(expr, prefix string) (int, bool) {
	if !strings.HasPrefix(expr, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(expr, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// synthesizeParentSummary builds the parent TaskResult's synthetic
// stdout/stderr per spec.md §4.7 step 6.
func synthesizeParentSummary(childIDs []int, results map[int]model.TaskResult, c aggregateCounts) (stdout, stderr string) {
	parts := []string{fmt.Sprintf("%d/%d successful", c.success, c.total)}
	if c.timeout > 0 {
		parts = append(parts, fmt.Sprintf("%d timeout", c.timeout))
	}
	if c.failed-c.timeout > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", c.failed-c.timeout))
	}
	stdout = "Parallel execution: " + strings.Join(parts, ", ")

	var bad []string
	for _, id := range childIDs {
		r := results[id]
		if !r.Success {
			bad = append(bad, strconv.Itoa(id))
		}
	}
	if len(bad) > 0 {
		stderr = "failed/timeout children: " + strings.Join(bad, ", ")
	}
	return stdout, stderr
}
