package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tasker/internal/model"
)

func TestFile_Valid(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Command: "true", OnSuccess: 2, HasOnSucc: true, OnFailure: 2, HasOnFail: true},
		2: {ID: 2, Command: "true"},
	}
	assert.NoError(t, File(tasks))
}

func TestFile_UndefinedOnSuccessTarget(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Command: "true", OnSuccess: 99, HasOnSucc: true, OnFailure: 1, HasOnFail: true},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "undefined task 99")
}

func TestFile_BackwardRoutingRejected(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Command: "true"},
		2: {ID: 2, Command: "true", OnSuccess: 1, HasOnSucc: true, OnFailure: 1, HasOnFail: true},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "routes backward")
}

func TestFile_NestedParallelRejected(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Type: model.TypeParallel, Tasks: []int{2}},
		2: {ID: 2, Type: model.TypeParallel, Tasks: []int{1}},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nesting is not allowed")
}

func TestFile_EmptyConditionalBranchesRejected(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Type: model.TypeConditional, Condition: "exit_0"},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no if_true_tasks or if_false_tasks")
}

func TestFile_MutuallyExclusiveRoutingRejected(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Command: "true", OnSuccess: 2, HasOnSucc: true, Next: "always"},
		2: {ID: 2, Command: "true"},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestFile_UnreachableTaskFlagged(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Command: "true", Next: "never"},
		2: {ID: 2, Command: "true"},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestFile_BadConditionGrammarRejected(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Command: "true", Condition: "(exit_0 & exit_1)"},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid expression")
}

func TestFile_DecisionRequiresExactlyOne(t *testing.T) {
	tasks := map[int]model.Task{
		1: {ID: 1, Type: model.TypeDecision, Success: "exit_0", Failure: "exit_1", OnSuccess: 2, HasOnSucc: true, OnFailure: 2, HasOnFail: true},
		2: {ID: 2, Command: "true"},
	}
	err := File(tasks)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one is required")
}
