// Package state implements TASKER's thread-safe state manager: a single
// mutex guarding task results, loop counters, globals, the current task
// cursor, and the execution path, per spec.md §4.4.
package state

import (
	"sync"

	"tasker/internal/model"
)

// Manager is a thread-safe facade over the engine's mutable run state.
// All mutating methods acquire the lock; getters return defensive copies.
// Contention is low (tasks are coarse units), so a single mutex is both
// adequate and simpler than finer-grained locking.
type Manager struct {
	mu sync.Mutex

	globals        model.Globals
	results        map[int]model.TaskResult
	loopCounter    map[int]int
	loopIteration  map[int]int
	currentTask    int
	executionPath  []int
}

// New creates a Manager seeded with the given (already-sanitized) globals.
func New(globals model.Globals) *Manager {
	return &Manager{
		globals:       globals.Clone(),
		results:       make(map[int]model.TaskResult),
		loopCounter:   make(map[int]int),
		loopIteration: make(map[int]int),
	}
}

// TaskResult implements variables.ResultLookup.
func (m *Manager) TaskResult(id int) (model.TaskResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	return r, ok
}

// StoreResult records the result for a task, overwriting any prior attempt.
func (m *Manager) StoreResult(id int, result model.TaskResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = result
}

// Globals returns a defensive copy of the global variable map.
func (m *Manager) Globals() model.Globals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globals.Clone()
}

// SetCurrentTask records the task the orchestrator is about to dispatch and
// appends it to the execution path.
func (m *Manager) SetCurrentTask(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTask = id
	m.executionPath = append(m.executionPath, id)
}

// CurrentTask returns the most recently set current task ID.
func (m *Manager) CurrentTask() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTask
}

// ExecutionPath returns a defensive copy of the ordered list of dispatched
// task IDs, including repeats from loop iterations.
func (m *Manager) ExecutionPath() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.executionPath))
	copy(out, m.executionPath)
	return out
}

// LoopState returns the remaining-count and iteration-count for a task's
// loop, and whether it has been initialized yet.
func (m *Manager) LoopState(id int) (remaining, iteration int, initialized bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining, ok := m.loopCounter[id]
	iteration = m.loopIteration[id]
	return remaining, iteration, ok
}

// InitLoop seeds a task's loop counter on first entry.
func (m *Manager) InitLoop(id int, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loopCounter[id] = count
	m.loopIteration[id] = 0
}

// AdvanceLoop decrements the remaining counter and increments the
// iteration counter for id, returning the new remaining count.
func (m *Manager) AdvanceLoop(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loopCounter[id]--
	m.loopIteration[id]++
	return m.loopCounter[id]
}

// ClearLoop removes a task's loop bookkeeping on loop exit.
func (m *Manager) ClearLoop(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loopCounter, id)
	delete(m.loopIteration, id)
}

// AllResults returns a defensive copy of every stored result, keyed by
// task ID. Used by internal/recovery to build a snapshot.
func (m *Manager) AllResults() map[int]model.TaskResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]model.TaskResult, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}
