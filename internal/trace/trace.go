// Package trace records a deterministic, engine-internal log of the
// routing decisions an execution made: which task ran, how it resolved,
// and where control went next. It is observational only — nothing in
// internal/executor or internal/orchestrator consults a trace to decide
// behavior — and exists for post-run diagnostics: the orchestrator logs the
// trace hash at DEBUG level on exit.
//
// Adapted from the teacher's build-cache trace engine: the event model
// (invalidated/cached/restored) described a content-addressed cache
// TASKER doesn't have (see DESIGN.md), but the canonical-ordering,
// stable-hash, and inert-sink machinery around it is exactly what a
// route-decision trace needs too, so that machinery survives with a new
// event vocabulary.
package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ExecutionTrace is the canonical, ordered record of one run's routing
// decisions.
type ExecutionTrace struct {
	RunID  string
	Events []TraceEvent
}

// TraceEventKind is the stable discriminator for TraceEvent. String values
// are part of the trace's canonical bytes; do not rename.
type TraceEventKind string

const (
	EventTaskStarted   TraceEventKind = "TaskStarted"
	EventTaskSucceeded TraceEventKind = "TaskSucceeded"
	EventTaskFailed    TraceEventKind = "TaskFailed"
	EventTaskSkipped   TraceEventKind = "TaskSkipped"
	EventTaskTimedOut  TraceEventKind = "TaskTimedOut"
	EventTaskLooped    TraceEventKind = "TaskLooped"
)

// TraceEvent is one routing decision for one task dispatch.
type TraceEvent struct {
	Kind TraceEventKind

	// TaskID identifies the task this event refers to.
	TaskID int

	// Seq is the event's position in dispatch order, set by the recorder.
	// It breaks ties when two events share a TaskID (e.g. a looped task
	// dispatched three times).
	Seq int

	// NextTaskID is the task control passed to, when Kind implies routing
	// (Succeeded/Skipped/Looped). Zero means no further task (terminal).
	NextTaskID int
}

// Validate checks basic invariants.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.RunID == "" {
		return errors.New("runID is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == 0 {
			return fmt.Errorf("events[%d].taskId is required", i)
		}
	}
	return nil
}

// Canonicalize sorts events by (Seq) — dispatch order is already the
// canonical order for a trace; this exists to give callers one place to
// normalize a trace built out of order (e.g. merged from multiple
// goroutines' recorders in a future parallel-trace extension).
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		return t.Events[i].Seq < t.Events[j].Seq
	})
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	cp := ExecutionTrace{RunID: t.RunID, Events: append([]TraceEvent(nil), t.Events...)}
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}

// Hash returns the deterministic sha256 hex digest of the canonical trace.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON fixes field order: runId, then events.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.RunID == "" {
		return nil, errors.New("runID is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"runId":`)
	rb, _ := json.Marshal(t.RunID)
	buf.Write(rb)
	buf.WriteString(`,"events":[`)
	for i, e := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}
