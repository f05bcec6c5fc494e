package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_AssignsMonotonicSeq(t *testing.T) {
	r := NewRecorder()
	r.Record(TraceEvent{Kind: EventTaskStarted, TaskID: 1})
	r.Record(TraceEvent{Kind: EventTaskSucceeded, TaskID: 1, NextTaskID: 2})
	r.Record(TraceEvent{Kind: EventTaskStarted, TaskID: 2})

	events := r.Snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, 0, events[0].Seq)
	assert.Equal(t, 1, events[1].Seq)
	assert.Equal(t, 2, events[2].Seq)
}

func TestTrace_HashIsDeterministic(t *testing.T) {
	r1 := NewRecorder()
	r1.Record(TraceEvent{Kind: EventTaskStarted, TaskID: 1})
	r1.Record(TraceEvent{Kind: EventTaskSucceeded, TaskID: 1, NextTaskID: 2})

	r2 := NewRecorder()
	r2.Record(TraceEvent{Kind: EventTaskStarted, TaskID: 1})
	r2.Record(TraceEvent{Kind: EventTaskSucceeded, TaskID: 1, NextTaskID: 2})

	h1, err := r1.Trace("run-a").Hash()
	require.NoError(t, err)
	h2, err := r2.Trace("run-a").Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := r1.Trace("run-b").Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "different runID must change the hash")
}

func TestValidate_RequiresRunIDAndKind(t *testing.T) {
	tr := &ExecutionTrace{}
	assert.Error(t, tr.Validate())

	tr = &ExecutionTrace{RunID: "run-a", Events: []TraceEvent{{TaskID: 1}}}
	assert.Error(t, tr.Validate(), "missing kind")
}

func TestSafeRecord_NilSinkIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { SafeRecord(nil, TraceEvent{Kind: EventTaskStarted, TaskID: 1}) })
}

func TestNopSink_DiscardsEvents(t *testing.T) {
	var s Sink = NopSink{}
	assert.NotPanics(t, func() { s.Record(TraceEvent{Kind: EventTaskStarted, TaskID: 1}) })
}
