package record

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand/pkg/events"
	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/testutil"
)

func newTestRecorder(t *testing.T) (*Recorder, *MemorySink) {
	t.Helper()

	sink := NewMemorySink()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRecorder(testutil.LinearWorkflow(), sink, logger), sink
}

func TestRecorder_AppendOrder(t *testing.T) {
	ctx := context.Background()
	recorder, sink := newTestRecorder(t)

	envelope := models.NewEnvelope(recorder.RunID(), map[string]any{"n": 1})

	recorder.RunStarted(ctx, "trigger", map[string]any{"n": 1})
	recorder.NodeDispatched(ctx, "transform", models.NodeTypeTransform, 1, envelope)
	recorder.NodeSucceeded(ctx, "transform", envelope)
	recorder.RunFinished(ctx, models.RunStatusSucceeded, "")

	entries := sink.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, events.RunStartedEvent, entries[0].GetType())
	assert.Equal(t, events.NodeDispatchedEvent, entries[1].GetType())
	assert.Equal(t, events.NodeSucceededEvent, entries[2].GetType())
	assert.Equal(t, events.RunSucceededEvent, entries[3].GetType())
}

func TestRecorder_DispatchRecordedBeforeResult(t *testing.T) {
	ctx := context.Background()
	recorder, sink := newTestRecorder(t)

	recorder.RunStarted(ctx, "trigger", nil)
	recorder.NodeDispatched(ctx, "transform", models.NodeTypeTransform, 1, nil)

	assert.Equal(t, models.NodeStatusRunning, recorder.NodeStatus("transform"))
	require.Len(t, sink.EntriesOfType(events.NodeDispatchedEvent), 1)
}

func TestRecorder_SkippedIsTerminal(t *testing.T) {
	ctx := context.Background()
	recorder, _ := newTestRecorder(t)

	recorder.NodeSkipped(ctx, "transform", "branch not taken")
	recorder.NodeSkipped(ctx, "transform", "again")

	snapshot := recorder.Snapshot()
	assert.Equal(t, models.NodeStatusSkipped, snapshot.NodeStates["transform"].Status)
}

func TestRecorder_RunFinishedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	recorder, sink := newTestRecorder(t)

	recorder.RunStarted(ctx, "trigger", nil)
	recorder.RunFinished(ctx, models.RunStatusFailed, "boom")
	recorder.RunFinished(ctx, models.RunStatusSucceeded, "")

	snapshot := recorder.Snapshot()
	assert.Equal(t, models.RunStatusFailed, snapshot.Status)
	assert.Len(t, sink.EntriesOfType(events.RunFailedEvent), 1)
	assert.Empty(t, sink.EntriesOfType(events.RunSucceededEvent))
}

func TestRecorder_FailureCarriesDescriptor(t *testing.T) {
	ctx := context.Background()
	recorder, sink := newTestRecorder(t)

	recorder.NodeDispatched(ctx, "transform", models.NodeTypeTransform, 1, nil)
	recorder.NodeFailed(ctx, "transform", &models.ErrorDescriptor{
		Code:    models.ErrCodeEvaluation,
		Message: "bad expression",
		NodeID:  "transform",
	})

	snapshot := recorder.Snapshot()
	state := snapshot.NodeStates["transform"]
	require.NotNil(t, state.Error)
	assert.Equal(t, models.ErrCodeEvaluation, state.Error.Code)

	finished := sink.EntriesOfType(events.NodeFailedEvent)
	require.Len(t, finished, 1)
}
