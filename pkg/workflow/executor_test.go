package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand/pkg/events"
	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
	"github.com/strandkit/strand/pkg/record"
	"github.com/strandkit/strand/pkg/registry"
	"github.com/strandkit/strand/pkg/testutil"
)

func newTestExecutor(t *testing.T, opts ...Option) (*Executor, *record.MemorySink) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	sink := record.NewMemorySink()

	base := []Option{
		WithLogger(logger),
		WithSink(sink),
		WithWorkers(4),
		WithAdapters(echoAdapters()),
	}

	ex := NewExecutor(reg, append(base, opts...)...)
	t.Cleanup(ex.Shutdown)

	return ex, sink
}

// echoAdapters backs every output type with an adapter returning its input
// data unchanged.
func echoAdapters() protocol.AdapterMap {
	adapters := protocol.AdapterMap{}

	for _, nodeType := range []string{
		models.NodeTypeEmail,
		models.NodeTypeWebhookOutput,
		models.NodeTypeDatabaseOutput,
		models.NodeTypeFileOutput,
		models.NodeTypeSlack,
		models.NodeTypeLLM,
	} {
		adapters[nodeType] = protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				return input.Data, nil
			})
	}

	return adapters
}

func nodeStatus(run *models.ExecutionRun, nodeID string) models.NodeStatus {
	state, ok := run.NodeStates[nodeID]
	if !ok {
		return ""
	}

	return state.Status
}

func TestExecutor_LinearRun(t *testing.T) {
	ex, sink := newTestExecutor(t)

	run, err := ex.Execute(context.Background(), testutil.LinearWorkflow(),
		Seed{Data: map[string]any{"seed": true}})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.EndedAt)

	for _, id := range []string{"trigger", "transform", "output"} {
		assert.Equal(t, models.NodeStatusSucceeded, nodeStatus(run, id), id)
	}

	// Every dispatch is recorded before its result.
	dispatched := -1
	finished := -1
	for i, e := range sink.Entries() {
		switch ev := e.(type) {
		case events.NodeDispatched:
			if ev.NodeID == "transform" && dispatched < 0 {
				dispatched = i
			}
		case events.NodeFinished:
			if ev.NodeID == "transform" && finished < 0 {
				finished = i
			}
		}
	}

	require.GreaterOrEqual(t, dispatched, 0)
	require.Greater(t, finished, dispatched)
}

func TestExecutor_RefusesInvalidDefinition(t *testing.T) {
	ex, sink := newTestExecutor(t)

	def := testutil.LinearWorkflow()
	def.Edges = append(def.Edges, testutil.Edge("output", "transform"))

	_, err := ex.Start(context.Background(), def, Seed{})

	require.Error(t, err)
	assert.Empty(t, sink.Entries(), "a refused definition must leave no record")
}

func TestExecutor_UnknownTriggerSeed(t *testing.T) {
	ex, _ := newTestExecutor(t)

	_, err := ex.Start(context.Background(), testutil.LinearWorkflow(),
		Seed{TriggerNodeID: "ghost"})

	require.Error(t, err)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeConflict, engineErr.Code)
}

func TestExecutor_ConditionRoutesExactlyOneBranch(t *testing.T) {
	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("shape"),
				testutil.WithConfig(map[string]any{"expression": `{amount: .amount, customer: .customer}`})),
			testutil.Node(testutil.WithID("gate"), testutil.ConditionNode("amount >= 1000")),
			testutil.Node(testutil.WithID("notify"), testutil.WithType(models.NodeTypeEmail),
				testutil.WithConfig(map[string]any{"to": "sales@example.com"})),
			testutil.Node(testutil.WithID("archive"), testutil.WithType(models.NodeTypeWebhookOutput),
				testutil.WithConfig(map[string]any{"url": "https://example.com/hook"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "shape"),
			testutil.Edge("shape", "gate"),
			testutil.Edge("gate", "notify", testutil.WithLabel(models.EdgeLabelTrue)),
			testutil.Edge("gate", "archive", testutil.WithLabel(models.EdgeLabelFalse)),
		),
	)

	t.Run("high amount takes the true branch", func(t *testing.T) {
		ex, _ := newTestExecutor(t)

		run, err := ex.Execute(context.Background(), def,
			Seed{Data: map[string]any{"amount": 1500, "customer": "acme"}})

		require.NoError(t, err)
		assert.Equal(t, models.RunStatusSucceeded, run.Status)
		assert.Equal(t, models.NodeStatusSucceeded, nodeStatus(run, "notify"))
		assert.Equal(t, models.NodeStatusSkipped, nodeStatus(run, "archive"))
	})

	t.Run("low amount takes the false branch", func(t *testing.T) {
		ex, _ := newTestExecutor(t)

		run, err := ex.Execute(context.Background(), def,
			Seed{Data: map[string]any{"amount": 250, "customer": "acme"}})

		require.NoError(t, err)
		assert.Equal(t, models.RunStatusSucceeded, run.Status)
		assert.Equal(t, models.NodeStatusSkipped, nodeStatus(run, "notify"))
		assert.Equal(t, models.NodeStatusSucceeded, nodeStatus(run, "archive"))
	})
}

func TestExecutor_FilterDropStopsPropagation(t *testing.T) {
	ex, _ := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("keep_large"), testutil.WithType(models.NodeTypeFilter),
				testutil.WithConfig(map[string]any{"predicate": "amount > 100"})),
			testutil.Node(testutil.WithID("output"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "keep_large"),
			testutil.Edge("keep_large", "output"),
		),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"amount": 10}})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, models.NodeStatusSucceeded, nodeStatus(run, "keep_large"))
	assert.Equal(t, models.NodeStatusSkipped, nodeStatus(run, "output"))
}

func TestExecutor_AggregateWaitsForAllPredecessors(t *testing.T) {
	ex, _ := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("left"),
				testutil.WithConfig(map[string]any{"expression": `{left: .seed}`})),
			testutil.Node(testutil.WithID("right"),
				testutil.WithConfig(map[string]any{"expression": `{right: .seed}`})),
			testutil.Node(testutil.WithID("join"), testutil.WithType(models.NodeTypeAggregate),
				testutil.WithConfig(map[string]any{})),
			testutil.Node(testutil.WithID("output"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "left"),
			testutil.Edge("trigger", "right"),
			testutil.Edge("left", "join"),
			testutil.Edge("right", "join"),
			testutil.Edge("join", "output"),
		),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"seed": 7}})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)

	join := run.NodeStates["join"]
	require.NotNil(t, join)
	require.NotNil(t, join.Output)
	assert.Contains(t, join.Output.Data, "left")
	assert.Contains(t, join.Output.Data, "right")
	assert.Equal(t, 1, join.Attempts, "aggregate must dispatch exactly once")
}

func TestExecutor_LoopExecutesBodyPerItem(t *testing.T) {
	ex, sink := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("each"), testutil.WithType(models.NodeTypeLoop),
				testutil.WithConfig(map[string]any{"collection": ".items", "max_iterations": 10})),
			testutil.Node(testutil.WithID("double"),
				testutil.WithConfig(map[string]any{"expression": `{doubled: (.item * 2), index: .index}`})),
			testutil.Node(testutil.WithID("output"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "each"),
			testutil.Edge("each", "double", testutil.WithLabel(models.EdgeLabelBody)),
			testutil.Edge("each", "output", testutil.WithLabel(models.EdgeLabelDone)),
		),
	)

	run, err := ex.Execute(context.Background(), def,
		Seed{Data: map[string]any{"items": []any{1, 2, 3}}})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)

	bodyRuns := 0
	for _, e := range sink.EntriesOfType(events.NodeDispatchedEvent) {
		if e.(events.NodeDispatched).NodeID == "double" {
			bodyRuns++
		}
	}
	assert.Equal(t, 3, bodyRuns)

	loopState := run.NodeStates["each"]
	require.NotNil(t, loopState)
	require.NotNil(t, loopState.Output)

	items, ok := loopState.Output.Data["items"].([]any)
	require.True(t, ok, "loop output must carry the aggregated items")
	require.Len(t, items, 3)
	assert.EqualValues(t, 3, loopState.Output.Data["count"])

	// Aggregation preserves input order regardless of completion order.
	for i, item := range items {
		result, ok := item.(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, i, result["index"])
		assert.EqualValues(t, 2*(i+1), result["doubled"])
	}

	assert.Equal(t, models.NodeStatusSucceeded, nodeStatus(run, "output"))
}

func TestExecutor_LoopBoundExceededFailsRun(t *testing.T) {
	ex, _ := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("each"), testutil.WithType(models.NodeTypeLoop),
				testutil.WithConfig(map[string]any{"collection": ".items", "max_iterations": 2})),
			testutil.Node(testutil.WithID("double"),
				testutil.WithConfig(map[string]any{"expression": `{doubled: (.item * 2)}`})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "each"),
			testutil.Edge("each", "double", testutil.WithLabel(models.EdgeLabelBody)),
		),
	)

	run, err := ex.Execute(context.Background(), def,
		Seed{Data: map[string]any{"items": []any{1, 2, 3}}})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeLoopBound, engineErr.Code)

	state := run.NodeStates["each"]
	require.NotNil(t, state)
	assert.Equal(t, models.NodeStatusFailed, state.Status)
}

func TestExecutor_LoopIterationFailureAbsorbedByErrorRoute(t *testing.T) {
	ex, sink := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("each"), testutil.WithType(models.NodeTypeLoop),
				testutil.WithConfig(map[string]any{"collection": ".items", "max_iterations": 10})),
			testutil.Node(testutil.WithID("bump"),
				testutil.WithConfig(map[string]any{"expression": `{value: (.item + 1), index: .index}`})),
			testutil.Node(testutil.WithID("report"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
			testutil.Node(testutil.WithID("rescue"), testutil.WithType(models.NodeTypeErrorHandler),
				testutil.WithConfig(map[string]any{})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "each"),
			testutil.Edge("each", "bump", testutil.WithLabel(models.EdgeLabelBody)),
			testutil.Edge("each", "report", testutil.WithLabel(models.EdgeLabelDone)),
			testutil.Edge("each", "rescue", testutil.AsErrorRoute()),
		),
	)

	// The middle item is a string, so the body transform fails for it only.
	run, err := ex.Execute(context.Background(), def,
		Seed{Data: map[string]any{"items": []any{1, "two", 3}}})

	require.NoError(t, err, "an absorbed loop failure is not a run error")
	assert.Equal(t, models.RunStatusPartiallyRecovered, run.Status)

	// Sibling iterations continue past the failed one.
	bodyRuns := 0
	for _, e := range sink.EntriesOfType(events.NodeDispatchedEvent) {
		if e.(events.NodeDispatched).NodeID == "bump" {
			bodyRuns++
		}
	}
	assert.Equal(t, 3, bodyRuns)

	each := run.NodeStates["each"]
	require.NotNil(t, each)
	assert.Equal(t, models.NodeStatusFailed, each.Status)
	require.NotNil(t, each.Error)
	assert.Equal(t, models.ErrCodeEvaluation, each.Error.Code)
	assert.Contains(t, each.Error.Message, "1 of 3 iterations failed")

	// The loop's error route receives the iteration failure descriptor.
	rescue := run.NodeStates["rescue"]
	require.NotNil(t, rescue)
	assert.Equal(t, models.NodeStatusSucceeded, rescue.Status)
	require.NotNil(t, rescue.Input)
	require.NotNil(t, rescue.Input.Error)
	assert.Equal(t, "each", rescue.Input.Error.NodeID)

	assert.Equal(t, models.NodeStatusSkipped, nodeStatus(run, "report"))
}

func TestExecutor_LoopStopOnErrorAbortsRemainingIterations(t *testing.T) {
	ex, sink := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("each"), testutil.WithType(models.NodeTypeLoop),
				testutil.WithConfig(map[string]any{
					"collection":     ".items",
					"max_iterations": 10,
					"stop_on_error":  true,
				})),
			testutil.Node(testutil.WithID("bump"),
				testutil.WithConfig(map[string]any{"expression": `{value: (.item + 1)}`})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "each"),
			testutil.Edge("each", "bump", testutil.WithLabel(models.EdgeLabelBody)),
		),
	)

	run, err := ex.Execute(context.Background(), def,
		Seed{Data: map[string]any{"items": []any{1, "two", 3}}})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeEvaluation, engineErr.Code)
	assert.Equal(t, "each", engineErr.NodeID)

	// The third item is never dispatched once the second fails.
	bodyRuns := 0
	for _, e := range sink.EntriesOfType(events.NodeDispatchedEvent) {
		if e.(events.NodeDispatched).NodeID == "bump" {
			bodyRuns++
		}
	}
	assert.Equal(t, 2, bodyRuns)
}

func TestExecutor_ConcurrentLoopPreservesItemOrder(t *testing.T) {
	// Earlier items take longer, so completions arrive in reverse order.
	staggered := echoAdapters()
	staggered[models.NodeTypeLLM] = protocol.AdapterFunc(
		func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
			idx, _ := input.Data["index"].(int)

			select {
			case <-time.After(time.Duration((3-idx)*15) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			return map[string]any{"item": input.Data["item"], "index": idx}, nil
		})

	ex, _ := newTestExecutor(t, WithAdapters(staggered))

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("each"), testutil.WithType(models.NodeTypeLoop),
				testutil.WithConfig(map[string]any{
					"collection":     ".items",
					"max_iterations": 10,
					"mode":           "concurrent",
				})),
			testutil.Node(testutil.WithID("score"), testutil.WithType(models.NodeTypeLLM),
				testutil.WithConfig(map[string]any{"prompt": "score {{item}}"})),
			testutil.Node(testutil.WithID("report"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "each"),
			testutil.Edge("each", "score", testutil.WithLabel(models.EdgeLabelBody)),
			testutil.Edge("each", "report", testutil.WithLabel(models.EdgeLabelDone)),
		),
	)

	run, err := ex.Execute(context.Background(), def,
		Seed{Data: map[string]any{"items": []any{"a", "b", "c"}}})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)

	each := run.NodeStates["each"]
	require.NotNil(t, each)
	require.NotNil(t, each.Output)

	items, ok := each.Output.Data["items"].([]any)
	require.True(t, ok, "loop output must carry the aggregated items")
	require.Len(t, items, 3)
	assert.EqualValues(t, 3, each.Output.Data["count"])

	// Aggregation is indexed by input position, not completion order.
	want := []string{"a", "b", "c"}
	for i, item := range items {
		result, ok := item.(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, i, result["index"])
		assert.Equal(t, want[i], result["item"])
	}

	assert.Equal(t, models.NodeStatusSucceeded, nodeStatus(run, "report"))
}

func TestExecutor_ErrorRouteAbsorbsFailure(t *testing.T) {
	ex, sink := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("broken"),
				testutil.WithConfig(map[string]any{"expression": `{value: (.amount + "boom")}`})),
			testutil.Node(testutil.WithID("output"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
			testutil.Node(testutil.WithID("rescue"), testutil.WithType(models.NodeTypeErrorHandler),
				testutil.WithConfig(map[string]any{})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "broken"),
			testutil.Edge("broken", "output"),
			testutil.Edge("broken", "rescue", testutil.AsErrorRoute()),
		),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"amount": 5}})

	require.NoError(t, err, "an absorbed failure is not a run error")
	assert.Equal(t, models.RunStatusPartiallyRecovered, run.Status)

	broken := run.NodeStates["broken"]
	require.NotNil(t, broken)
	assert.Equal(t, models.NodeStatusFailed, broken.Status)
	require.NotNil(t, broken.Error)
	assert.Equal(t, models.ErrCodeEvaluation, broken.Error.Code)

	// The handler receives the failed node's input plus the descriptor.
	rescue := run.NodeStates["rescue"]
	require.NotNil(t, rescue)
	assert.Equal(t, models.NodeStatusSucceeded, rescue.Status)
	require.NotNil(t, rescue.Input)
	require.NotNil(t, rescue.Input.Error)
	assert.Equal(t, "broken", rescue.Input.Error.NodeID)

	// Nodes downstream of the failure on the normal path never run.
	assert.Equal(t, models.NodeStatusSkipped, nodeStatus(run, "output"))

	failures := sink.EntriesOfType(events.NodeFailedEvent)
	assert.Len(t, failures, 1)
}

func TestExecutor_UnroutedFailureFailsRun(t *testing.T) {
	ex, _ := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("broken"),
				testutil.WithConfig(map[string]any{"expression": `{value: (.amount + "boom")}`})),
			testutil.Node(testutil.WithID("output"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "broken"),
			testutil.Edge("broken", "output"),
		),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"amount": 5}})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.NodeStatusFailed, nodeStatus(run, "broken"))
	assert.Equal(t, models.NodeStatusSkipped, nodeStatus(run, "output"))

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeEvaluation, engineErr.Code)
	assert.Equal(t, "broken", engineErr.NodeID)
}

func TestExecutor_RetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls atomic.Int64

	flaky := protocol.AdapterMap{
		models.NodeTypeWebhookOutput: protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				if calls.Add(1) < 3 {
					return nil, errors.New("upstream 503")
				}

				return input.Data, nil
			}),
	}

	ex, sink := newTestExecutor(t, WithAdapters(flaky))

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("post"), testutil.WithType(models.NodeTypeWebhookOutput),
				testutil.WithConfig(map[string]any{"url": "https://example.com/hook"}),
				testutil.WithRetry(&models.RetryPolicy{
					MaxAttempts: 3,
					Backoff:     BackoffConstant,
					Delay:       "1ms",
				})),
		),
		testutil.WithEdges(testutil.Edge("trigger", "post")),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"seed": 1}})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.EqualValues(t, 3, calls.Load())

	state := run.NodeStates["post"]
	require.NotNil(t, state)
	assert.Equal(t, models.NodeStatusSucceeded, state.Status)
	assert.Equal(t, 3, state.Attempts)

	retries := sink.EntriesOfType(events.NodeRetriedEvent)
	assert.Len(t, retries, 2)
}

func TestExecutor_RetryExhausted(t *testing.T) {
	always := protocol.AdapterMap{
		models.NodeTypeWebhookOutput: protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				return nil, errors.New("upstream 503")
			}),
	}

	ex, _ := newTestExecutor(t, WithAdapters(always))

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("post"), testutil.WithType(models.NodeTypeWebhookOutput),
				testutil.WithConfig(map[string]any{"url": "https://example.com/hook"}),
				testutil.WithRetry(&models.RetryPolicy{MaxAttempts: 2, Backoff: BackoffNone})),
		),
		testutil.WithEdges(testutil.Edge("trigger", "post")),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"seed": 1}})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	state := run.NodeStates["post"]
	require.NotNil(t, state)
	require.NotNil(t, state.Error)
	assert.Equal(t, models.ErrCodeRetryExhausted, state.Error.Code)
	assert.Equal(t, 2, state.Attempts)
}

func TestExecutor_NodeTimeout(t *testing.T) {
	slow := protocol.AdapterMap{
		models.NodeTypeFileOutput: protocol.AdapterFunc(
			func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
				select {
				case <-time.After(time.Second):
					return input.Data, nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}),
	}

	ex, _ := newTestExecutor(t, WithAdapters(slow))

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("write"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"}),
				testutil.WithTimeout("20ms")),
		),
		testutil.WithEdges(testutil.Edge("trigger", "write")),
	)

	run, err := ex.Execute(context.Background(), def, Seed{Data: map[string]any{"seed": 1}})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	state := run.NodeStates["write"]
	require.NotNil(t, state)
	require.NotNil(t, state.Error)
	assert.Equal(t, models.ErrCodeTimeout, state.Error.Code)
}

func TestExecutor_CancelStopsRun(t *testing.T) {
	ex, _ := newTestExecutor(t)

	def := testutil.Workflow(
		testutil.WithNodes(
			testutil.Node(testutil.WithID("trigger"), testutil.TriggerNode()),
			testutil.Node(testutil.WithID("wait"), testutil.WithType(models.NodeTypeDelay),
				testutil.WithConfig(map[string]any{"duration": "10s"})),
			testutil.Node(testutil.WithID("output"), testutil.WithType(models.NodeTypeFileOutput),
				testutil.WithConfig(map[string]any{"path": "/tmp/out.json"})),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "wait"),
			testutil.Edge("wait", "output"),
		),
	)

	run, err := ex.Start(context.Background(), def, Seed{Data: map[string]any{"seed": 1}})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	run.Cancel()

	final, runErr := run.Wait(context.Background())

	require.Error(t, runErr)
	assert.Equal(t, models.RunStatusFailed, final.Status)

	var engineErr *models.EngineError
	require.ErrorAs(t, runErr, &engineErr)
	assert.Equal(t, models.ErrCodeCancelled, engineErr.Code)

	assert.NotEqual(t, models.NodeStatusSucceeded, nodeStatus(final, "wait"))
	assert.Equal(t, models.NodeStatusSkipped, nodeStatus(final, "output"))
}

func TestExecutor_ConcurrentRunsShareThePool(t *testing.T) {
	ex, _ := newTestExecutor(t, WithWorkers(2))

	def := testutil.LinearWorkflow()

	var wg sync.WaitGroup
	statuses := make([]models.RunStatus, 4)

	for i := range statuses {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			run, err := ex.Execute(context.Background(), def,
				Seed{Data: map[string]any{"n": i}})
			if err == nil {
				statuses[i] = run.Status
			}
		}(i)
	}

	wg.Wait()

	for i, status := range statuses {
		assert.Equal(t, models.RunStatusSucceeded, status, "run %d", i)
	}
}
