package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/strandkit/strand/pkg/expression"
	"github.com/strandkit/strand/pkg/log"
	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/otelhelper"
	"github.com/strandkit/strand/pkg/protocol"
	"github.com/strandkit/strand/pkg/record"
	"github.com/strandkit/strand/pkg/registry"
	"github.com/strandkit/strand/pkg/validation"
)

const defaultWorkers = 8

// Seed starts a run: the trigger node being fired and the payload it
// produced. TriggerNodeID may be empty when the definition has exactly one
// trigger.
type Seed struct {
	TriggerNodeID string
	Data          map[string]any
}

// Executor validates, schedules and runs workflow definitions. One Executor
// serves many concurrent runs over a shared bounded worker pool. The
// definition is read-only; per-run state lives in the run's recorder and
// scheduler instance.
type Executor struct {
	registry  *registry.Registry
	evaluator *expression.Evaluator
	validator *validation.Validator
	adapters  protocol.AdapterRegistry
	sink      record.Sink
	logger    *slog.Logger
	tracer    trace.Tracer

	workers        int
	defaultTimeout time.Duration
	pool           *WorkerPool
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(ex *Executor) { ex.workers = n }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ex *Executor) { ex.logger = logger }
}

// WithSink sets the record sink shared by all runs.
func WithSink(sink record.Sink) Option {
	return func(ex *Executor) { ex.sink = sink }
}

// WithAdapters injects the external-effect adapters used by output and llm
// nodes.
func WithAdapters(adapters protocol.AdapterRegistry) Option {
	return func(ex *Executor) { ex.adapters = adapters }
}

// WithDefaultTimeout sets the per-node timeout applied when a node declares
// none. Delay nodes are exempt: their duration is their own bound.
func WithDefaultTimeout(d time.Duration) Option {
	return func(ex *Executor) { ex.defaultTimeout = d }
}

// WithTracer sets the tracer used for run and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(ex *Executor) { ex.tracer = tracer }
}

// NewExecutor creates an Executor over the given node registry.
func NewExecutor(reg *registry.Registry, opts ...Option) *Executor {
	ex := &Executor{
		registry:  reg,
		evaluator: expression.NewEvaluator(),
		adapters:  protocol.AdapterMap{},
		sink:      record.NewMemorySink(),
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("strand"),
		workers:   defaultWorkers,
	}

	for _, opt := range opts {
		opt(ex)
	}

	ex.validator = validation.NewValidator(reg, ex.evaluator)
	ex.logger = ex.logger.With("module", "executor")
	ex.pool = NewWorkerPool(ex.workers)

	return ex
}

// Shutdown stops the worker pool after in-flight work completes.
func (ex *Executor) Shutdown() {
	ex.pool.Shutdown()
}

// Execute runs the definition to completion and returns the final record.
func (ex *Executor) Execute(ctx context.Context, def *models.WorkflowDefinition, seed Seed) (*models.ExecutionRun, error) {
	run, err := ex.Start(ctx, def, seed)
	if err != nil {
		return nil, err
	}

	return run.Wait(ctx)
}

// Start validates the definition, seeds the trigger and begins scheduling.
// It returns a handle immediately; the run proceeds in the background.
// Unvalidated definitions never run: a definition with violations is
// refused.
func (ex *Executor) Start(ctx context.Context, def *models.WorkflowDefinition, seed Seed) (*Run, error) {
	if result := ex.validator.Validate(def); !result.OK() {
		return nil, result.Err()
	}

	graph, err := CompileGraph(def)
	if err != nil {
		return nil, err
	}

	trigger, err := resolveTrigger(def, seed.TriggerNodeID)
	if err != nil {
		return nil, err
	}

	behaviors, err := ex.instantiate(ctx, def)
	if err != nil {
		return nil, err
	}

	recorder := record.NewRecorder(def, ex.sink, ex.logger)
	runCtx, cancel := context.WithCancelCause(ctx)

	run := &Run{
		id:       recorder.RunID(),
		recorder: recorder,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	logger := log.WithRun(ex.logger, def.ID, run.id)
	ectx := protocol.ExecutionContext{
		RunID:      run.id,
		WorkflowID: def.ID,
		Variables:  def.Variables,
		Logger:     logger,
		Evaluator:  ex.evaluator,
		Adapters:   ex.adapters,
	}

	go ex.orchestrate(runCtx, cancel, run, graph, behaviors, recorder, ectx, trigger, seed)

	return run, nil
}

// orchestrate drives one run from trigger seed to terminal status.
func (ex *Executor) orchestrate(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	run *Run,
	graph *CompiledGraph,
	behaviors map[string]protocol.NodeBehavior,
	recorder *record.Recorder,
	ectx protocol.ExecutionContext,
	trigger *models.NodeSpec,
	seed Seed,
) {
	defer cancel(nil)

	runCtx, span := otelhelper.StartSpan(ctx, ex.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, graph.Def.ID),
		attribute.String(otelhelper.ExecutionIDKey, run.id),
	)
	defer span.End()

	recorder.RunStarted(runCtx, trigger.ID, seed.Data)

	members := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		members[node.ID] = true
	}

	inst := newInstance(ex, graph, behaviors, recorder, ectx, members)

	seedEnv := models.NewEnvelope(run.id, seed.Data)
	inst.markSeeded(runCtx, trigger.ID, seedEnv)

	for _, node := range graph.Nodes {
		if node.IsTriggerNode() && node.ID != trigger.ID {
			inst.markDormant(runCtx, node.ID)
		}
	}

	result := inst.execute(runCtx, trigger.ID, seedEnv)

	status, errMsg, runErr := ex.conclude(result)
	if result.cancelled {
		recorder.RunCancelled(runCtx, errMsg)
	}
	if runErr != nil {
		otelhelper.SetError(span, runErr)
	}

	recorder.RunFinished(runCtx, status, errMsg)
	ex.logger.InfoContext(runCtx, "run finished",
		"workflow_id", graph.Def.ID, "execution_id", run.id, "status", status)

	run.finish(status, runErr)
}

// conclude maps a finished scheduler instance to the run's terminal status.
func (ex *Executor) conclude(result *instanceResult) (models.RunStatus, string, error) {
	switch {
	case result.cancelled:
		return models.RunStatusFailed, "run cancelled",
			models.NewError(models.ErrCodeCancelled, "run cancelled")
	case len(result.unrouted) > 0:
		first := result.unrouted[0]

		return models.RunStatusFailed, first.Message,
			models.NewError(first.Code, first.Message).WithNode(first.NodeID)
	case result.recovered > 0:
		return models.RunStatusPartiallyRecovered, "", nil
	default:
		return models.RunStatusSucceeded, "", nil
	}
}

// instantiate creates every node behavior for the run. All config defects
// were caught by validation; a failure here is a registry gap.
func (ex *Executor) instantiate(ctx context.Context, def *models.WorkflowDefinition) (map[string]protocol.NodeBehavior, error) {
	behaviors := make(map[string]protocol.NodeBehavior, len(def.Nodes))

	for _, node := range def.Nodes {
		behavior, err := ex.registry.CreateNode(ctx, node.Type, node.ID, node.Config)
		if err != nil {
			return nil, models.NewErrorf(models.ErrCodeValidation,
				"cannot instantiate node %s: %s", node.ID, err.Error()).WithNode(node.ID).WithCause(err)
		}

		behaviors[node.ID] = behavior
	}

	return behaviors, nil
}

func resolveTrigger(def *models.WorkflowDefinition, triggerNodeID string) (*models.NodeSpec, error) {
	triggers := def.TriggerNodes()

	if triggerNodeID == "" {
		if len(triggers) != 1 {
			return nil, models.NewErrorf(models.ErrCodeConflict,
				"definition has %d triggers, seed must name one", len(triggers))
		}

		return triggers[0], nil
	}

	for _, t := range triggers {
		if t.ID == triggerNodeID {
			return t, nil
		}
	}

	return nil, models.NewErrorf(models.ErrCodeConflict, "unknown trigger node %q", triggerNodeID)
}

// nodeTimeout resolves the effective timeout for a node task.
func (ex *Executor) nodeTimeout(spec *models.NodeSpec) time.Duration {
	if spec.Timeout != "" {
		if d, err := time.ParseDuration(spec.Timeout); err == nil {
			return d
		}
	}

	if spec.Type == models.NodeTypeDelay {
		return 0 // the configured duration is the delay's own bound
	}

	return ex.defaultTimeout
}

// classify wraps raw behavior errors into engine errors with a code.
func classify(err error, nodeCtx context.Context, nodeID string) *models.EngineError {
	var engineErr *models.EngineError
	if errors.As(err, &engineErr) {
		// A behavior may wrap an expired deadline in its own error; the
		// record still shows a timeout.
		if engineErr.Code == models.ErrCodeAdapter && errors.Is(err, context.DeadlineExceeded) {
			return models.NewError(models.ErrCodeTimeout, engineErr.Message).
				WithNode(nodeID).WithCause(engineErr)
		}

		if engineErr.NodeID == "" {
			return engineErr.WithNode(nodeID)
		}

		return engineErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(nodeCtx.Err(), context.DeadlineExceeded):
		return models.NewError(models.ErrCodeTimeout, err.Error()).WithNode(nodeID).WithCause(err)
	case errors.Is(err, context.Canceled) || errors.Is(nodeCtx.Err(), context.Canceled):
		return models.NewError(models.ErrCodeCancelled, err.Error()).WithNode(nodeID).WithCause(err)
	default:
		return models.NewError(models.ErrCodeAdapter, err.Error()).WithNode(nodeID).WithCause(err)
	}
}
