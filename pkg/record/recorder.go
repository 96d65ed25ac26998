package record

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strandkit/strand/pkg/events"
	"github.com/strandkit/strand/pkg/models"
)

// Recorder owns one run's ExecutionRun and appends a record entry for every
// state transition. Every mutation is appended to the sink before the
// corresponding work is dispatched. Safe for concurrent use by the worker
// pool.
type Recorder struct {
	mu     sync.Mutex
	run    *models.ExecutionRun
	sink   Sink
	logger *slog.Logger
}

// NewRecorder opens the record for a fresh run over the given definition.
func NewRecorder(def *models.WorkflowDefinition, sink Sink, logger *slog.Logger) *Recorder {
	run := &models.ExecutionRun{
		ID:              uuid.New().String(),
		WorkflowID:      def.ID,
		WorkflowVersion: def.Version,
		Status:          models.RunStatusPending,
		NodeStates:      make(map[string]*models.NodeState, len(def.Nodes)),
	}

	for _, node := range def.Nodes {
		run.NodeStates[node.ID] = &models.NodeState{
			NodeID: node.ID,
			Status: models.NodeStatusPending,
		}
	}

	return &Recorder{
		run:    run,
		sink:   sink,
		logger: logger.With("module", "record", "execution_id", run.ID),
	}
}

// RunID returns the run identifier.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// RunStarted transitions the run to Running and records the trigger seed.
func (r *Recorder) RunStarted(ctx context.Context, triggerNodeID string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.run.Status = models.RunStatusRunning
	r.run.StartedAt = time.Now().UTC()

	r.append(ctx, events.NewRunStarted(r.run.WorkflowID, r.run.ID, triggerNodeID, r.run.WorkflowVersion, data))
}

// NodeDispatched marks the node Running and records its input. Called before
// the task reaches the worker pool.
func (r *Recorder) NodeDispatched(ctx context.Context, nodeID, nodeType string, attempt int, input *models.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(nodeID)
	now := time.Now().UTC()

	state.Status = models.NodeStatusRunning
	state.Attempts = attempt
	if state.StartedAt == nil {
		state.StartedAt = &now
	}
	if input != nil {
		state.Input = input.Clone()
	}

	var data map[string]any
	if input != nil {
		data = input.Data
	}

	r.append(ctx, events.NewNodeDispatched(r.run.WorkflowID, r.run.ID, nodeID, nodeType, attempt, data))
}

// NodeSucceeded marks the node Succeeded and records its output envelope.
func (r *Recorder) NodeSucceeded(ctx context.Context, nodeID string, output *models.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(nodeID)
	now := time.Now().UTC()

	state.Status = models.NodeStatusSucceeded
	state.EndedAt = &now
	if output != nil {
		state.Output = output.Clone()
	}

	var data map[string]any
	if output != nil {
		data = output.Data
	}

	r.append(ctx, events.NewNodeFinished(
		r.run.WorkflowID, r.run.ID, nodeID,
		models.NodeStatusSucceeded, data, "", state.Attempts, r.elapsed(state)))
}

// NodeFailed marks the node Failed with the given descriptor.
func (r *Recorder) NodeFailed(ctx context.Context, nodeID string, descriptor *models.ErrorDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(nodeID)
	now := time.Now().UTC()

	state.Status = models.NodeStatusFailed
	state.EndedAt = &now
	state.Error = descriptor

	msg := ""
	if descriptor != nil {
		msg = descriptor.Message
	}

	r.append(ctx, events.NewNodeFinished(
		r.run.WorkflowID, r.run.ID, nodeID,
		models.NodeStatusFailed, nil, msg, state.Attempts, r.elapsed(state)))
}

// NodeSkipped marks the node Skipped. Skipped is terminal and is never
// overwritten by a later dispatch.
func (r *Recorder) NodeSkipped(ctx context.Context, nodeID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(nodeID)
	if state.Status.Terminal() {
		return
	}

	now := time.Now().UTC()
	state.Status = models.NodeStatusSkipped
	state.EndedAt = &now

	r.append(ctx, events.NewNodeSkipped(r.run.WorkflowID, r.run.ID, nodeID, reason))
}

// NodeRetried records a retry decision without changing the node status.
func (r *Recorder) NodeRetried(ctx context.Context, nodeID string, attempt, maxAttempts int, backoff time.Duration, lastErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}

	r.append(ctx, events.NewNodeRetried(r.run.WorkflowID, r.run.ID, nodeID, attempt, maxAttempts, backoff, msg))
}

// RunFinished seals the run with its terminal status. Further calls are
// no-ops.
func (r *Recorder) RunFinished(ctx context.Context, status models.RunStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.run.Status.Terminal() {
		return
	}

	now := time.Now().UTC()
	r.run.Status = status
	r.run.EndedAt = &now

	r.append(ctx, events.NewRunFinished(r.run.WorkflowID, r.run.ID, status, errMsg, now.Sub(r.run.StartedAt)))
}

// RunCancelled records the cancellation reason. The terminal status is still
// written by RunFinished.
func (r *Recorder) RunCancelled(ctx context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.append(ctx, events.NewRunCancelled(r.run.WorkflowID, r.run.ID, reason))
}

// Snapshot returns a point-in-time copy of the run record.
func (r *Recorder) Snapshot() *models.ExecutionRun {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *r.run
	copied.NodeStates = make(map[string]*models.NodeState, len(r.run.NodeStates))

	for id, state := range r.run.NodeStates {
		stateCopy := *state
		copied.NodeStates[id] = &stateCopy
	}

	return &copied
}

// NodeStatus returns the recorded status of a node.
func (r *Recorder) NodeStatus(nodeID string) models.NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state(nodeID).Status
}

func (r *Recorder) state(nodeID string) *models.NodeState {
	state, ok := r.run.NodeStates[nodeID]
	if !ok {
		state = &models.NodeState{NodeID: nodeID, Status: models.NodeStatusPending}
		r.run.NodeStates[nodeID] = state
	}

	return state
}

func (r *Recorder) elapsed(state *models.NodeState) time.Duration {
	if state.StartedAt == nil || state.EndedAt == nil {
		return 0
	}

	return state.EndedAt.Sub(*state.StartedAt)
}

// append mirrors an entry to the sink. Sink failures are logged, never fatal:
// the in-memory record remains the source of truth for the run.
func (r *Recorder) append(ctx context.Context, event events.Event) {
	if r.sink == nil {
		return
	}

	if err := r.sink.Append(ctx, r.run.ID, event); err != nil {
		r.logger.ErrorContext(ctx, "failed to append record entry to sink",
			"event_type", event.GetType(), "error", err)
	}
}
