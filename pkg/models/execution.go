package models

import "time"

// RunStatus is the lifecycle state of an execution run. Terminal statuses are
// final: once a run is Succeeded, Failed or PartiallyRecovered no further
// NodeState transitions occur.
type RunStatus string

const (
	RunStatusPending            RunStatus = "pending"
	RunStatusRunning            RunStatus = "running"
	RunStatusSucceeded          RunStatus = "succeeded"
	RunStatusFailed             RunStatus = "failed"
	RunStatusPartiallyRecovered RunStatus = "partially_recovered"
)

// Terminal reports whether the status permits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusPartiallyRecovered
}

// NodeStatus is the per-run state of a single node instance.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusSucceeded NodeStatus = "succeeded"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// Terminal reports whether the node status permits no further transitions.
func (s NodeStatus) Terminal() bool {
	return s == NodeStatusSucceeded || s == NodeStatusFailed || s == NodeStatusSkipped
}

// ExecutionRun is the replayable record of one workflow invocation. It is
// mutated only by the executor driving it and becomes immutable once the
// status is terminal.
type ExecutionRun struct {
	ID              string                `json:"id"`
	WorkflowID      string                `json:"workflow_id"`
	WorkflowVersion int                   `json:"workflow_version"`
	Status          RunStatus             `json:"status"`
	StartedAt       time.Time             `json:"started_at"`
	EndedAt         *time.Time            `json:"ended_at,omitempty"`
	NodeStates      map[string]*NodeState `json:"node_states"`
}

// NodeState records one node's inputs, outputs, timing and status within a
// run.
type NodeState struct {
	NodeID    string           `json:"node_id"`
	Status    NodeStatus       `json:"status"`
	Input     *Envelope        `json:"input,omitempty"`
	Output    *Envelope        `json:"output,omitempty"`
	Error     *ErrorDescriptor `json:"error,omitempty"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	Attempts  int              `json:"attempts"`
}
