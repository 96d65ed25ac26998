// Package events defines event types for run and node lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/strandkit/strand/pkg/models"
)

type EventType string

// Record topics.
const RunTopic = "strand.run.events"   // Run lifecycle events
const NodeTopic = "strand.node.events" // Per-node lifecycle events

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	RunStartedEvent            EventType = "run.started"
	RunSucceededEvent          EventType = "run.succeeded"
	RunFailedEvent             EventType = "run.failed"
	RunPartiallyRecoveredEvent EventType = "run.partially_recovered"
	RunCancelledEvent          EventType = "run.cancelled"

	// Node lifecycle events.
	NodeDispatchedEvent EventType = "node.dispatched"
	NodeSucceededEvent  EventType = "node.succeeded"
	NodeFailedEvent     EventType = "node.failed"
	NodeSkippedEvent    EventType = "node.skipped"
	NodeRetriedEvent    EventType = "node.retried"
)

// Event is implemented by every record entry published to a sink.
type Event interface {
	GetType() EventType
	GetRunID() string
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	RunID      string         `json:"run_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (b BaseEvent) GetRunID() string {
	return b.RunID
}

func newBaseEvent(eventType EventType, workflowID, runID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		RunID:      runID,
	}
}

type RunStarted struct {
	BaseEvent

	WorkflowVersion int            `json:"workflow_version"`
	TriggerNodeID   string         `json:"trigger_node_id"`
	TriggerData     map[string]any `json:"trigger_data,omitempty"`
}

func NewRunStarted(workflowID, runID, triggerNodeID string, version int, data map[string]any) RunStarted {
	return RunStarted{
		BaseEvent:       newBaseEvent(RunStartedEvent, workflowID, runID),
		WorkflowVersion: version,
		TriggerNodeID:   triggerNodeID,
		TriggerData:     data,
	}
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunFinished carries the terminal status of a run. The event type follows
// the status: succeeded, failed or partially recovered.
type RunFinished struct {
	BaseEvent

	Status   models.RunStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration"`
}

func NewRunFinished(workflowID, runID string, status models.RunStatus, errMsg string, duration time.Duration) RunFinished {
	eventType := RunFailedEvent

	switch status {
	case models.RunStatusSucceeded:
		eventType = RunSucceededEvent
	case models.RunStatusPartiallyRecovered:
		eventType = RunPartiallyRecoveredEvent
	}

	return RunFinished{
		BaseEvent: newBaseEvent(eventType, workflowID, runID),
		Status:    status,
		Error:     errMsg,
		Duration:  duration,
	}
}

func (e RunFinished) GetType() EventType {
	return e.Type
}

type RunCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func NewRunCancelled(workflowID, runID, reason string) RunCancelled {
	return RunCancelled{
		BaseEvent: newBaseEvent(RunCancelledEvent, workflowID, runID),
		Reason:    reason,
	}
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}

// NodeDispatched is appended before the node's task is handed to the worker
// pool, so the record always shows what was about to run.
type NodeDispatched struct {
	BaseEvent

	NodeID   string         `json:"node_id"`
	NodeType string         `json:"node_type"`
	Attempt  int            `json:"attempt"`
	Input    map[string]any `json:"input,omitempty"`
}

func NewNodeDispatched(workflowID, runID, nodeID, nodeType string, attempt int, input map[string]any) NodeDispatched {
	return NodeDispatched{
		BaseEvent: newBaseEvent(NodeDispatchedEvent, workflowID, runID),
		NodeID:    nodeID,
		NodeType:  nodeType,
		Attempt:   attempt,
		Input:     input,
	}
}

func (e NodeDispatched) GetType() EventType {
	return NodeDispatchedEvent
}

type NodeFinished struct {
	BaseEvent

	NodeID     string            `json:"node_id"`
	Status     models.NodeStatus `json:"status"`
	Output     map[string]any    `json:"output,omitempty"`
	Error      string            `json:"error,omitempty"`
	Attempt    int               `json:"attempt"`
	DurationMs int64             `json:"duration_ms"`
}

func NewNodeFinished(workflowID, runID, nodeID string, status models.NodeStatus, output map[string]any, errMsg string, attempt int, duration time.Duration) NodeFinished {
	eventType := NodeFailedEvent
	if status == models.NodeStatusSucceeded {
		eventType = NodeSucceededEvent
	}

	return NodeFinished{
		BaseEvent:  newBaseEvent(eventType, workflowID, runID),
		NodeID:     nodeID,
		Status:     status,
		Output:     output,
		Error:      errMsg,
		Attempt:    attempt,
		DurationMs: duration.Milliseconds(),
	}
}

func (e NodeFinished) GetType() EventType {
	return e.Type
}

type NodeSkipped struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Reason string `json:"reason,omitempty"`
}

func NewNodeSkipped(workflowID, runID, nodeID, reason string) NodeSkipped {
	return NodeSkipped{
		BaseEvent: newBaseEvent(NodeSkippedEvent, workflowID, runID),
		NodeID:    nodeID,
		Reason:    reason,
	}
}

func (e NodeSkipped) GetType() EventType {
	return NodeSkippedEvent
}

type NodeRetried struct {
	BaseEvent

	NodeID      string        `json:"node_id"`
	Attempt     int           `json:"attempt"`
	Backoff     time.Duration `json:"backoff"`
	LastError   string        `json:"last_error"`
	MaxAttempts int           `json:"max_attempts"`
}

func NewNodeRetried(workflowID, runID, nodeID string, attempt, maxAttempts int, backoff time.Duration, lastErr string) NodeRetried {
	return NodeRetried{
		BaseEvent:   newBaseEvent(NodeRetriedEvent, workflowID, runID),
		NodeID:      nodeID,
		Attempt:     attempt,
		Backoff:     backoff,
		LastError:   lastErr,
		MaxAttempts: maxAttempts,
	}
}

func (e NodeRetried) GetType() EventType {
	return NodeRetriedEvent
}
