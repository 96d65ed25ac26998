// Package models defines core node-based workflow models for graph execution.
package models

import "strings"

// Capability classifies what a node kind is allowed to do within a run.
type Capability string

const (
	CapabilityTrigger      Capability = "trigger"       // Originates a run; no incoming edges
	CapabilityProcessor    Capability = "processor"     // Consumes one envelope, produces one
	CapabilityControl      Capability = "control"       // Routing, iteration, delays
	CapabilityOutput       Capability = "output"        // Terminal side-effecting node
	CapabilityErrorHandler Capability = "error_handler" // Receives error-route envelopes only
)

// Built-in trigger node types. Trigger nodes are seeded by the caller that
// starts a run; the engine never executes them.
const (
	NodeTypeTriggerWebhook      = "trigger:webhook"
	NodeTypeTriggerDatabasePoll = "trigger:database_poll"
	NodeTypeTriggerAPIPoll      = "trigger:api_poll"
	NodeTypeTriggerFileWatch    = "trigger:file_watch"
)

// Built-in processor node types.
const (
	NodeTypeTransform = "transform"
	NodeTypeFilter    = "filter"
	NodeTypeLLM       = "llm"
	NodeTypeAggregate = "aggregate"
)

// Built-in control node types.
const (
	NodeTypeCondition = "condition"
	NodeTypeLoop      = "loop"
	NodeTypeDelay     = "delay"
)

// Built-in output node types.
const (
	NodeTypeEmail          = "email"
	NodeTypeWebhookOutput  = "webhook_output"
	NodeTypeDatabaseOutput = "database_output"
	NodeTypeFileOutput     = "file_output"
	NodeTypeSlack          = "slack"
)

// NodeTypeErrorHandler receives envelopes routed along error-route edges.
const NodeTypeErrorHandler = "error_handler"

// capabilities maps every built-in node type to its capability. The set is
// closed: unknown types are a validation violation, not a runtime fallback.
var capabilities = map[string]Capability{
	NodeTypeTriggerWebhook:      CapabilityTrigger,
	NodeTypeTriggerDatabasePoll: CapabilityTrigger,
	NodeTypeTriggerAPIPoll:      CapabilityTrigger,
	NodeTypeTriggerFileWatch:    CapabilityTrigger,
	NodeTypeTransform:           CapabilityProcessor,
	NodeTypeFilter:              CapabilityProcessor,
	NodeTypeLLM:                 CapabilityProcessor,
	NodeTypeAggregate:           CapabilityProcessor,
	NodeTypeCondition:           CapabilityControl,
	NodeTypeLoop:                CapabilityControl,
	NodeTypeDelay:               CapabilityControl,
	NodeTypeEmail:               CapabilityOutput,
	NodeTypeWebhookOutput:       CapabilityOutput,
	NodeTypeDatabaseOutput:      CapabilityOutput,
	NodeTypeFileOutput:          CapabilityOutput,
	NodeTypeSlack:               CapabilityOutput,
	NodeTypeErrorHandler:        CapabilityErrorHandler,
}

// CapabilityOf returns the capability of a node type tag.
func CapabilityOf(nodeType string) (Capability, bool) {
	c, ok := capabilities[nodeType]
	return c, ok
}

// KnownNodeTypes returns every registered built-in node type tag.
func KnownNodeTypes() []string {
	types := make([]string, 0, len(capabilities))
	for t := range capabilities {
		types = append(types, t)
	}

	return types
}

// NodeSpec is a node instance within a workflow definition. The Config shape
// depends on the node type and is checked against the type's schema during
// validation.
type NodeSpec struct {
	ID      string         `json:"id"      validate:"required"`
	Type    string         `json:"type"    validate:"required"`
	Name    string         `json:"name,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
	Timeout string         `json:"timeout,omitempty"` // Go duration string, e.g. "30s"
	Retry   *RetryPolicy   `json:"retry,omitempty"`
}

// Capability returns the capability of this node's type, or false for an
// unknown type.
func (n *NodeSpec) Capability() (Capability, bool) {
	return CapabilityOf(n.Type)
}

// IsTriggerNode reports whether the node originates runs.
func (n *NodeSpec) IsTriggerNode() bool {
	return strings.HasPrefix(n.Type, "trigger:")
}

// IsErrorHandler reports whether the node only receives error-route envelopes.
func (n *NodeSpec) IsErrorHandler() bool {
	return n.Type == NodeTypeErrorHandler
}

// RetryPolicy configures re-execution of a failed node before its failure is
// offered to the error route.
type RetryPolicy struct {
	MaxAttempts int    `json:"max_attempts"        validate:"gte=1"`
	Backoff     string `json:"backoff,omitempty"`   // none | constant | linear | exponential
	Delay       string `json:"delay,omitempty"`     // initial delay, e.g. "500ms"
	MaxDelay    string `json:"max_delay,omitempty"` // cap for computed backoff
}

// EdgeSpec connects two nodes. Edges without a condition are unconditional.
// A transform expression, when present, reshapes the envelope data before
// delivery to the target. At most one outgoing edge per node may be flagged
// as the error route.
type EdgeSpec struct {
	ID           string `json:"id"`
	Source       string `json:"source"    validate:"required"`
	Target       string `json:"target"    validate:"required"`
	Label        string `json:"label,omitempty"` // "true"/"false" on condition-node edges
	Condition    string `json:"condition,omitempty"`
	Transform    string `json:"transform,omitempty"`
	IsErrorRoute bool   `json:"is_error_route,omitempty"`
}

// Condition-node edge labels.
const (
	EdgeLabelTrue  = "true"
	EdgeLabelFalse = "false"
)

// Loop-node edge labels. Edges labeled "body" enter the per-item subgraph;
// edges labeled "done" (or unlabeled) receive the aggregated output once all
// iterations are terminal.
const (
	EdgeLabelBody = "body"
	EdgeLabelDone = "done"
)
