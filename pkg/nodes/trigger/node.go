// Package trigger provides the trigger node types: webhook, database poll,
// api poll and file watch. Trigger nodes originate runs and are seeded by
// the caller that delivers the initial payload; the engine validates their
// configuration but never executes them.
package trigger

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// TriggerNode marks the entry point of a workflow graph.
type TriggerNode struct {
	id       string
	nodeType string
	config   map[string]any
}

// NewTriggerNode creates a trigger node of the given type.
func NewTriggerNode(id, nodeType string, config map[string]any) (*TriggerNode, error) {
	return &TriggerNode{id: id, nodeType: nodeType, config: config}, nil
}

// ID returns the node instance ID.
func (n *TriggerNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *TriggerNode) Type() string {
	return n.nodeType
}

// Execute is never dispatched for trigger nodes; the run seed takes their
// place. Reaching this is a scheduling defect.
func (n *TriggerNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	return nil, models.NewError(models.ErrCodeConflict, "trigger nodes are seeded externally").WithNode(n.id)
}
