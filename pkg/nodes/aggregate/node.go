// Package aggregate provides the aggregate node: it waits for all declared
// predecessors, receives their merged outputs as one envelope, and may apply
// an optional jq reshape. The scheduler performs the merge before dispatch.
package aggregate

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// AggregateNode reshapes an already merged input envelope.
type AggregateNode struct {
	id         string
	expression string
}

// NewAggregateNode creates a new aggregate node from its configuration. The
// expression is optional; without it the merged data passes through as is.
func NewAggregateNode(id string, config map[string]any) (*AggregateNode, error) {
	expression, _ := config["expression"].(string)

	return &AggregateNode{id: id, expression: expression}, nil
}

// ID returns the node instance ID.
func (n *AggregateNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *AggregateNode) Type() string {
	return models.NodeTypeAggregate
}

// Execute applies the optional reshape to the merged predecessor data.
func (n *AggregateNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	if n.expression == "" {
		return &protocol.Result{Envelope: input.Next(n.id, nil)}, nil
	}

	out, err := ectx.Evaluator.Transform(ctx, n.expression, input.Data)
	if err != nil {
		return nil, err
	}

	return &protocol.Result{Envelope: input.Next(n.id, out)}, nil
}
