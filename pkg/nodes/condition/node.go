// Package condition provides the conditional branching node: a boolean
// expression routes the envelope along exactly one of the two labeled
// outgoing edges.
package condition

import (
	"context"
	"errors"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// ConditionNode evaluates its expression and routes to the "true" or "false"
// edge. The validator guarantees both edges exist.
type ConditionNode struct {
	id         string
	expression string
}

// NewConditionNode creates a new condition node from its configuration.
func NewConditionNode(id string, config map[string]any) (*ConditionNode, error) {
	expression, ok := config["expression"].(string)
	if !ok || expression == "" {
		return nil, errors.New("missing required field 'expression'")
	}

	return &ConditionNode{id: id, expression: expression}, nil
}

// ID returns the node instance ID.
func (n *ConditionNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *ConditionNode) Type() string {
	return models.NodeTypeCondition
}

// Execute evaluates the expression against the input envelope. Evaluation
// failure is a node failure, never an implicit false.
func (n *ConditionNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	result, err := ectx.Evaluator.Condition(ctx, n.expression, input.Data)
	if err != nil {
		return nil, err
	}

	route := models.EdgeLabelFalse
	if result {
		route = models.EdgeLabelTrue
	}

	return &protocol.Result{
		Envelope: input.Next(n.id, nil),
		Route:    route,
	}, nil
}
