// Package transform provides the data transformation node: a jq expression
// reshapes the envelope data before it continues downstream.
package transform

import (
	"context"
	"errors"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// TransformNode applies a jq expression to the input envelope's data.
type TransformNode struct {
	id         string
	expression string
}

// NewTransformNode creates a new transform node from its configuration.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok || expression == "" {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{id: id, expression: expression}, nil
}

// ID returns the node instance ID.
func (n *TransformNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *TransformNode) Type() string {
	return models.NodeTypeTransform
}

// Execute evaluates the transform expression and emits the reshaped data.
func (n *TransformNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	out, err := ectx.Evaluator.Transform(ctx, n.expression, input.Data)
	if err != nil {
		return nil, err
	}

	return &protocol.Result{Envelope: input.Next(n.id, out)}, nil
}
