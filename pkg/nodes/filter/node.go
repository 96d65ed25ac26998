// Package filter provides the filter node: a boolean predicate decides
// whether the envelope continues downstream or the branch is dropped.
package filter

import (
	"context"
	"errors"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// FilterNode passes its input through when the predicate holds and drops the
// envelope otherwise, skipping everything downstream.
type FilterNode struct {
	id        string
	predicate string
}

// NewFilterNode creates a new filter node from its configuration.
func NewFilterNode(id string, config map[string]any) (*FilterNode, error) {
	predicate, ok := config["predicate"].(string)
	if !ok || predicate == "" {
		return nil, errors.New("missing required field 'predicate'")
	}

	return &FilterNode{id: id, predicate: predicate}, nil
}

// ID returns the node instance ID.
func (n *FilterNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *FilterNode) Type() string {
	return models.NodeTypeFilter
}

// Execute evaluates the predicate. An evaluation failure is a node failure,
// not an implicit drop.
func (n *FilterNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	keep, err := ectx.Evaluator.Condition(ctx, n.predicate, input.Data)
	if err != nil {
		return nil, err
	}

	if !keep {
		return &protocol.Result{Drop: true}, nil
	}

	return &protocol.Result{Envelope: input.Next(n.id, nil)}, nil
}
