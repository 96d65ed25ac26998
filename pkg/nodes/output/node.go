// Package output provides the terminal side-effecting nodes: email, webhook,
// database, file and slack outputs. Every output node delegates its I/O to
// the adapter injected for its type tag; the engine itself performs none.
package output

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// OutputNode invokes the adapter registered for its node type.
type OutputNode struct {
	id       string
	nodeType string
	config   map[string]any
}

// NewOutputNode creates an output node of the given type.
func NewOutputNode(id, nodeType string, config map[string]any) (*OutputNode, error) {
	if config == nil {
		config = map[string]any{}
	}

	return &OutputNode{id: id, nodeType: nodeType, config: config}, nil
}

// ID returns the node instance ID.
func (n *OutputNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *OutputNode) Type() string {
	return n.nodeType
}

// Execute calls the adapter with the node configuration and input envelope.
// Any adapter error is a node failure subject to the retry policy.
func (n *OutputNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	if ectx.Adapters == nil {
		return nil, models.NewErrorf(models.ErrCodeAdapter, "no adapter registry configured").WithNode(n.id)
	}

	adapter, ok := ectx.Adapters.Adapter(n.nodeType)
	if !ok {
		return nil, models.NewErrorf(models.ErrCodeAdapter, "no adapter registered for %q", n.nodeType).WithNode(n.id)
	}

	out, err := adapter.Execute(ctx, n.config, input)
	if err != nil {
		return nil, models.NewErrorf(models.ErrCodeAdapter, "adapter %s failed: %s", n.nodeType, err.Error()).
			WithNode(n.id).WithCause(err)
	}

	return &protocol.Result{Envelope: input.Next(n.id, out)}, nil
}
