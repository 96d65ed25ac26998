// Package errorhandler provides the error-handler node. It receives
// envelopes exclusively via error-route edges and never sees normal-path
// traffic; the scheduler enforces that.
package errorhandler

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// ErrorHandlerNode surfaces the failure descriptor into the envelope data so
// downstream nodes (notifications, compensation) can act on it.
type ErrorHandlerNode struct {
	id string
}

// NewErrorHandlerNode creates a new error handler node.
func NewErrorHandlerNode(id string, config map[string]any) (*ErrorHandlerNode, error) {
	return &ErrorHandlerNode{id: id}, nil
}

// ID returns the node instance ID.
func (n *ErrorHandlerNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *ErrorHandlerNode) Type() string {
	return models.NodeTypeErrorHandler
}

// Execute folds the error descriptor into the data and clears it from the
// envelope metadata: from here on the branch is recovered.
func (n *ErrorHandlerNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	data := map[string]any{
		"input": input.Data,
	}

	if input.Error != nil {
		data["error"] = map[string]any{
			"code":    input.Error.Code,
			"message": input.Error.Message,
			"node_id": input.Error.NodeID,
		}
	}

	out := input.Next(n.id, data)
	out.Error = nil

	return &protocol.Result{Envelope: out}, nil
}
