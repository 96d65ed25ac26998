// Package protocol defines the interfaces and contracts between the engine
// and its pluggable parts: node behaviors, external adapters and the
// execution context handed to a node while it runs.
package protocol

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
)

// NodeBehavior is the execution behavior behind a node type tag. Behaviors
// are created per node instance from the instance's configuration and must
// be safe for reuse across runs.
type NodeBehavior interface {
	// ID returns the node instance ID this behavior was created for.
	ID() string

	// Type returns the node type tag.
	Type() string

	// Execute runs the node against its input envelope. Control-flow
	// decisions travel in the Result; any returned error is a node failure
	// subject to the instance's retry policy.
	Execute(ctx context.Context, ectx ExecutionContext, input *models.Envelope) (*Result, error)
}

// Result is what a node execution hands back to the scheduler.
type Result struct {
	// Envelope is the node's output, delivered along outgoing edges.
	Envelope *models.Envelope

	// Route restricts propagation to outgoing edges carrying this label.
	// Condition nodes set it to "true" or "false"; empty means every
	// non-error edge whose own condition holds.
	Route string

	// Drop stops propagation entirely: downstream nodes are skipped. Used
	// by filter nodes whose predicate rejected the envelope.
	Drop bool
}

// NodeFactory creates node behaviors and describes the node type.
type NodeFactory interface {
	// Create builds a behavior instance for one node of a definition.
	Create(ctx context.Context, id string, config map[string]any) (NodeBehavior, error)

	// ID returns the node type tag this factory serves.
	ID() string

	// Description returns a human-readable description of the node type.
	Description() string

	// Schema returns the JSON schema its configuration is validated against.
	Schema() map[string]any
}
