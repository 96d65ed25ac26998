// Package loop provides the loop node factory for registry integration.
package loop

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// LoopNodeFactory creates LoopNode instances.
type LoopNodeFactory struct{}

// NewLoopNodeFactory creates a new factory instance.
func NewLoopNodeFactory() protocol.NodeFactory {
	return &LoopNodeFactory{}
}

// Create creates a new LoopNode instance.
func (f *LoopNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewLoopNode(id, config)
}

// ID returns the node type tag.
func (f *LoopNodeFactory) ID() string {
	return models.NodeTypeLoop
}

// Description returns the factory description.
func (f *LoopNodeFactory) Description() string {
	return "Iterates a collection field, executing the downstream subgraph once per element, bounded by max_iterations."
}

// Schema returns the JSON schema for loop node configuration.
func (f *LoopNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"collection": map[string]any{
				"type":        "string",
				"description": "jq expression selecting the list to iterate.",
				"examples":    []string{`.items`, `.order.lines`},
			},
			"max_iterations": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": "Hard bound; a longer collection fails the node.",
			},
			"mode": map[string]any{
				"type": "string",
				"enum": []string{ModeSequential, ModeConcurrent},
			},
			"stop_on_error": map[string]any{
				"type":        "boolean",
				"description": "Abort remaining iterations after a body failure.",
			},
		},
		"required": []string{"collection", "max_iterations"},
	}
}
