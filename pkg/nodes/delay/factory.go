// Package delay provides the delay node factory for registry integration.
package delay

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// DelayNodeFactory creates DelayNode instances.
type DelayNodeFactory struct{}

// NewDelayNodeFactory creates a new factory instance.
func NewDelayNodeFactory() protocol.NodeFactory {
	return &DelayNodeFactory{}
}

// Create creates a new DelayNode instance.
func (f *DelayNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewDelayNode(id, config)
}

// ID returns the node type tag.
func (f *DelayNodeFactory) ID() string {
	return models.NodeTypeDelay
}

// Description returns the factory description.
func (f *DelayNodeFactory) Description() string {
	return "Suspends propagation along its outgoing edges for a configured duration."
}

// Schema returns the JSON schema for delay node configuration.
func (f *DelayNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        "string",
				"description": "Go duration string, e.g. \"30s\" or \"5m\".",
			},
		},
		"required": []string{"duration"},
	}
}
