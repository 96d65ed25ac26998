// Package transform provides the transform node factory for registry integration.
package transform

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// TransformNodeFactory creates TransformNode instances.
type TransformNodeFactory struct{}

// NewTransformNodeFactory creates a new factory instance.
func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}

// Create creates a new TransformNode instance.
func (f *TransformNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewTransformNode(id, config)
}

// ID returns the node type tag.
func (f *TransformNodeFactory) ID() string {
	return models.NodeTypeTransform
}

// Description returns the factory description.
func (f *TransformNodeFactory) Description() string {
	return "Reshapes envelope data with a jq expression. The expression must produce an object."
}

// Schema returns the JSON schema for transform node configuration.
func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "jq expression applied to the envelope data.",
				"examples": []string{
					`{name: .customer.name, email: .customer.email}`,
					`{total: (.items | length)}`,
				},
			},
		},
		"required": []string{"expression"},
	}
}
