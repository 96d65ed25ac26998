// Package aggregate provides the aggregate node factory for registry integration.
package aggregate

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// AggregateNodeFactory creates AggregateNode instances.
type AggregateNodeFactory struct{}

// NewAggregateNodeFactory creates a new factory instance.
func NewAggregateNodeFactory() protocol.NodeFactory {
	return &AggregateNodeFactory{}
}

// Create creates a new AggregateNode instance.
func (f *AggregateNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewAggregateNode(id, config)
}

// ID returns the node type tag.
func (f *AggregateNodeFactory) ID() string {
	return models.NodeTypeAggregate
}

// Description returns the factory description.
func (f *AggregateNodeFactory) Description() string {
	return "Waits for all declared predecessors and merges their outputs into one envelope, with an optional jq reshape."
}

// Schema returns the JSON schema for aggregate node configuration.
func (f *AggregateNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Optional jq expression applied to the merged data.",
			},
		},
	}
}
