// Package filter provides the filter node factory for registry integration.
package filter

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// FilterNodeFactory creates FilterNode instances.
type FilterNodeFactory struct{}

// NewFilterNodeFactory creates a new factory instance.
func NewFilterNodeFactory() protocol.NodeFactory {
	return &FilterNodeFactory{}
}

// Create creates a new FilterNode instance.
func (f *FilterNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewFilterNode(id, config)
}

// ID returns the node type tag.
func (f *FilterNodeFactory) ID() string {
	return models.NodeTypeFilter
}

// Description returns the factory description.
func (f *FilterNodeFactory) Description() string {
	return "Passes the envelope through when the predicate holds; otherwise drops the branch."
}

// Schema returns the JSON schema for filter node configuration.
func (f *FilterNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"predicate": map[string]any{
				"type":        "string",
				"description": "Boolean expression evaluated against envelope data.",
				"examples": []string{
					`amount >= 1000`,
					`customer.tier == "gold"`,
				},
			},
		},
		"required": []string{"predicate"},
	}
}
