// Package condition provides the condition node factory for registry integration.
package condition

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// ConditionNodeFactory creates ConditionNode instances.
type ConditionNodeFactory struct{}

// NewConditionNodeFactory creates a new factory instance.
func NewConditionNodeFactory() protocol.NodeFactory {
	return &ConditionNodeFactory{}
}

// Create creates a new ConditionNode instance.
func (f *ConditionNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewConditionNode(id, config)
}

// ID returns the node type tag.
func (f *ConditionNodeFactory) ID() string {
	return models.NodeTypeCondition
}

// Description returns the factory description.
func (f *ConditionNodeFactory) Description() string {
	return "Evaluates a boolean expression and routes the envelope along the true or false edge."
}

// Schema returns the JSON schema for condition node configuration.
func (f *ConditionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Boolean expression evaluated against envelope data.",
				"examples": []string{
					`amount >= 1000`,
					`status == "active" && attempts < 3`,
				},
			},
		},
		"required": []string{"expression"},
	}
}
