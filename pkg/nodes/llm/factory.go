// Package llm provides the llm node factory for registry integration.
package llm

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// LLMNodeFactory creates LLMNode instances.
type LLMNodeFactory struct{}

// NewLLMNodeFactory creates a new factory instance.
func NewLLMNodeFactory() protocol.NodeFactory {
	return &LLMNodeFactory{}
}

// Create creates a new LLMNode instance.
func (f *LLMNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewLLMNode(id, config)
}

// ID returns the node type tag.
func (f *LLMNodeFactory) ID() string {
	return models.NodeTypeLLM
}

// Description returns the factory description.
func (f *LLMNodeFactory) Description() string {
	return "Invokes a language model through the injected adapter and merges its output into the envelope."
}

// Schema returns the JSON schema for llm node configuration.
func (f *LLMNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt template passed to the adapter.",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier, interpreted by the adapter.",
			},
		},
		"required":             []string{"prompt"},
		"additionalProperties": true,
	}
}
