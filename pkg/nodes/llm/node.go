// Package llm provides the language-model processor node. Prompt rendering
// and model invocation live in the injected adapter; the node contributes
// only the configuration contract and failure semantics.
package llm

import (
	"context"
	"errors"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// LLMNode invokes the llm adapter with its prompt configuration.
type LLMNode struct {
	id     string
	config map[string]any
}

// NewLLMNode creates a new llm node from its configuration.
func NewLLMNode(id string, config map[string]any) (*LLMNode, error) {
	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	return &LLMNode{id: id, config: config}, nil
}

// ID returns the node instance ID.
func (n *LLMNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *LLMNode) Type() string {
	return models.NodeTypeLLM
}

// Execute delegates to the llm adapter; its output becomes the envelope data.
func (n *LLMNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	if ectx.Adapters == nil {
		return nil, models.NewErrorf(models.ErrCodeAdapter, "no adapter registry configured").WithNode(n.id)
	}

	adapter, ok := ectx.Adapters.Adapter(models.NodeTypeLLM)
	if !ok {
		return nil, models.NewErrorf(models.ErrCodeAdapter, "no adapter registered for %q", models.NodeTypeLLM).WithNode(n.id)
	}

	out, err := adapter.Execute(ctx, n.config, input)
	if err != nil {
		return nil, models.NewErrorf(models.ErrCodeAdapter, "llm adapter failed: %s", err.Error()).
			WithNode(n.id).WithCause(err)
	}

	return &protocol.Result{Envelope: input.Next(n.id, out)}, nil
}
