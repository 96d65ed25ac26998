package protocol

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
)

// Adapter performs the external I/O behind an output or llm node: sending
// the email, posting the webhook, invoking the model. Adapters own their
// network behavior and idempotency; the engine treats every non-nil error
// uniformly as a node failure.
type Adapter interface {
	Execute(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error)
}

// AdapterRegistry resolves the adapter for a node type tag. Injected by the
// caller; the engine ships no production adapters.
type AdapterRegistry interface {
	Adapter(nodeType string) (Adapter, bool)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error)

func (f AdapterFunc) Execute(ctx context.Context, config map[string]any, input *models.Envelope) (map[string]any, error) {
	return f(ctx, config, input)
}

// AdapterMap is a minimal AdapterRegistry backed by a map keyed on node type.
type AdapterMap map[string]Adapter

func (m AdapterMap) Adapter(nodeType string) (Adapter, bool) {
	a, ok := m[nodeType]
	return a, ok
}
