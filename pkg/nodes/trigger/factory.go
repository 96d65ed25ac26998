// Package trigger provides the trigger node factories for registry integration.
package trigger

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// TriggerNodeFactory creates TriggerNode instances for one trigger type tag.
type TriggerNodeFactory struct {
	nodeType    string
	description string
	schema      map[string]any
}

// NewWebhookTriggerNodeFactory creates the factory for webhook triggers.
func NewWebhookTriggerNodeFactory() protocol.NodeFactory {
	return &TriggerNodeFactory{
		nodeType:    models.NodeTypeTriggerWebhook,
		description: "Originates a run from an incoming webhook payload.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":   map[string]any{"type": "string"},
				"method": map[string]any{"type": "string"},
			},
		},
	}
}

// NewDatabasePollTriggerNodeFactory creates the factory for database poll triggers.
func NewDatabasePollTriggerNodeFactory() protocol.NodeFactory {
	return &TriggerNodeFactory{
		nodeType:    models.NodeTypeTriggerDatabasePoll,
		description: "Originates a run from rows discovered by a periodic database poll.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":    map[string]any{"type": "string"},
				"interval": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}
}

// NewAPIPollTriggerNodeFactory creates the factory for api poll triggers.
func NewAPIPollTriggerNodeFactory() protocol.NodeFactory {
	return &TriggerNodeFactory{
		nodeType:    models.NodeTypeTriggerAPIPoll,
		description: "Originates a run from responses of a periodically polled API endpoint.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url":      map[string]any{"type": "string"},
				"interval": map[string]any{"type": "string"},
			},
			"required": []string{"url"},
		},
	}
}

// NewFileWatchTriggerNodeFactory creates the factory for file watch triggers.
func NewFileWatchTriggerNodeFactory() protocol.NodeFactory {
	return &TriggerNodeFactory{
		nodeType:    models.NodeTypeTriggerFileWatch,
		description: "Originates a run when a watched path changes.",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
	}
}

// Create creates a new TriggerNode instance.
func (f *TriggerNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewTriggerNode(id, f.nodeType, config)
}

// ID returns the node type tag.
func (f *TriggerNodeFactory) ID() string {
	return f.nodeType
}

// Description returns the factory description.
func (f *TriggerNodeFactory) Description() string {
	return f.description
}

// Schema returns the JSON schema for this trigger type's configuration.
func (f *TriggerNodeFactory) Schema() map[string]any {
	return f.schema
}
