// Package output provides the output node factories for registry integration.
package output

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// OutputNodeFactory creates OutputNode instances for one output type tag.
type OutputNodeFactory struct {
	nodeType    string
	description string
}

// Factory constructors, one per built-in output type.

func NewEmailNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{models.NodeTypeEmail, "Sends an email through the injected email adapter."}
}

func NewWebhookOutputNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{models.NodeTypeWebhookOutput, "Posts the envelope to an external webhook through the injected adapter."}
}

func NewDatabaseOutputNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{models.NodeTypeDatabaseOutput, "Writes the envelope to a database through the injected adapter."}
}

func NewFileOutputNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{models.NodeTypeFileOutput, "Writes the envelope to a file through the injected adapter."}
}

func NewSlackNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{models.NodeTypeSlack, "Posts a Slack message through the injected adapter."}
}

// Create creates a new OutputNode instance.
func (f *OutputNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewOutputNode(id, f.nodeType, config)
}

// ID returns the node type tag.
func (f *OutputNodeFactory) ID() string {
	return f.nodeType
}

// Description returns the factory description.
func (f *OutputNodeFactory) Description() string {
	return f.description
}

// Schema returns the JSON schema for output node configuration. Adapter-
// specific fields are free-form; the adapter owns their interpretation.
func (f *OutputNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}
