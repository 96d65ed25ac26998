// Package errorhandler provides the error handler node factory for registry integration.
package errorhandler

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// ErrorHandlerNodeFactory creates ErrorHandlerNode instances.
type ErrorHandlerNodeFactory struct{}

// NewErrorHandlerNodeFactory creates a new factory instance.
func NewErrorHandlerNodeFactory() protocol.NodeFactory {
	return &ErrorHandlerNodeFactory{}
}

// Create creates a new ErrorHandlerNode instance.
func (f *ErrorHandlerNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.NodeBehavior, error) {
	return NewErrorHandlerNode(id, config)
}

// ID returns the node type tag.
func (f *ErrorHandlerNodeFactory) ID() string {
	return models.NodeTypeErrorHandler
}

// Description returns the factory description.
func (f *ErrorHandlerNodeFactory) Description() string {
	return "Receives failure envelopes routed along error-route edges and surfaces the error descriptor for downstream handling."
}

// Schema returns the JSON schema for error handler node configuration.
func (f *ErrorHandlerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}
