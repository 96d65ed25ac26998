// Package registry maps node type tags to their execution behaviors. The set
// of node types is closed: behaviors are registered at startup, not loaded
// at runtime.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/strandkit/strand/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds the node factories keyed by type tag.
type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:        logger,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode registers a node factory under its type tag. Registering the
// same tag twice replaces the previous factory.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
}

// CreateNode validates the configuration against the type's schema and
// builds the behavior instance.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.NodeBehavior, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	if err := r.ValidateConfig(nodeType, config); err != nil {
		return nil, err
	}

	return factory.Create(ctx, id, config)
}

// ValidateConfig checks a configuration map against the node type's JSON
// schema without instantiating the behavior.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return fmt.Errorf("node type %q not registered", nodeType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation for %q: %w", nodeType, err)
	}

	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}

		return fmt.Errorf("invalid config for %q: %s", nodeType, strings.Join(issues, "; "))
	}

	return nil
}

// IsRegistered reports whether a node type tag has a factory.
func (r *Registry) IsRegistered(nodeType string) bool {
	_, ok := r.nodeFactories[nodeType]
	return ok
}

// NodeTypes returns the registered type tags.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.nodeFactories))
	for t := range r.nodeFactories {
		types = append(types, t)
	}

	return types
}
