// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/strandkit/strand/pkg/models"
)

// Node creates a NodeSpec with default values that can be overridden.
func Node(overrides ...func(*models.NodeSpec)) *models.NodeSpec {
	node := &models.NodeSpec{
		ID:     uuid.New().String(),
		Type:   models.NodeTypeTransform,
		Name:   "Test Node",
		Config: map[string]any{"expression": "."},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.ID = id
	}
}

// WithType sets the node type.
func WithType(nodeType string) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Type = nodeType
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Config = config
	}
}

// WithTimeout sets the per-node execution timeout.
func WithTimeout(timeout string) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Timeout = timeout
	}
}

// WithRetry sets the node retry policy.
func WithRetry(policy *models.RetryPolicy) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Retry = policy
	}
}

// TriggerNode configures the node as a webhook trigger.
func TriggerNode() func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Type = models.NodeTypeTriggerWebhook
		n.Config = map[string]any{"path": "/hooks/test", "method": "POST"}
	}
}

// ConditionNode configures the node as a condition with the given expression.
func ConditionNode(expr string) func(*models.NodeSpec) {
	return func(n *models.NodeSpec) {
		n.Type = models.NodeTypeCondition
		n.Config = map[string]any{"expression": expr}
	}
}

// Edge creates an EdgeSpec between two nodes.
func Edge(source, target string, overrides ...func(*models.EdgeSpec)) *models.EdgeSpec {
	edge := &models.EdgeSpec{
		ID:     uuid.New().String(),
		Source: source,
		Target: target,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithLabel sets the edge label.
func WithLabel(label string) func(*models.EdgeSpec) {
	return func(e *models.EdgeSpec) {
		e.Label = label
	}
}

// WithCondition sets the edge condition expression.
func WithCondition(condition string) func(*models.EdgeSpec) {
	return func(e *models.EdgeSpec) {
		e.Condition = condition
	}
}

// WithTransform sets the edge transform expression.
func WithTransform(transform string) func(*models.EdgeSpec) {
	return func(e *models.EdgeSpec) {
		e.Transform = transform
	}
}

// AsErrorRoute flags the edge as its source's error route.
func AsErrorRoute() func(*models.EdgeSpec) {
	return func(e *models.EdgeSpec) {
		e.IsErrorRoute = true
	}
}

// Workflow creates a WorkflowDefinition with default values that can be
// overridden.
func Workflow(overrides ...func(*models.WorkflowDefinition)) *models.WorkflowDefinition {
	def := &models.WorkflowDefinition{
		ID:        uuid.New().String(),
		Name:      "Test Workflow",
		Version:   1,
		Nodes:     []*models.NodeSpec{},
		Edges:     []*models.EdgeSpec{},
		Variables: map[string]any{},
		CreatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(def)
	}

	return def
}

// WithNodes sets the workflow nodes.
func WithNodes(nodes ...*models.NodeSpec) func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		d.Nodes = nodes
	}
}

// WithEdges sets the workflow edges.
func WithEdges(edges ...*models.EdgeSpec) func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		d.Edges = edges
	}
}

// WithVariables sets the workflow variables.
func WithVariables(variables map[string]any) func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		d.Variables = variables
	}
}

// LinearWorkflow builds a trigger -> transform -> file_output chain, the
// smallest definition that passes validation.
func LinearWorkflow() *models.WorkflowDefinition {
	trigger := Node(WithID("trigger"), TriggerNode())
	transform := Node(WithID("transform"))
	output := Node(WithID("output"), WithType(models.NodeTypeFileOutput),
		WithConfig(map[string]any{"path": "/tmp/out.json"}))

	return Workflow(
		WithNodes(trigger, transform, output),
		WithEdges(Edge("trigger", "transform"), Edge("transform", "output")),
	)
}
