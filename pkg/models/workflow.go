// Package models defines the core domain models for node-based workflow execution.
package models

import "time"

// WorkflowDefinition is an immutable, versioned description of a workflow
// graph. Once validated it is shared read-only across concurrently executing
// runs; editing a workflow produces a new definition with a new version.
type WorkflowDefinition struct {
	ID          string         `json:"id"          validate:"required"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Version     int            `json:"version"     validate:"gte=0"`
	Nodes       []*NodeSpec    `json:"nodes"       validate:"required,min=1,dive"`
	Edges       []*EdgeSpec    `json:"edges"       validate:"dive"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Description string         `json:"description,omitempty"`
}

// NodeByID returns the node with the given ID.
func (d *WorkflowDefinition) NodeByID(id string) (*NodeSpec, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return nil, false
}

// OutgoingEdges returns all edges whose source is the given node, error
// routes included.
func (d *WorkflowDefinition) OutgoingEdges(nodeID string) []*EdgeSpec {
	var out []*EdgeSpec

	for _, e := range d.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}

	return out
}

// IncomingEdges returns all edges whose target is the given node.
func (d *WorkflowDefinition) IncomingEdges(nodeID string) []*EdgeSpec {
	var in []*EdgeSpec

	for _, e := range d.Edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}

	return in
}

// ErrorRoute returns the designated error-route edge leaving the given node,
// if one exists. The validator guarantees there is at most one.
func (d *WorkflowDefinition) ErrorRoute(nodeID string) (*EdgeSpec, bool) {
	for _, e := range d.Edges {
		if e.Source == nodeID && e.IsErrorRoute {
			return e, true
		}
	}

	return nil, false
}

// TriggerNodes returns every trigger node in the definition.
func (d *WorkflowDefinition) TriggerNodes() []*NodeSpec {
	var triggers []*NodeSpec

	for _, n := range d.Nodes {
		if n.IsTriggerNode() {
			triggers = append(triggers, n)
		}
	}

	return triggers
}
