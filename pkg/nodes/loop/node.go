// Package loop provides the bounded iteration node. A loop node extracts a
// collection from its input envelope and executes its designated downstream
// subgraph once per element; the scheduler drives the iterations and
// aggregates their results in input order.
package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// Iteration modes.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// LoopNode holds the iteration configuration. Its body subgraph execution is
// owned by the scheduler; the behavior only extracts the collection.
type LoopNode struct {
	id            string
	collection    string
	maxIterations int
	mode          string
	stopOnError   bool
}

// NewLoopNode creates a new loop node from its configuration.
func NewLoopNode(id string, config map[string]any) (*LoopNode, error) {
	collection, ok := config["collection"].(string)
	if !ok || collection == "" {
		return nil, errors.New("missing required field 'collection'")
	}

	maxIter, err := intField(config, "max_iterations")
	if err != nil {
		return nil, err
	}

	if maxIter <= 0 {
		return nil, fmt.Errorf("max_iterations must be positive, got %d", maxIter)
	}

	mode := ModeSequential
	if raw, ok := config["mode"].(string); ok && raw != "" {
		if raw != ModeSequential && raw != ModeConcurrent {
			return nil, fmt.Errorf("unknown mode %q", raw)
		}

		mode = raw
	}

	stopOnError, _ := config["stop_on_error"].(bool)

	return &LoopNode{
		id:            id,
		collection:    collection,
		maxIterations: maxIter,
		mode:          mode,
		stopOnError:   stopOnError,
	}, nil
}

// ID returns the node instance ID.
func (n *LoopNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *LoopNode) Type() string {
	return models.NodeTypeLoop
}

// MaxIterations returns the configured iteration bound.
func (n *LoopNode) MaxIterations() int {
	return n.maxIterations
}

// Concurrent reports whether iterations may run in parallel.
func (n *LoopNode) Concurrent() bool {
	return n.mode == ModeConcurrent
}

// StopOnError reports whether a failed iteration aborts the remaining ones.
func (n *LoopNode) StopOnError() bool {
	return n.stopOnError
}

// Items extracts the iteration collection from the envelope data. Exceeding
// the configured bound is a node failure, not silent truncation.
func (n *LoopNode) Items(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) ([]any, error) {
	value, err := ectx.Evaluator.Select(ctx, n.collection, input.Data)
	if err != nil {
		return nil, err
	}

	items, ok := value.([]any)
	if !ok {
		return nil, models.NewErrorf(models.ErrCodeEvaluation,
			"collection %q produced %T, want list", n.collection, value).WithNode(n.id)
	}

	if len(items) > n.maxIterations {
		return nil, models.NewErrorf(models.ErrCodeLoopBound,
			"collection has %d elements, bound is %d", len(items), n.maxIterations).WithNode(n.id)
	}

	return items, nil
}

// Execute is never dispatched directly; iteration is scheduler-driven.
func (n *LoopNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	return nil, models.NewError(models.ErrCodeConflict, "loop nodes are driven by the scheduler").WithNode(n.id)
}

func intField(config map[string]any, key string) (int, error) {
	switch v := config[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON numbers decode as float64.
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("missing required field '%s'", key)
	default:
		return 0, fmt.Errorf("field '%s' must be a number, got %T", key, v)
	}
}
