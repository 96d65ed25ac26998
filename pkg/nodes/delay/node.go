// Package delay provides the delay node: propagation along its outgoing
// edges is suspended for a configured duration. The wait is cooperative and
// never blocks unrelated branches; run cancellation cuts it short.
package delay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/protocol"
)

// DelayNode suspends its branch for a fixed duration.
type DelayNode struct {
	id       string
	duration time.Duration
}

// NewDelayNode creates a new delay node from its configuration.
func NewDelayNode(id string, config map[string]any) (*DelayNode, error) {
	raw, ok := config["duration"].(string)
	if !ok || raw == "" {
		return nil, errors.New("missing required field 'duration'")
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	if d <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", d)
	}

	return &DelayNode{id: id, duration: d}, nil
}

// ID returns the node instance ID.
func (n *DelayNode) ID() string {
	return n.id
}

// Type returns the node type tag.
func (n *DelayNode) Type() string {
	return models.NodeTypeDelay
}

// Duration returns the configured wait.
func (n *DelayNode) Duration() time.Duration {
	return n.duration
}

// Execute waits for the configured duration or until the run is cancelled,
// then passes the envelope through unchanged.
func (n *DelayNode) Execute(ctx context.Context, ectx protocol.ExecutionContext, input *models.Envelope) (*protocol.Result, error) {
	timer := time.NewTimer(n.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, models.NewError(models.ErrCodeCancelled, "delay interrupted").
			WithNode(n.id).WithCause(ctx.Err())
	}

	return &protocol.Result{Envelope: input.Next(n.id, nil)}, nil
}
