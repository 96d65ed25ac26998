package protocol

import (
	"log/slog"

	"github.com/strandkit/strand/pkg/expression"
)

// ExecutionContext carries the run-scoped collaborators a node behavior may
// use while executing. It is read-only from the behavior's point of view.
type ExecutionContext struct {
	RunID      string
	WorkflowID string
	Variables  map[string]any
	Logger     *slog.Logger
	Evaluator  *expression.Evaluator
	Adapters   AdapterRegistry
}

// WithLogger returns a copy of the context carrying the given logger.
func (c ExecutionContext) WithLogger(logger *slog.Logger) ExecutionContext {
	c.Logger = logger
	return c
}
