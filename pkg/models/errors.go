package models

import "fmt"

// Error codes used across the engine.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeEvaluation     = "EVALUATION_ERROR"
	ErrCodeAdapter        = "ADAPTER_ERROR"
	ErrCodeTimeout        = "TIMEOUT_ERROR"
	ErrCodeCancelled      = "CANCELLED"
	ErrCodeRetryExhausted = "RETRY_EXHAUSTED"
	ErrCodeLoopBound      = "LOOP_BOUND_EXCEEDED"
	ErrCodeConflict       = "CONFLICT"
)

// EngineError is the structured error type for all engine operations.
type EngineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	Cause   error  `json:"-"`
}

func (e *EngineError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}

	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new EngineError.
func NewError(code, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// NewErrorf creates a new EngineError with a formatted message.
func NewErrorf(code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches the failing node's ID.
func (e *EngineError) WithNode(nodeID string) *EngineError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches the underlying cause.
func (e *EngineError) WithCause(err error) *EngineError {
	e.Cause = err
	return e
}

// Descriptor converts the error into the form carried by envelopes and
// recorded on NodeState.
func (e *EngineError) Descriptor() *ErrorDescriptor {
	return &ErrorDescriptor{Code: e.Code, Message: e.Message, NodeID: e.NodeID}
}
