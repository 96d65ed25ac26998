// Package validation checks workflow definitions before the engine will run
// them. Every defect found is reported as a distinct violation; a definition
// with any violation is rejected outright, never partially accepted.
package validation

import (
	"fmt"

	"github.com/strandkit/strand/pkg/models"
)

// Violation codes. Each structural or semantic defect has its own code so
// callers can act on specific failures.
const (
	CodeDuplicateNodeID     = "duplicate_node_id"
	CodeUnknownNodeType     = "unknown_node_type"
	CodeDanglingEdge        = "dangling_edge"
	CodeStructuralCycle     = "structural_cycle"
	CodeIsolatedNode        = "isolated_node"
	CodeUnreachableNode     = "unreachable_node"
	CodeMissingTrigger      = "missing_trigger"
	CodeTriggerHasInput     = "trigger_has_input"
	CodeNoIncomingEdge      = "no_incoming_edge"
	CodeInvalidConfig       = "invalid_config"
	CodeMalformedExpression = "malformed_expression"
	CodeMultipleErrorRoutes = "multiple_error_routes"
	CodeBadConditionEdges   = "bad_condition_edges"
	CodeInvalidDuration     = "invalid_duration"
	CodeOutputHasOutput     = "output_has_outgoing_edge"
	CodeErrorHandlerInput   = "error_handler_normal_input"
	CodeInvalidDefinition   = "invalid_definition"
)

// Violation is one specific, named reason a definition failed validation.
type Violation struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s: %s", v.Code, v.Path, v.Message)
}

// Result aggregates every violation found. Validation never fails fast: the
// caller always sees the full list.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// OK reports whether the definition may be executed.
func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

// Add appends a violation.
func (r *Result) Add(code, path, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		Code:    code,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// Merge combines another result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}

	r.Violations = append(r.Violations, other.Violations...)
}

// Err converts the result into an EngineError carrying every violation, or
// nil when the definition is valid.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}

	msg := r.Violations[0].Message
	if len(r.Violations) > 1 {
		msg = fmt.Sprintf("definition has %d violations", len(r.Violations))
	}

	return models.NewError(models.ErrCodeValidation, msg)
}
