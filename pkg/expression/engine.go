// Package expression evaluates condition and transform expressions against
// envelope data. Two engines back the restricted expression surface: expr
// for boolean conditions and comparisons, jq for field selection and object
// construction. Both are pure, deterministic and bounded; neither can reach
// the environment or perform I/O.
package expression

import (
	"context"

	"github.com/strandkit/strand/pkg/models"
)

// Languages understood by the engine set.
const (
	LanguageExpr = "expr"
	LanguageJQ   = "jq"
)

// Engine evaluates expressions of a single language.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
	// CheckSyntax compiles the expression without evaluating it. Used by the
	// validator so malformed expressions are rejected before a run starts.
	CheckSyntax(expression string) error
}

// Evaluator bundles the engines and routes by language.
type Evaluator struct {
	expr *ExprEngine
	jq   *JQEngine
}

// NewEvaluator creates an Evaluator with fresh engine caches.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		expr: NewExprEngine(),
		jq:   NewJQEngine(),
	}
}

// Condition evaluates a boolean condition expression against envelope data.
// A non-boolean result is an evaluation error: condition nodes must not
// guess truthiness.
func (ev *Evaluator) Condition(ctx context.Context, expression string, data map[string]any) (bool, error) {
	out, err := ev.expr.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}

	b, ok := out.(bool)
	if !ok {
		return false, models.NewErrorf(models.ErrCodeEvaluation,
			"condition %q evaluated to %T, want bool", expression, out)
	}

	return b, nil
}

// Transform evaluates a jq transform expression and returns the reshaped
// envelope data. Transforms must produce an object.
func (ev *Evaluator) Transform(ctx context.Context, expression string, data map[string]any) (map[string]any, error) {
	out, err := ev.jq.Evaluate(ctx, expression, data)
	if err != nil {
		return nil, err
	}

	obj, ok := out.(map[string]any)
	if !ok {
		return nil, models.NewErrorf(models.ErrCodeEvaluation,
			"transform %q produced %T, want object", expression, out)
	}

	return obj, nil
}

// Select evaluates a jq selection expression and returns the raw value, used
// by loop nodes to extract the iteration collection.
func (ev *Evaluator) Select(ctx context.Context, expression string, data map[string]any) (any, error) {
	return ev.jq.Evaluate(ctx, expression, data)
}

// CheckSyntax verifies an expression compiles in the given language.
func (ev *Evaluator) CheckSyntax(language, expression string) error {
	switch language {
	case LanguageJQ:
		return ev.jq.CheckSyntax(expression)
	case LanguageExpr:
		return ev.expr.CheckSyntax(expression)
	default:
		return models.NewErrorf(models.ErrCodeValidation, "unknown expression language %q", language)
	}
}
