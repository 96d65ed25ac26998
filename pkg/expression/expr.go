package expression

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/strandkit/strand/pkg/models"
)

// ExprEngine evaluates expr-lang expressions: comparisons, boolean logic,
// nil coalescing and optional chaining over envelope data. Compiled programs
// are cached and reused across goroutines.
type ExprEngine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprEngine creates a new expr engine with an empty program cache.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: make(map[string]*vm.Program)}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return LanguageExpr
}

// Evaluate compiles (or retrieves from cache) an expression and runs it with
// the envelope data as its environment: every top-level field is addressable
// as a variable.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, models.NewError(models.ErrCodeEvaluation, "empty expr expression")
	}

	if err := ctx.Err(); err != nil {
		return nil, models.NewError(models.ErrCodeCancelled, "evaluation cancelled").WithCause(err)
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, models.NewErrorf(models.ErrCodeEvaluation,
			"expr evaluation failed for %q: %s", expression, err.Error()).WithCause(err)
	}

	return out, nil
}

// CheckSyntax compiles the expression without running it.
func (e *ExprEngine) CheckSyntax(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

func (e *ExprEngine) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, models.NewErrorf(models.ErrCodeEvaluation,
			"expr compile error in %q: %s", expression, err.Error()).WithCause(err)
	}

	e.cache[expression] = prg

	return prg, nil
}
