package expression

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"
	"github.com/strandkit/strand/pkg/models"
)

// JQEngine evaluates jq expressions for field path selection and object
// construction over envelope data. Compiled code objects are cached and
// reused across goroutines. Environment access is sandboxed off.
type JQEngine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewJQEngine creates a new jq engine with an empty code cache.
func NewJQEngine() *JQEngine {
	return &JQEngine{cache: make(map[string]*gojq.Code)}
}

// Name returns the engine identifier.
func (e *JQEngine) Name() string {
	return LanguageJQ
}

// Evaluate compiles (or retrieves from cache) a jq expression and runs it
// against the envelope data. jq can produce multiple outputs; a single
// output is returned directly, multiple outputs are collected into a slice.
func (e *JQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, models.NewError(models.ErrCodeEvaluation, "empty jq expression")
	}

	code, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	input := normalizeForJQ(data)

	iter := code.RunWithContext(ctx, input)

	var results []any

	for {
		val, ok := iter.Next()
		if !ok {
			break
		}

		if evalErr, isErr := val.(error); isErr {
			return nil, models.NewErrorf(models.ErrCodeEvaluation,
				"jq evaluation failed for %q: %s", expression, evalErr.Error()).WithCause(evalErr)
		}

		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// CheckSyntax parses and compiles the expression without running it.
func (e *JQEngine) CheckSyntax(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

func (e *JQEngine) getOrCompile(expression string) (*gojq.Code, error) {
	e.mu.RLock()
	if code, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if code, ok := e.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, models.NewErrorf(models.ErrCodeEvaluation,
			"jq parse error in %q: %s", expression, err.Error()).WithCause(err)
	}

	code, err := gojq.Compile(query,
		// Block $ENV and env access from user expressions.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, models.NewErrorf(models.ErrCodeEvaluation,
			"jq compile error in %q: %s", expression, err.Error()).WithCause(err)
	}

	e.cache[expression] = code

	return code, nil
}

// normalizeForJQ converts Go native numeric types to jq-compatible ones;
// gojq only understands ints and float64.
func normalizeForJQ(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeForJQ(item)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeForJQ(item)
		}

		return out
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
