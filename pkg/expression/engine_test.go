package expression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandkit/strand/pkg/models"
)

func TestEvaluator_Condition(t *testing.T) {
	ev := NewEvaluator()
	ctx := context.Background()

	ok, err := ev.Condition(ctx, "amount >= 1000", map[string]any{"amount": 1500})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Condition(ctx, `status == "active" && retries < 3`,
		map[string]any{"status": "active", "retries": 5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluator_ConditionNonBooleanFails(t *testing.T) {
	ev := NewEvaluator()

	_, err := ev.Condition(context.Background(), "amount + 1", map[string]any{"amount": 5})

	require.Error(t, err)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeEvaluation, engineErr.Code)
}

func TestEvaluator_ConditionMissingFieldFails(t *testing.T) {
	ev := NewEvaluator()

	// Unknown identifiers are an evaluation failure, never an implicit false.
	_, err := ev.Condition(context.Background(), "missing > 10", map[string]any{"amount": 5})

	require.Error(t, err)
}

func TestEvaluator_Transform(t *testing.T) {
	ev := NewEvaluator()

	out, err := ev.Transform(context.Background(),
		`{total: (.amount * .quantity), sku: .sku}`,
		map[string]any{"amount": 5, "quantity": 3, "sku": "A-1"})

	require.NoError(t, err)
	assert.EqualValues(t, 15, out["total"])
	assert.Equal(t, "A-1", out["sku"])
}

func TestEvaluator_TransformNonObjectFails(t *testing.T) {
	ev := NewEvaluator()

	_, err := ev.Transform(context.Background(), ".amount", map[string]any{"amount": 5})

	require.Error(t, err)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeEvaluation, engineErr.Code)
}

func TestEvaluator_TransformRuntimeError(t *testing.T) {
	ev := NewEvaluator()

	_, err := ev.Transform(context.Background(),
		`{bad: (.amount + "x")}`, map[string]any{"amount": 5})

	require.Error(t, err)

	var engineErr *models.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrCodeEvaluation, engineErr.Code)
}

func TestEvaluator_Select(t *testing.T) {
	ev := NewEvaluator()

	value, err := ev.Select(context.Background(), ".order.lines",
		map[string]any{"order": map[string]any{"lines": []any{"a", "b"}}})

	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, value)
}

func TestEvaluator_CheckSyntax(t *testing.T) {
	ev := NewEvaluator()

	assert.NoError(t, ev.CheckSyntax(LanguageExpr, "amount >= 1000"))
	assert.NoError(t, ev.CheckSyntax(LanguageJQ, `{value: .amount}`))

	assert.Error(t, ev.CheckSyntax(LanguageExpr, "amount >=="))
	assert.Error(t, ev.CheckSyntax(LanguageJQ, ".items | ]["))
	assert.Error(t, ev.CheckSyntax("lisp", "(+ 1 2)"))
}

func TestJQEngine_BlocksEnvironment(t *testing.T) {
	engine := NewJQEngine()

	out, err := engine.Evaluate(context.Background(), "$ENV | length", map[string]any{})

	require.NoError(t, err)
	assert.EqualValues(t, 0, out)
}

func TestJQEngine_MultipleOutputsCollected(t *testing.T) {
	engine := NewJQEngine()

	out, err := engine.Evaluate(context.Background(), ".items[]",
		map[string]any{"items": []any{1, 2}})

	require.NoError(t, err)
	assert.Len(t, out, 2)
}
