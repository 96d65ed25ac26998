package workflow

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/otelhelper"
	"github.com/strandkit/strand/pkg/protocol"
	"github.com/strandkit/strand/pkg/record"
)

// executeNode runs one node behavior with per-node timeout, tracing and the
// retry policy. The first attempt was already recorded by the scheduler
// before dispatch; retries record their own dispatch entries.
func (ex *Executor) executeNode(
	ctx context.Context,
	recorder *record.Recorder,
	ectx protocol.ExecutionContext,
	spec *models.NodeSpec,
	behavior protocol.NodeBehavior,
	input *models.Envelope,
) (*protocol.Result, int, error) {
	maxAttempts := 1
	if spec.Retry != nil && spec.Retry.MaxAttempts > 1 {
		maxAttempts = spec.Retry.MaxAttempts
	}

	var lastErr *models.EngineError

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			recorder.NodeDispatched(ctx, spec.ID, spec.Type, attempt, input)
		}

		result, err := ex.attempt(ctx, ectx, spec, behavior, input, attempt)
		if err == nil {
			return result, attempt, nil
		}

		lastErr = err

		if attempt == maxAttempts || !IsRetryableError(err) {
			break
		}

		backoff := ComputeBackoff(spec.Retry, attempt-1)
		recorder.NodeRetried(ctx, spec.ID, attempt, maxAttempts, backoff, err)

		if waitErr := WaitForBackoff(ctx, backoff); waitErr != nil {
			return nil, attempt, classify(waitErr, ctx, spec.ID)
		}
	}

	if maxAttempts > 1 && IsRetryableError(lastErr) {
		return nil, maxAttempts, models.NewErrorf(models.ErrCodeRetryExhausted,
			"retries exhausted after %d attempts: %s", maxAttempts, lastErr.Message).
			WithNode(spec.ID).WithCause(lastErr)
	}

	return nil, maxAttempts, lastErr
}

// attempt runs a single execution attempt inside its own span and timeout.
// Panicking behaviors fail the node, not the process.
func (ex *Executor) attempt(
	ctx context.Context,
	ectx protocol.ExecutionContext,
	spec *models.NodeSpec,
	behavior protocol.NodeBehavior,
	input *models.Envelope,
	attemptNo int,
) (*protocol.Result, *models.EngineError) {
	nodeCtx := ctx
	cancel := context.CancelFunc(func() {})

	if timeout := ex.nodeTimeout(spec); timeout > 0 {
		nodeCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	spanCtx, span := otelhelper.StartSpan(nodeCtx, ex.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, spec.ID),
		attribute.String(otelhelper.NodeTypeKey, spec.Type),
		attribute.Int(otelhelper.AttemptKey, attemptNo),
	)
	defer span.End()

	result, err := func() (result *protocol.Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recoverToError(r)
			}
		}()

		return behavior.Execute(spanCtx, ectx, input)
	}()
	if err != nil {
		engineErr := classify(err, nodeCtx, spec.ID)
		otelhelper.SetError(span, engineErr)

		return nil, engineErr
	}

	return result, nil
}
