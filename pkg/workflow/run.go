package workflow

import (
	"context"
	"errors"

	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/record"
)

// ErrRunCancelled is the cancellation cause attached when Cancel is called.
var ErrRunCancelled = errors.New("run cancelled")

// Run is the handle to one in-flight workflow invocation. There is no global
// run registry: whoever started the run owns the handle.
type Run struct {
	id       string
	recorder *record.Recorder
	cancel   context.CancelCauseFunc
	done     chan struct{}

	// set before done is closed, read-only after
	finalStatus models.RunStatus
	finalErr    error
}

// ID returns the execution run ID.
func (r *Run) ID() string {
	return r.id
}

// Wait blocks until the run reaches a terminal status or the given context
// is done, and returns the final record. Waiting with an expired context
// does not cancel the run itself.
func (r *Run) Wait(ctx context.Context) (*models.ExecutionRun, error) {
	select {
	case <-r.done:
		return r.recorder.Snapshot(), r.finalErr
	case <-ctx.Done():
		return r.recorder.Snapshot(), ctx.Err()
	}
}

// Cancel requests cooperative cancellation: no new nodes are dispatched and
// in-flight work, including pending delays, is asked to abort.
func (r *Run) Cancel() {
	r.cancel(ErrRunCancelled)
}

// Done returns a channel closed when the run is terminal.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Snapshot returns the current state of the execution record.
func (r *Run) Snapshot() *models.ExecutionRun {
	return r.recorder.Snapshot()
}

// Status returns the run status at the time of the call.
func (r *Run) Status() models.RunStatus {
	return r.recorder.Snapshot().Status
}

func (r *Run) finish(status models.RunStatus, err error) {
	r.finalStatus = status
	r.finalErr = err
	close(r.done)
}
