// Package record maintains the append-only execution record of a run and
// mirrors every entry to a pluggable sink.
package record

import (
	"context"

	"github.com/strandkit/strand/pkg/events"
)

// Sink receives every record entry in append order. Append is called before
// the corresponding work is dispatched, so a sink that persists entries can
// reconstruct what the engine was about to do at any point.
type Sink interface {
	Append(ctx context.Context, key string, event events.Event) error
	Close() error
}

// topicFor routes run-level events and node-level events to separate topics.
func topicFor(event events.Event) string {
	switch event.GetType() {
	case events.NodeDispatchedEvent, events.NodeSucceededEvent, events.NodeFailedEvent,
		events.NodeSkippedEvent, events.NodeRetriedEvent:
		return events.NodeTopic
	default:
		return events.RunTopic
	}
}
