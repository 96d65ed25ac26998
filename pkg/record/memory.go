package record

import (
	"context"
	"sync"

	"github.com/strandkit/strand/pkg/events"
)

// MemorySink keeps record entries in memory, in append order.
type MemorySink struct {
	mu      sync.Mutex
	entries []events.Event
	closed  bool
}

// NewMemorySink creates an in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores the event. Appending to a closed sink is a no-op.
func (s *MemorySink) Append(_ context.Context, _ string, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.entries = append(s.entries, event)

	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Entries returns a copy of the recorded events in append order.
func (s *MemorySink) Entries() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]events.Event, len(s.entries))
	copy(out, s.entries)

	return out
}

// EntriesOfType returns recorded events with the given type, in append order.
func (s *MemorySink) EntriesOfType(eventType events.EventType) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []events.Event
	for _, e := range s.entries {
		if e.GetType() == eventType {
			out = append(out, e)
		}
	}

	return out
}
