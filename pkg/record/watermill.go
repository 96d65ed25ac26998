package record

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/strandkit/strand/pkg/events"
)

// WatermillSink publishes record entries through a watermill publisher, one
// message per entry, keyed by run ID.
type WatermillSink struct {
	publisher message.Publisher
}

// NewWatermillSink creates a sink over any watermill publisher.
func NewWatermillSink(publisher message.Publisher) *WatermillSink {
	return &WatermillSink{publisher: publisher}
}

func (s *WatermillSink) Append(_ context.Context, key string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return s.publisher.Publish(topicFor(event), msg)
}

func (s *WatermillSink) Close() error {
	return s.publisher.Close()
}
