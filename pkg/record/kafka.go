package record

import (
	"context"
	"encoding/json"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/strandkit/strand/pkg/events"
)

// KafkaSink publishes record entries to Kafka, keyed by run ID so entries of
// one run land on one partition in append order. Trace context is carried in
// message headers.
type KafkaSink struct {
	logger *slog.Logger
	writer *kafkago.Writer
}

// NewKafkaSink creates a sink writing to the given brokers.
func NewKafkaSink(logger *slog.Logger, brokers []string) *KafkaSink {
	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Balancer: &kafkago.Hash{},
	}

	return &KafkaSink{
		logger: logger.With("module", "kafka_sink"),
		writer: writer,
	}
}

func (s *KafkaSink) Append(ctx context.Context, key string, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	propagator := otel.GetTextMapPropagator()
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)

	headers := make([]kafkago.Header, 0, len(carrier)+2)
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	headers = append(headers, kafkago.Header{
		Key:   events.EventMetadataKey,
		Value: []byte(key),
	}, kafkago.Header{
		Key:   events.EventTypeMetadataKey,
		Value: []byte(event.GetType()),
	})

	// The entry must still land if the run's context was cancelled.
	appendCtx := context.WithoutCancel(ctx)

	return s.writer.WriteMessages(appendCtx, kafkago.Message{
		Topic:   topicFor(event),
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
