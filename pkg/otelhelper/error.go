package otelhelper

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strandkit/strand/pkg/models"
)

// SetError records the failure on the span. Engine errors contribute their
// code and failing node as attributes so traces can be filtered by failure
// kind.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	var engineErr *models.EngineError
	if errors.As(err, &engineErr) {
		attrs = append(attrs, attribute.String(ErrorCodeKey, engineErr.Code))
		if engineErr.NodeID != "" {
			attrs = append(attrs, attribute.String(NodeIDKey, engineErr.NodeID))
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}
