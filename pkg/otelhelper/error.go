package otelhelper

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed and records err with optional attributes.
// A cancelled or timed out context is recorded with the attribute
// "automation.error.cancelled" so aborted runs can be told apart from node failures.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		attrs = append(attrs, attribute.Bool("automation.error.cancelled", true))
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
