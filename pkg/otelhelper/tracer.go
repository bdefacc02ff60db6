// Package otelhelper provides distributed tracing for workflow runs.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	WorkflowIDKey   = "automation.workflow.id"
	WorkflowNameKey = "automation.workflow.name"
	ExecutionIDKey  = "automation.execution.id"
	NodeIDKey       = "automation.node.id"
	NodeKindKey     = "automation.node.kind"
	ServiceKey      = "automation.node.service"
	ActionKey       = "automation.node.action"
	VisitedNodesKey = "automation.run.visited_nodes"
)

type tracerConfig struct {
	exporter    sdktrace.SpanExporter
	sampleRatio float64
}

// Option configures NewTracer.
type Option func(*tracerConfig)

// WithExporter replaces the OTLP/HTTP exporter.
func WithExporter(exporter sdktrace.SpanExporter) Option {
	return func(c *tracerConfig) {
		c.exporter = exporter
	}
}

// WithSampleRatio samples root runs at ratio; child spans follow their parent.
func WithSampleRatio(ratio float64) Option {
	return func(c *tracerConfig) {
		c.sampleRatio = ratio
	}
}

// NewTracer installs a global tracer provider for serviceName and returns its
// tracer together with a shutdown function that flushes pending spans.
// Without WithExporter spans go to OTLP/HTTP, configured by the
// OTEL_EXPORTER_OTLP_* environment variables.
//
// nolint:ireturn
func NewTracer(ctx context.Context, serviceName string, opts ...Option) (trace.Tracer, func(context.Context) error, error) {
	config := tracerConfig{sampleRatio: 1}

	for _, opt := range opts {
		opt(&config)
	}

	provider, err := newTracerProvider(ctx, serviceName, config)
	if err != nil {
		return nil, nil, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// nolint:ireturn,spancheck
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string, config tracerConfig) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter := config.exporter
	if exporter == nil {
		exporter, err = otlptracehttp.New(ctx)
		if err != nil {
			return nil, err
		}
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.sampleRatio))),
	), nil
}
