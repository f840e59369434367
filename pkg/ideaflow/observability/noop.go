package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that discards all measurements.
// Used when metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordNodeExecution(context.Context, string, time.Duration, error)  {}
func (NoopMetrics) RecordRun(context.Context, bool, time.Duration, int)                {}
func (NoopMetrics) RecordCheckpoint(context.Context, string, int64)                    {}
func (NoopMetrics) RecordBreakerTransition(context.Context, string, string, string)    {}

// NoopSpanManager is a SpanManager that creates non-recording spans.
// Used when tracing is disabled.
type NoopSpanManager struct {
	tracer trace.Tracer
}

// NewNoopSpanManager creates a SpanManager whose spans record nothing.
func NewNoopSpanManager() SpanManager {
	return &NoopSpanManager{
		tracer: tracenoop.NewTracerProvider().Tracer("ideaflow"),
	}
}

func (m *NoopSpanManager) StartRunSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "ideaflow.run")
}

func (m *NoopSpanManager) StartNodeSpan(ctx context.Context, node string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "ideaflow.node")
}

func (m *NoopSpanManager) EndSpanWithError(span trace.Span, err error) {
	span.End()
}

func (m *NoopSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
}
