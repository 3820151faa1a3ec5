package common

import (
	"context"
	"time"

	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/alchemorsel/planner/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeOK is the metrics outcome of a successful operation
const OutcomeOK = "OK"

// Instrumentation wraps service operations in a span and a latency sample
type Instrumentation struct {
	tracer  trace.Tracer
	metrics outbound.EngineMetrics
}

// NewInstrumentation uses the global tracer provider under name. A nil
// metrics sink records nothing.
func NewInstrumentation(name string, metrics outbound.EngineMetrics) Instrumentation {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return Instrumentation{
		tracer:  otel.Tracer(name),
		metrics: metrics,
	}
}

// Metrics returns the sink operations report to
func (i Instrumentation) Metrics() outbound.EngineMetrics {
	return i.metrics
}

// Start opens a span for operation. The returned func must be called with
// the operation's final error.
func (i Instrumentation) Start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := i.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		outcome := OutcomeOK
		if err != nil {
			outcome = string(errors.GetCode(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		i.metrics.ObserveOperation(operation, outcome, time.Since(started))
	}
}

// NopMetrics discards every observation
type NopMetrics struct{}

func (NopMetrics) ObserveOperation(string, string, time.Duration) {}
func (NopMetrics) ObserveAggregation(int, int, int)                {}
func (NopMetrics) ObserveConfidence(string, float64)               {}
