package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

func withAttrs(attrs []attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}

// Span attributes stay bounded: operation names, status values, and component
// names only. Attachment ids, file names, and error messages are high
// cardinality and belong in logs (correlated via trace_id), not in metrics
// or span attributes. Full error text goes into the span status.

// InstrumentedFunc represents a function that can be instrumented.
type InstrumentedFunc func(ctx context.Context) error

// InstrumentOperation wraps a generic operation in a span with bounded
// attributes. With telemetry disabled it just runs the function.
func (t *Telemetry) InstrumentOperation(ctx context.Context, operationName, component string, fn InstrumentedFunc) error {
	if t == nil || t.tracer == nil {
		return fn(ctx)
	}

	start := time.Now()
	ctx, span := t.tracer.Start(ctx, operationName)

	defer span.End()

	span.SetAttributes(
		attribute.String("component", component),
		attribute.String("operation", operationName),
	)

	err := fn(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"

		span.SetAttributes(attribute.Bool("error", true))
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.Float64("duration_seconds", duration.Seconds()),
	)

	return err
}

// InstrumentDBOperation instruments history database operations.
func (t *Telemetry) InstrumentDBOperation(ctx context.Context, operation string, fn InstrumentedFunc) error {
	start := time.Now()

	err := t.InstrumentOperation(ctx, operation, "database", fn)

	if t != nil && t.dbOperationsTotal != nil {
		status := "success"
		if err != nil {
			status = "error"
		}

		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.String("status", status),
		}

		t.dbOperationsTotal.Add(ctx, 1, withAttrs(attrs))
		t.dbOperationDuration.Record(ctx, time.Since(start).Seconds(), withAttrs(attrs))
	}

	return err
}
