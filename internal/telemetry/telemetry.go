package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry holds the meter provider and the upload pipeline's instruments.
type Telemetry struct {
	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	meter         metric.Meter
	exporter      *prometheus.Exporter

	// Business metrics
	uploadsTotal   metric.Int64Counter
	uploadsActive  metric.Int64UpDownCounter
	uploadDuration metric.Float64Histogram
	uploadBytes    metric.Int64Counter
	batchesTotal   metric.Int64Counter
	pickedTotal    metric.Int64Counter

	// Storage metrics
	dbOperationsTotal   metric.Int64Counter
	dbOperationDuration metric.Float64Histogram

	// System health
	systemErrors metric.Int64Counter
}

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Exporter       string // "prometheus" or "otlp"
	OTLPEndpoint   string
}

// New creates a new telemetry instance. With Enabled=false every method is a
// no-op, so callers never need to nil-check.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{}, nil
	}

	t := &Telemetry{}

	var reader sdkmetric.Reader

	switch cfg.Exporter {
	case "otlp":
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}

		reader = sdkmetric.NewPeriodicReader(exporter)
	default:
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		t.exporter = exporter
		reader = exporter
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(meterProvider)

	t.meterProvider = meterProvider
	t.tracer = otel.Tracer(cfg.ServiceName)
	t.meter = otel.Meter(cfg.ServiceName)

	if err := t.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		return nil, fmt.Errorf("failed to start runtime metrics: %w", err)
	}

	return t, nil
}

// Tracer returns the OpenTelemetry tracer.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// RecordUpload records the outcome of one transfer call.
func (t *Telemetry) RecordUpload(ctx context.Context, status string, duration time.Duration, sizeBytes int) {
	attrs := metric.WithAttributes(attribute.String("status", status))

	if t.uploadsTotal != nil {
		t.uploadsTotal.Add(ctx, 1, attrs)
	}

	if t.uploadDuration != nil {
		t.uploadDuration.Record(ctx, duration.Seconds(), attrs)
	}

	if t.uploadBytes != nil && status == "success" {
		t.uploadBytes.Add(ctx, int64(sizeBytes))
	}
}

// IncrementActiveUploads increments the in-flight upload counter.
func (t *Telemetry) IncrementActiveUploads(ctx context.Context) {
	if t.uploadsActive != nil {
		t.uploadsActive.Add(ctx, 1)
	}
}

// DecrementActiveUploads decrements the in-flight upload counter.
func (t *Telemetry) DecrementActiveUploads(ctx context.Context) {
	if t.uploadsActive != nil {
		t.uploadsActive.Add(ctx, -1)
	}
}

// RecordBatch records a completed upload batch of the given size.
func (t *Telemetry) RecordBatch(ctx context.Context, size int) {
	if t.batchesTotal != nil {
		t.batchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("batch_size", size)))
	}
}

// RecordPicked records how many files a pick queued.
func (t *Telemetry) RecordPicked(ctx context.Context, count int) {
	if t.pickedTotal != nil {
		t.pickedTotal.Add(ctx, int64(count))
	}
}

// RecordSystemError records an error in a named component.
func (t *Telemetry) RecordSystemError(ctx context.Context, component, errorType string) {
	if t.systemErrors != nil {
		t.systemErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("component", component),
				attribute.String("error_type", errorType),
			),
		)
	}
}

// Handler returns the HTTP handler for the metrics endpoint. It serves 404
// when telemetry is disabled or exporting over OTLP.
func (t *Telemetry) Handler() http.Handler {
	if t.exporter == nil {
		return http.NotFoundHandler()
	}

	return promhttp.Handler()
}

// Shutdown gracefully shuts down the telemetry system.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		return mp.Shutdown(ctx)
	}

	return nil
}

func (t *Telemetry) initializeMetrics() error {
	var err error

	t.uploadsTotal, err = t.meter.Int64Counter(
		"uploads_total",
		metric.WithDescription("Total number of attachment transfer calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create uploads_total counter: %w", err)
	}

	t.uploadsActive, err = t.meter.Int64UpDownCounter(
		"uploads_active",
		metric.WithDescription("Number of transfers currently in flight"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create uploads_active counter: %w", err)
	}

	t.uploadDuration, err = t.meter.Float64Histogram(
		"upload_duration_seconds",
		metric.WithDescription("Transfer call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload_duration histogram: %w", err)
	}

	t.uploadBytes, err = t.meter.Int64Counter(
		"upload_bytes_total",
		metric.WithDescription("Total bytes successfully delivered"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload_bytes counter: %w", err)
	}

	t.batchesTotal, err = t.meter.Int64Counter(
		"upload_batches_total",
		metric.WithDescription("Total number of upload batches run"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload_batches counter: %w", err)
	}

	t.pickedTotal, err = t.meter.Int64Counter(
		"files_picked_total",
		metric.WithDescription("Total number of files queued by the selector"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create files_picked counter: %w", err)
	}

	t.dbOperationsTotal, err = t.meter.Int64Counter(
		"db_operations_total",
		metric.WithDescription("Total number of history database operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create db_operations_total counter: %w", err)
	}

	t.dbOperationDuration, err = t.meter.Float64Histogram(
		"db_operation_duration_seconds",
		metric.WithDescription("History database operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create db_operation_duration histogram: %w", err)
	}

	t.systemErrors, err = t.meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create system_errors counter: %w", err)
	}

	return nil
}
