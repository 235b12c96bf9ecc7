// Package instrumentation records session operation metrics through the
// OpenTelemetry metric API. Exporter pipelines are owned by the embedding
// application; the package only uses the global meter provider.
package instrumentation

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter name for session metrics instrumentation
	meterName = "go-session/session"

	// Metric names following OpenTelemetry semantic conventions
	metricCalls    = "db.client.calls"
	metricDuration = "db.client.operation.duration"

	attrOperation = "db.operation.name"
	attrSystem    = "db.system"
	attrOutcome   = "db.operation.outcome"
)

var (
	meterOnce sync.Once

	callsCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram
)

// logMetricError logs a metric initialization error to stderr. Metrics are
// best effort and must not break the caller.
func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", name, err)
	}
}

func initMeter() {
	meter := otel.Meter(meterName)

	var err error
	callsCounter, err = meter.Int64Counter(
		metricCalls,
		metric.WithDescription("Number of session operations"),
		metric.WithUnit("1"),
	)
	logMetricError(metricCalls, err)

	durationHistogram, err = meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("Duration of session operations"),
		metric.WithUnit("ms"),
	)
	logMetricError(metricDuration, err)
}

// Record emits one operation measurement: a call count and a duration sample,
// tagged with vendor, operation and outcome.
func Record(ctx context.Context, vendor, operation string, duration time.Duration, err error) {
	meterOnce.Do(initMeter)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String(attrSystem, vendor),
		attribute.String(attrOperation, operation),
		attribute.String(attrOutcome, outcome),
	)

	if callsCounter != nil {
		callsCounter.Add(ctx, 1, attrs)
	}
	if durationHistogram != nil {
		durationHistogram.Record(ctx, float64(duration.Nanoseconds())/1e6, attrs)
	}
}
