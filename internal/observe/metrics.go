// Package observe provides application-wide observability primitives for
// Soffio: OpenTelemetry metrics, tracing, structured logging helpers, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Soffio metrics.
const meterName = "github.com/MrWong99/soffio"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TickDuration tracks the per-frame pipeline computation time
	// (capture + extraction + classification).
	TickDuration metric.Float64Histogram

	// CalibrationDuration tracks how long the calibration phase took from
	// source acquisition to arming.
	CalibrationDuration metric.Float64Histogram

	// FramesProcessed counts processed frames. Use with attribute:
	//   attribute.String("state", ...)
	FramesProcessed metric.Int64Counter

	// Triggers counts breath detections. At most one per session.
	Triggers metric.Int64Counter

	// AcquireFailures counts failed frame-source acquisitions.
	AcquireFailures metric.Int64Counter

	// ActiveSessions tracks the number of live detection sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// tickBuckets defines histogram bucket boundaries (in seconds) sized for
// per-frame work, which is microseconds on healthy hosts.
var tickBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
}

// calibrationBuckets covers the calibration phase, nominally 1.2 s but
// stretched on throttled hosts.
var calibrationBuckets = []float64{
	0.5, 1, 1.2, 1.5, 2, 3, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("soffio.tick.duration",
		metric.WithDescription("Per-frame pipeline computation time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CalibrationDuration, err = m.Float64Histogram("soffio.calibration.duration",
		metric.WithDescription("Wall-clock time from acquisition to armed."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(calibrationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesProcessed, err = m.Int64Counter("soffio.frames.processed",
		metric.WithDescription("Total processed frames by detector state."),
	); err != nil {
		return nil, err
	}
	if met.Triggers, err = m.Int64Counter("soffio.triggers",
		metric.WithDescription("Total breath detections."),
	); err != nil {
		return nil, err
	}
	if met.AcquireFailures, err = m.Int64Counter("soffio.acquire.failures",
		metric.WithDescription("Total failed frame-source acquisitions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("soffio.active_sessions",
		metric.WithDescription("Number of live detection sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("soffio.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one processed frame with its state and computation
// time.
func (m *Metrics) RecordFrame(ctx context.Context, state string, tick time.Duration) {
	m.FramesProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", state)),
	)
	m.TickDuration.Record(ctx, tick.Seconds())
}
