// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing, trace-aware slog loggers and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// for Prometheus scraping by [InitProvider]. A package-level [DefaultMetrics]
// instance is provided for convenience; tests should use [NewMetrics] with
// their own [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/translateblitz"

// Metrics holds all metric instruments for the application.
type Metrics struct {
	// GradingDuration tracks grading latency. Attributes: kind, grader.
	GradingDuration metric.Float64Histogram

	// GradingRequests counts grading calls. Attributes: kind, outcome
	// ("ok", "cached", "fallback", "error").
	GradingRequests metric.Int64Counter

	// GradingFallbacks counts answers produced by a non-remote grader.
	// Attributes: kind, reason (error class or "mock").
	GradingFallbacks metric.Int64Counter

	// GradingCacheHits counts grades answered from a session cache.
	// Attribute: kind.
	GradingCacheHits metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes of grading
	// backends. Attributes: backend, from, to.
	BreakerTransitions metric.Int64Counter

	// STTDuration tracks server-side transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// WordOutcomes counts resolved words. Attributes: difficulty, outcome
	// ("correct", "translation-failed", ...).
	WordOutcomes metric.Int64Counter

	// SpeechErrors counts speech-capture capability errors. Attribute: reason.
	SpeechErrors metric.Int64Counter

	// ActiveSessions tracks the number of live game sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time.
	// Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets (seconds) span a cached lookup up to the 30s AI deadline.
var latencyBuckets = []float64{
	0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GradingDuration, err = m.Float64Histogram("translateblitz.grading.duration",
		metric.WithDescription("Latency of grading calls by kind and grader."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("translateblitz.stt.duration",
		metric.WithDescription("Latency of server-side speech transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("translateblitz.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.GradingRequests, err = m.Int64Counter("translateblitz.grading.requests",
		metric.WithDescription("Total grading calls by kind and outcome."),
	); err != nil {
		return nil, err
	}
	if met.GradingFallbacks, err = m.Int64Counter("translateblitz.grading.fallbacks",
		metric.WithDescription("Grades produced by the heuristic or mock grader."),
	); err != nil {
		return nil, err
	}
	if met.GradingCacheHits, err = m.Int64Counter("translateblitz.grading.cache_hits",
		metric.WithDescription("Grades answered from the per-session cache."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("translateblitz.grading.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by grading backend."),
	); err != nil {
		return nil, err
	}
	if met.WordOutcomes, err = m.Int64Counter("translateblitz.words.resolved",
		metric.WithDescription("Resolved words by difficulty and outcome."),
	); err != nil {
		return nil, err
	}
	if met.SpeechErrors, err = m.Int64Counter("translateblitz.speech.errors",
		metric.WithDescription("Speech capture capability errors by reason."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("translateblitz.active_sessions",
		metric.WithDescription("Number of live game sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("translateblitz.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, created on
// first use from [otel.GetMeterProvider]. Call it only after [InitProvider]
// if the Prometheus exporter should see the instruments.
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGrade records one grading call: its latency and its outcome.
func (m *Metrics) RecordGrade(ctx context.Context, kind, grader, outcome string, d time.Duration) {
	m.GradingDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(Attr("kind", kind), Attr("grader", grader)),
	)
	m.GradingRequests.Add(ctx, 1,
		metric.WithAttributes(Attr("kind", kind), Attr("outcome", outcome)),
	)
}

// RecordFallback records a grade answered by a non-remote grader.
func (m *Metrics) RecordFallback(ctx context.Context, kind, reason string) {
	m.GradingFallbacks.Add(ctx, 1,
		metric.WithAttributes(Attr("kind", kind), Attr("reason", reason)),
	)
}

// RecordCacheHit records a grade served from cache.
func (m *Metrics) RecordCacheHit(ctx context.Context, kind string) {
	m.GradingCacheHits.Add(ctx, 1, metric.WithAttributes(Attr("kind", kind)))
}

// RecordBreakerTransition records a grading backend's breaker moving from
// one state to another.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, backend, from, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(Attr("backend", backend), Attr("from", from), Attr("to", to)),
	)
}

// RecordWordOutcome records the resolution of one word.
func (m *Metrics) RecordWordOutcome(ctx context.Context, difficulty, outcome string) {
	m.WordOutcomes.Add(ctx, 1,
		metric.WithAttributes(Attr("difficulty", difficulty), Attr("outcome", outcome)),
	)
}

// RecordSpeechError records a speech capability error.
func (m *Metrics) RecordSpeechError(ctx context.Context, reason string) {
	m.SpeechErrors.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}
