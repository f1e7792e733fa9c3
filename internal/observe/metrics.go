// Package observe provides application-wide observability primitives for
// Vexo: OpenTelemetry metrics, tracing, and HTTP middleware that ties them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Vexo metrics.
const meterName = "github.com/vexofm/vexo"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthDuration tracks text-to-speech synthesis latency, from request
	// to first audio byte.
	SynthDuration metric.Float64Histogram

	// PlaybackDuration tracks how long a queued utterance spends playing.
	PlaybackDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts TTS backend calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts TTS backend failures by provider.
	ProviderErrors metric.Int64Counter

	// Utterances counts spoken utterances. Use with attribute:
	//   attribute.String("source", ...): "chat", "command", "web", "announcement"
	Utterances metric.Int64Counter

	// QueueDrops counts utterances evicted or rejected by full queues.
	QueueDrops metric.Int64Counter

	// BreakerOpens counts circuit breaker trips by provider.
	BreakerOpens metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of guilds with an attached voice
	// session.
	ActiveSessions metric.Int64UpDownCounter

	// QueueDepth tracks queued utterances across all guilds.
	QueueDepth metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// network TTS synthesis and short voice playback.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthDuration, err = m.Float64Histogram("vexo.tts.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("vexo.playback.duration",
		metric.WithDescription("Duration of utterance playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("vexo.provider.requests",
		metric.WithDescription("Total TTS backend requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("vexo.provider.errors",
		metric.WithDescription("Total TTS backend errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("vexo.utterances",
		metric.WithDescription("Total spoken utterances by source."),
	); err != nil {
		return nil, err
	}
	if met.QueueDrops, err = m.Int64Counter("vexo.queue.drops",
		metric.WithDescription("Total utterances dropped by full queues."),
	); err != nil {
		return nil, err
	}
	if met.BreakerOpens, err = m.Int64Counter("vexo.breaker.opens",
		metric.WithDescription("Total circuit breaker trips by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("vexo.active_sessions",
		metric.WithDescription("Number of guilds with an attached voice session."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("vexo.queue.depth",
		metric.WithDescription("Queued utterances across all guilds."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("vexo.http.request.duration",
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records one TTS backend request with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records one TTS backend failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordUtterance records one spoken utterance by source.
func (m *Metrics) RecordUtterance(ctx context.Context, source string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordQueueDrops records n utterances lost to a full queue.
func (m *Metrics) RecordQueueDrops(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.QueueDrops.Add(ctx, int64(n))
}

// RecordBreakerOpen records one circuit breaker trip for a provider.
func (m *Metrics) RecordBreakerOpen(ctx context.Context, provider string) {
	m.BreakerOpens.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordSynthesis records one synthesis latency sample for a provider.
func (m *Metrics) RecordSynthesis(ctx context.Context, provider string, seconds float64) {
	m.SynthDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
