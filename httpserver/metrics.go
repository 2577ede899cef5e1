package httpserver

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records server-side HTTP metrics through OpenTelemetry.
type Metrics struct {
	serviceName string
	skipPaths   map[string]struct{}

	requestDuration metric.Float64Histogram
	requestSize     metric.Int64Histogram
	responseSize    metric.Int64Histogram
	activeRequests  metric.Int64UpDownCounter
	requestTotal    metric.Int64Counter
	responseStatus  metric.Int64Counter
}

// MetricsConfig configures the metrics middleware.
type MetricsConfig struct {
	// MeterProvider is the OTel meter provider.
	// If nil, uses otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// ServiceName labels telemetry from this server.
	ServiceName string

	// SkipPaths are paths that should not be recorded.
	SkipPaths []string

	// Buckets for the request duration histogram, in seconds.
	DurationBuckets []float64
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterProvider: otel.GetMeterProvider(),
		DurationBuckets: []float64{
			0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
		},
	}
}

// NewMetrics builds the instruments for the metrics middleware.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	meter := cfg.MeterProvider.Meter(
		"github.com/arclight-labs/tracewrap-go/httpserver",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	m := &Metrics{
		serviceName: cfg.ServiceName,
		skipPaths:   make(map[string]struct{}, len(cfg.SkipPaths)),
	}
	for _, path := range cfg.SkipPaths {
		m.skipPaths[path] = struct{}{}
	}

	// Instrument creation only fails on malformed names or units, so the
	// first error wins and the rest are skipped.
	var err error
	instrument := func(build func() error) {
		if err == nil {
			err = build()
		}
	}

	instrument(func() (e error) {
		m.requestDuration, e = meter.Float64Histogram(
			"http.server.request.duration",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(cfg.DurationBuckets...),
		)
		return e
	})
	instrument(func() (e error) {
		m.requestSize, e = meter.Int64Histogram(
			"http.server.request.size",
			metric.WithDescription("Size of HTTP request bodies in bytes"),
			metric.WithUnit("By"),
		)
		return e
	})
	instrument(func() (e error) {
		m.responseSize, e = meter.Int64Histogram(
			"http.server.response.size",
			metric.WithDescription("Size of HTTP response bodies in bytes"),
			metric.WithUnit("By"),
		)
		return e
	})
	instrument(func() (e error) {
		m.activeRequests, e = meter.Int64UpDownCounter(
			"http.server.active_requests",
			metric.WithDescription("Number of active HTTP requests"),
		)
		return e
	})
	instrument(func() (e error) {
		m.requestTotal, e = meter.Int64Counter(
			"http.server.request.total",
			metric.WithDescription("Total number of HTTP requests"),
		)
		return e
	})
	instrument(func() (e error) {
		m.responseStatus, e = meter.Int64Counter(
			"http.server.response.status",
			metric.WithDescription("HTTP response status code distribution"),
		)
		return e
	})

	if err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware returns middleware recording, per request: a latency
// histogram, request and response size histograms, an in-flight gauge,
// and total and per-status counters. Paths in SkipPaths are passed
// through unrecorded.
//
//	metrics, _ := httpserver.NewMetrics(httpserver.DefaultMetricsConfig())
//	handler := metrics.Middleware()(myHandler)
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.skipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ctx := r.Context()

			attrs := metric.WithAttributes(
				attribute.String("service.name", m.serviceName),
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			)

			m.activeRequests.Add(ctx, 1, attrs)
			defer m.activeRequests.Add(ctx, -1, attrs)

			if r.ContentLength > 0 {
				m.requestSize.Record(ctx, r.ContentLength, attrs)
			}

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			statusAttrs := metric.WithAttributes(
				attribute.String("service.name", m.serviceName),
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.Int("http.response.status_code", wrapped.Status()),
			)

			m.requestDuration.Record(ctx, time.Since(start).Seconds(), statusAttrs)
			m.responseSize.Record(ctx, int64(wrapped.BytesWritten()), statusAttrs)
			m.requestTotal.Add(ctx, 1, statusAttrs)
			m.responseStatus.Add(ctx, 1, statusAttrs)
		})
	}
}
