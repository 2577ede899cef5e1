package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Histogram buckets, in seconds unless noted. Request latency follows
// the OTel semconv recommendation; the network phases use tighter
// buckets since DNS and TLS normally finish well under a second.
var (
	requestBuckets  = []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10}
	connectBuckets  = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	phaseBuckets    = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	ttfbBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5}
	transferBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// Body size buckets in bytes, 100B to 10MB.
	bodySizeBuckets = []float64{0, 100, 1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024}
)

// metrics holds the metric instruments for HTTP client operations.
type metrics struct {
	requestDuration  metric.Float64Histogram
	requestBodySize  metric.Int64Histogram
	responseBodySize metric.Int64Histogram

	openConnections    metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram

	dnsDuration             metric.Float64Histogram
	tlsDuration             metric.Float64Histogram
	ttfb                    metric.Float64Histogram
	contentTransferDuration metric.Float64Histogram

	activeRequests metric.Int64UpDownCounter
	requestErrors  metric.Int64Counter
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}

	var err error
	seconds := func(name, desc string, buckets []float64) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...),
		)
		return h
	}
	bodySize := func(name, desc string) metric.Int64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Int64Histogram
		h, err = meter.Int64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("By"),
			metric.WithExplicitBucketBoundaries(bodySizeBuckets...),
		)
		return h
	}

	m.requestDuration = seconds("http.client.request.duration",
		"Duration of HTTP client requests in seconds", requestBuckets)
	m.connectionDuration = seconds("http.client.connection.duration",
		"Time to establish HTTP connection in seconds", connectBuckets)
	m.dnsDuration = seconds("http.client.dns.duration",
		"DNS lookup duration in seconds", phaseBuckets)
	m.tlsDuration = seconds("http.client.tls.duration",
		"TLS handshake duration in seconds", phaseBuckets)
	m.ttfb = seconds("http.client.ttfb",
		"Time to first response byte in seconds", ttfbBuckets)
	m.contentTransferDuration = seconds("http.client.content_transfer.duration",
		"Response body download duration in seconds", transferBuckets)

	m.requestBodySize = bodySize("http.client.request.body.size",
		"Size of HTTP client request bodies in bytes")
	m.responseBodySize = bodySize("http.client.response.body.size",
		"Size of HTTP client response bodies in bytes")

	if err == nil {
		m.openConnections, err = meter.Int64UpDownCounter(
			"http.client.open_connections",
			metric.WithDescription("Number of open HTTP client connections"),
			metric.WithUnit("{connection}"),
		)
	}
	if err == nil {
		m.activeRequests, err = meter.Int64UpDownCounter(
			"http.client.active_requests",
			metric.WithDescription("Number of active HTTP client requests"),
			metric.WithUnit("{request}"),
		)
	}
	if err == nil {
		m.requestErrors, err = meter.Int64Counter(
			"http.client.request.error",
			metric.WithDescription("Number of HTTP client request errors"),
			metric.WithUnit("{error}"),
		)
	}

	if err != nil {
		return nil, err
	}
	return m, nil
}

// observeSeconds is the shared recording path for duration histograms.
// Nil receivers and nil instruments are no-ops so a failed metrics init
// never breaks the request path.
func (m *metrics) observeSeconds(
	ctx context.Context,
	hist metric.Float64Histogram,
	duration time.Duration,
	attrs []attribute.KeyValue,
) {
	if m == nil || hist == nil {
		return
	}
	hist.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) observeBytes(
	ctx context.Context,
	hist metric.Int64Histogram,
	size int64,
	attrs []attribute.KeyValue,
) {
	if m == nil || hist == nil {
		return
	}
	hist.Record(ctx, size, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRequestDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	m.observeSeconds(ctx, m.requestDuration, d, attrs)
}

func (m *metrics) recordConnectionDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	m.observeSeconds(ctx, m.connectionDuration, d, attrs)
}

func (m *metrics) recordDNSDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	m.observeSeconds(ctx, m.dnsDuration, d, attrs)
}

func (m *metrics) recordTLSDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	m.observeSeconds(ctx, m.tlsDuration, d, attrs)
}

func (m *metrics) recordTTFB(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	m.observeSeconds(ctx, m.ttfb, d, attrs)
}

func (m *metrics) recordContentTransferDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	m.observeSeconds(ctx, m.contentTransferDuration, d, attrs)
}

func (m *metrics) recordRequestBodySize(ctx context.Context, size int64, attrs []attribute.KeyValue) {
	m.observeBytes(ctx, m.requestBodySize, size, attrs)
}

func (m *metrics) recordResponseBodySize(ctx context.Context, size int64, attrs []attribute.KeyValue) {
	m.observeBytes(ctx, m.responseBodySize, size, attrs)
}

// recordConnectionOpened counts a connection handed to this request.
// net/http exposes no matching close callback, so the counter tracks
// connections acquired rather than a live gauge.
func (m *metrics) recordConnectionOpened(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.openConnections == nil {
		return
	}
	m.openConnections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordError(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil || m.requestErrors == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.String("error.type", errorType))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}
