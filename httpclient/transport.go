package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// Compile-time interface check.
var _ http.RoundTripper = (*otelTransport)(nil)

// otelTransport wraps an http.RoundTripper with OpenTelemetry instrumentation.
type otelTransport struct {
	base http.RoundTripper
	cfg  *config
}

func newOtelTransport(base http.RoundTripper, cfg *config) *otelTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &otelTransport{base: base, cfg: cfg}
}

// RoundTrip implements http.RoundTripper. Suppressed or excluded
// requests are delegated to the base transport untouched.
func (t *otelTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if instrument.IsSuppressed(ctx) {
		return t.base.RoundTrip(req)
	}
	if req.URL != nil && t.cfg.ExcludedURLs.Disabled(req.URL.String()) {
		return t.base.RoundTrip(req)
	}

	start := time.Now()

	ctx, span := t.cfg.Tracer.Start(ctx, t.spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	if span.IsRecording() {
		span.SetAttributes(t.requestAttributes(req)...)
	}

	// Lower instrumentation layers (and nested clients sharing this
	// context) must not open a second span for the same request.
	ctx = instrument.WithSuppressed(ctx)

	baseAttrs := t.cfg.baseAttributes()
	t.cfg.Metrics.recordActiveRequestStart(ctx, baseAttrs)
	defer t.cfg.Metrics.recordActiveRequestEnd(ctx, baseAttrs)

	if req.ContentLength > 0 {
		t.cfg.Metrics.recordRequestBodySize(ctx, req.ContentLength, baseAttrs)
	}

	var nt *networkTrace
	if t.cfg.EnableNetworkTrace {
		nt = &networkTrace{}
		ctx = httptrace.WithClientTrace(ctx, createClientTrace(nt))
	}

	// Clone before mutating headers: the caller may retry with the
	// same request value.
	req = req.Clone(ctx)
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	t.cfg.Propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	t.runRequestHook(span, req)

	resp, err := t.base.RoundTrip(req)

	duration := time.Since(start)

	if nt != nil {
		nt.addTraceEvents(span)
		nt.recordTimingMetrics(ctx, t.cfg.Metrics, baseAttrs)
	}

	if err != nil {
		errorType := classifyError(err)
		setSpanError(span, err, errorType)
		t.cfg.Metrics.recordError(ctx, errorType, baseAttrs)
		t.cfg.Metrics.recordRequestDuration(ctx, duration, t.errorAttributes(req, errorType))
		return nil, err
	}

	if span.IsRecording() {
		span.SetAttributes(t.responseAttributes(resp)...)
	}

	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		span.SetAttributes(attribute.String("error.type", errorTypeFromStatusCode(resp.StatusCode)))
	}

	if resp.ContentLength > 0 {
		t.cfg.Metrics.recordResponseBodySize(ctx, resp.ContentLength, baseAttrs)
	}
	if resp.Body != nil && resp.Body != http.NoBody {
		resp.Body = &trackedBody{
			ReadCloser: resp.Body,
			ctx:        req.Context(),
			metrics:    t.cfg.Metrics,
			attrs:      baseAttrs,
			start:      time.Now(),
		}
	}

	t.cfg.Metrics.recordRequestDuration(ctx, duration, t.metricsAttributes(req, resp))

	t.runResponseHook(span, resp)

	return resp, nil
}

// trackedBody measures response body download time, from the headers
// arriving until the body is drained or closed, whichever comes first.
type trackedBody struct {
	io.ReadCloser

	ctx     context.Context
	metrics *metrics
	attrs   []attribute.KeyValue
	start   time.Time
	once    sync.Once
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == io.EOF {
		b.finish()
	}
	return n, err
}

func (b *trackedBody) Close() error {
	b.finish()
	return b.ReadCloser.Close()
}

func (b *trackedBody) finish() {
	b.once.Do(func() {
		b.metrics.recordContentTransferDuration(b.ctx, time.Since(b.start), b.attrs)
	})
}

// spanName resolves the span name via the configured formatter, falling
// back to "HTTP {method}".
func (t *otelTransport) spanName(req *http.Request) string {
	if t.cfg.SpanNameFormatter != nil {
		if name := t.cfg.SpanNameFormatter(req); name != "" {
			return name
		}
	}
	return "HTTP " + req.Method
}

// runRequestHook invokes the request hook, recovering panics so a
// faulty hook never fails the request.
func (t *otelTransport) runRequestHook(span trace.Span, req *http.Request) {
	if t.cfg.RequestHook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.cfg.Logger.Warn().
				Interface("panic", r).
				Msg("request hook panicked, continuing request")
		}
	}()
	t.cfg.RequestHook(span, req)
}

func (t *otelTransport) runResponseHook(span trace.Span, resp *http.Response) {
	if t.cfg.ResponseHook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.cfg.Logger.Warn().
				Interface("panic", r).
				Msg("response hook panicked, continuing request")
		}
	}()
	t.cfg.ResponseHook(span, resp)
}

// requestAttributes returns span attributes for the request.
func (t *otelTransport) requestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 10)

	attrs = append(attrs, t.cfg.baseAttributes()...)
	attrs = append(attrs, attribute.String("http.method", req.Method))

	if req.URL != nil {
		attrs = append(attrs, attribute.String("http.url", req.URL.String()))
		if req.URL.Scheme != "" {
			attrs = append(attrs, attribute.String("url.scheme", req.URL.Scheme))
		}

		host := req.URL.Hostname()
		if host != "" {
			attrs = append(attrs, attribute.String("net.peer.name", host))
		}

		if port := peerPort(req.URL.Port(), req.URL.Scheme); port != 0 {
			attrs = append(attrs, attribute.Int("net.peer.port", port))
		}
	}

	if req.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.request.body.size", req.ContentLength))
	}

	if ua := req.UserAgent(); ua != "" {
		attrs = append(attrs, attribute.String("user_agent.original", ua))
	}

	return attrs
}

// responseAttributes returns span attributes for the response.
func (t *otelTransport) responseAttributes(resp *http.Response) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)

	attrs = append(attrs, attribute.Int("http.status_code", resp.StatusCode))

	if resp.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.response.body.size", resp.ContentLength))
	}

	if v := protocolVersion(resp.Proto); v != "" {
		attrs = append(attrs, attribute.String("network.protocol.version", v))
	}

	return attrs
}

// metricsAttributes returns attributes for duration metrics.
func (t *otelTransport) metricsAttributes(req *http.Request, resp *http.Response) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)

	attrs = append(attrs, t.cfg.baseAttributes()...)
	attrs = append(attrs, attribute.String("http.method", req.Method))

	if req.URL != nil {
		if host := req.URL.Hostname(); host != "" {
			attrs = append(attrs, attribute.String("net.peer.name", host))
		}
		if port := peerPort(req.URL.Port(), req.URL.Scheme); port != 0 {
			attrs = append(attrs, attribute.Int("net.peer.port", port))
		}
	}

	if resp != nil {
		attrs = append(attrs, attribute.Int("http.status_code", resp.StatusCode))
		if resp.StatusCode >= 400 {
			attrs = append(attrs, attribute.String("error.type", strconv.Itoa(resp.StatusCode)))
		}
	}

	return attrs
}

// errorAttributes returns attributes for error metrics.
func (t *otelTransport) errorAttributes(req *http.Request, errorType string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)

	attrs = append(attrs, t.cfg.baseAttributes()...)
	attrs = append(attrs, attribute.String("http.method", req.Method))

	if req.URL != nil {
		if host := req.URL.Hostname(); host != "" {
			attrs = append(attrs, attribute.String("net.peer.name", host))
		}
	}

	if errorType != "" {
		attrs = append(attrs, attribute.String("error.type", errorType))
	}

	return attrs
}

// peerPort resolves the effective port: explicit port first, then the
// scheme default.
func peerPort(port, scheme string) int {
	if port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
		return 0
	}
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}

// protocolVersion converts "HTTP/1.1" to "1.1" and "HTTP/2.0" to "2".
func protocolVersion(proto string) string {
	if len(proto) > 5 && proto[:5] == "HTTP/" {
		proto = proto[5:]
	}
	if proto == "2.0" {
		return "2"
	}
	return proto
}
