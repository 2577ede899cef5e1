package httpclient

import (
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/arclight-labs/tracewrap-go/httpclient"

// component is the name used for environment-based configuration,
// TRACEWRAP_HTTPCLIENT_EXCLUDED_URLS.
const component = "httpclient"

// RequestHook runs just before the request is sent. The span is the
// client span for this request; hooks may add attributes or events.
type RequestHook func(span trace.Span, req *http.Request)

// ResponseHook runs after a response is received, before the span ends.
type ResponseHook func(span trace.Span, resp *http.Response)

// SpanNameFormatter derives the span name from the outgoing request.
type SpanNameFormatter func(req *http.Request) string

// config holds the configuration for the HTTP client instrumentation.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// MeterProvider is the meter provider for request metrics.
	MeterProvider metric.MeterProvider

	// Metrics holds the metric instruments. Nil disables metrics.
	Metrics *metrics

	// Propagator injects trace context into outgoing request headers.
	// Defaults to W3C TraceContext plus Baggage.
	Propagator propagation.TextMapPropagator

	// ServiceName is added as the peer.service attribute when set.
	ServiceName string

	// SpanNameFormatter overrides the default "HTTP {method}" span name.
	// A formatter returning "" falls back to the default.
	SpanNameFormatter SpanNameFormatter

	// RequestHook and ResponseHook run around each request. A panicking
	// hook is recovered and logged; it never fails the request.
	RequestHook  RequestHook
	ResponseHook ResponseHook

	// ExcludedURLs lists URL patterns that bypass instrumentation. The
	// environment list from TRACEWRAP_HTTPCLIENT_EXCLUDED_URLS is used
	// when no explicit list is set.
	ExcludedURLs *instrument.ExcludeList

	// EnableNetworkTrace collects DNS, connect, and TLS timing via
	// httptrace and records them as span events.
	EnableNetworkTrace bool

	// Logger receives warnings from instrumentation itself, such as a
	// panicking hook. Defaults to a no-op logger.
	Logger zerolog.Logger
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		Logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)

	if cfg.ExcludedURLs == nil {
		cfg.ExcludedURLs = instrument.ExcludedURLsFromEnv(component)
	}

	if m, err := newMetrics(cfg.MeterProvider.Meter(scope)); err == nil {
		cfg.Metrics = m
	} else {
		cfg.Logger.Warn().Err(err).Msg("failed to create http client metrics, continuing without")
	}

	return cfg
}

// baseAttributes returns attributes present on every span and metric.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	if cfg.ServiceName == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("peer.service", cfg.ServiceName)}
}

// Option configures the HTTP client instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider for request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithPropagator sets the propagator used to inject trace context into
// outgoing requests.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.Propagator = p
	}
}

// WithServiceName sets the logical name of the remote service, recorded
// as the peer.service attribute.
func WithServiceName(name string) Option {
	return func(cfg *config) {
		cfg.ServiceName = name
	}
}

// WithSpanNameFormatter sets a custom span name formatter.
func WithSpanNameFormatter(fn SpanNameFormatter) Option {
	return func(cfg *config) {
		cfg.SpanNameFormatter = fn
	}
}

// WithRequestHook registers a hook invoked before each request is sent.
func WithRequestHook(hook RequestHook) Option {
	return func(cfg *config) {
		cfg.RequestHook = hook
	}
}

// WithResponseHook registers a hook invoked after a response is received.
func WithResponseHook(hook ResponseHook) Option {
	return func(cfg *config) {
		cfg.ResponseHook = hook
	}
}

// WithExcludedURLs skips instrumentation for requests whose full URL
// matches any of the given regular expressions. Overrides the
// environment-provided list.
func WithExcludedURLs(patterns ...string) Option {
	return func(cfg *config) {
		cfg.ExcludedURLs = instrument.NewExcludeList(patterns)
	}
}

// WithNetworkTrace enables DNS, connect, and TLS timing collection.
func WithNetworkTrace() Option {
	return func(cfg *config) {
		cfg.EnableNetworkTrace = true
	}
}

// WithLogger sets the logger for instrumentation warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = logger
	}
}
