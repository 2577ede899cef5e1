package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/arclight-labs/tracewrap-go/httpserver"

// component is the name used for environment-based configuration,
// TRACEWRAP_HTTPSERVER_EXCLUDED_URLS.
const component = "httpserver"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerProvider is the OTel tracer provider.
	// If nil, uses otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Propagator is the context propagator.
	// If nil, uses otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator

	// ServiceName labels telemetry from this server.
	ServiceName string

	// ExcludedURLs lists URL patterns (regular expressions) that bypass
	// tracing. When nil, the TRACEWRAP_HTTPSERVER_EXCLUDED_URLS
	// environment variable is consulted.
	ExcludedURLs *instrument.ExcludeList

	// SpanNameFormatter overrides the span name for a request. When it
	// returns "" the route-based default applies.
	SpanNameFormatter func(r *http.Request) string
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerProvider: otel.GetTracerProvider(),
		Propagator:     otel.GetTextMapPropagator(),
	}
}

// Tracing returns middleware that adds OpenTelemetry tracing to requests.
//
// The incoming trace context is extracted from the request headers, and
// a SERVER span wraps the handler. When the router is chi, the span is
// renamed to "{method} {route pattern}" after routing so all requests
// hitting the same route share a name; unrouted requests (404) keep the
// bare "HTTP {method}" name and carry no http.route attribute.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(httpserver.Tracing(httpserver.TracingConfig{
//	    TracerProvider: tp,
//	    ServiceName:    "api-gateway",
//	}))
func Tracing(cfg TracingConfig) Middleware {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ExcludedURLs == nil {
		cfg.ExcludedURLs = instrument.ExcludedURLsFromEnv(component)
	}

	tracer := cfg.TracerProvider.Tracer(scope)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if instrument.IsSuppressed(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.ExcludedURLs.Disabled(requestURL(r)) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := cfg.Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			if span.IsRecording() {
				attrs := []attribute.KeyValue{
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.ServerAddress(r.Host),
				}
				if cfg.ServiceName != "" {
					attrs = append(attrs, semconv.ServiceName(cfg.ServiceName))
				}
				if r.URL.Scheme != "" {
					attrs = append(attrs, semconv.URLScheme(r.URL.Scheme))
				}
				if ua := r.UserAgent(); ua != "" {
					attrs = append(attrs, semconv.UserAgentOriginal(ua))
				}
				if r.RemoteAddr != "" {
					attrs = append(attrs, semconv.ClientAddress(r.RemoteAddr))
				}
				span.SetAttributes(attrs...)
			}

			if requestID := RequestIDFromContext(ctx); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			status := wrapped.Status()
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))

			// The route pattern is only known after routing ran.
			if name := cfg.spanName(r); name != "" {
				span.SetName(name)
			} else if route := routePattern(r); route != "" && status != http.StatusNotFound {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(semconv.HTTPRoute(route))
			}

			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

// spanName runs the configured formatter, if any.
func (cfg TracingConfig) spanName(r *http.Request) string {
	if cfg.SpanNameFormatter == nil {
		return ""
	}
	return cfg.SpanNameFormatter(r)
}

// routePattern returns the matched chi route pattern, or "" when the
// request was not routed by chi.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

// requestURL reconstructs the full URL for exclusion matching.
func requestURL(r *http.Request) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
