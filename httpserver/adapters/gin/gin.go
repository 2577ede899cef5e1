// Package gin provides tracing middleware for the Gin framework.
//
// Unlike the generic net/http middleware, this adapter uses Gin's own
// routing information, so spans are named after the matched route
// pattern ("GET /orders/:id").
//
// # Quick start
//
//	r := gin.New()
//	r.Use(gintrace.RequestID())
//	r.Use(gintrace.Recovery(logger))
//	r.Use(gintrace.Tracing(httpserver.DefaultTracingConfig()))
package gin

import (
	"net/http"

	ginlib "github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/httpserver"
	"github.com/arclight-labs/tracewrap-go/instrument"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/arclight-labs/tracewrap-go/httpserver/adapters/gin"

// Tracing returns Gin middleware for OpenTelemetry tracing.
//
// Each request produces one SERVER span named after the matched route
// ("GET /orders/:id"); unrouted requests keep the "HTTP {method}" name
// and no http.route attribute.
func Tracing(cfg httpserver.TracingConfig) ginlib.HandlerFunc {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ExcludedURLs == nil {
		cfg.ExcludedURLs = instrument.ExcludedURLsFromEnv("httpserver")
	}

	tracer := cfg.TracerProvider.Tracer(scope)

	return func(c *ginlib.Context) {
		r := c.Request

		if instrument.IsSuppressed(r.Context()) || cfg.ExcludedURLs.Disabled(r.URL.String()) {
			c.Next()
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
				semconv.ClientAddress(c.ClientIP()),
			}
			if cfg.ServiceName != "" {
				attrs = append(attrs, semconv.ServiceName(cfg.ServiceName))
			}
			if ua := r.UserAgent(); ua != "" {
				attrs = append(attrs, semconv.UserAgentOriginal(ua))
			}
			span.SetAttributes(attrs...)
		}

		c.Request = r.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		route := c.FullPath()
		if route != "" && status != http.StatusNotFound {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(semconv.HTTPRoute(route))
		}

		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		for _, ginErr := range c.Errors {
			span.RecordError(ginErr.Err)
		}
	}
}

// WrapMiddleware adapts httpserver middleware to Gin middleware.
//
//	r.Use(gintrace.WrapMiddleware(myCustomMiddleware))
func WrapMiddleware(m httpserver.Middleware) ginlib.HandlerFunc {
	return func(c *ginlib.Context) {
		var aborted bool
		handler := m(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
			aborted = c.IsAborted()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
		if aborted {
			c.Abort()
		}
	}
}

// Recovery returns Gin middleware that recovers from panics.
func Recovery(logger zerolog.Logger) ginlib.HandlerFunc {
	return WrapMiddleware(httpserver.Recovery(logger))
}

// RequestID returns Gin middleware that generates/forwards X-Request-ID.
func RequestID() ginlib.HandlerFunc {
	return WrapMiddleware(httpserver.RequestID())
}

// Logger returns Gin middleware for structured request logging.
func Logger(cfg httpserver.LoggerConfig) ginlib.HandlerFunc {
	return WrapMiddleware(httpserver.Logger(cfg))
}

// Metrics returns Gin middleware for OTel metrics.
//
//	metrics, _ := httpserver.NewMetrics(httpserver.DefaultMetricsConfig())
//	r.Use(gintrace.Metrics(metrics))
func Metrics(m *httpserver.Metrics) ginlib.HandlerFunc {
	return WrapMiddleware(m.Middleware())
}

// WrapHandler wraps an http.Handler as a Gin handler.
func WrapHandler(h http.Handler) ginlib.HandlerFunc {
	return func(c *ginlib.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
