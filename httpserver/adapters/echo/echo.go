// Package echo provides tracing middleware for the Echo framework.
//
// Unlike the generic net/http middleware, this adapter uses Echo's own
// routing information, so spans are named after the matched route
// pattern ("GET /orders/:id").
//
// # Quick start
//
//	e := echo.New()
//	e.Use(echotrace.RequestID())
//	e.Use(echotrace.Recovery(logger))
//	e.Use(echotrace.Tracing(httpserver.DefaultTracingConfig()))
package echo

import (
	"net/http"

	echolib "github.com/labstack/echo/v4"
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
const scope = "github.com/arclight-labs/tracewrap-go/httpserver/adapters/echo"

// Tracing returns Echo middleware for OpenTelemetry tracing.
//
// Each request produces one SERVER span named after the matched route
// ("GET /orders/:id"); unrouted requests keep the "HTTP {method}" name
// and no http.route attribute.
func Tracing(cfg httpserver.TracingConfig) echolib.MiddlewareFunc {
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

	return func(next echolib.HandlerFunc) echolib.HandlerFunc {
		return func(c echolib.Context) error {
			r := c.Request()

			if instrument.IsSuppressed(r.Context()) || cfg.ExcludedURLs.Disabled(r.URL.String()) {
				return next(c)
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
					semconv.ClientAddress(c.RealIP()),
				}
				if cfg.ServiceName != "" {
					attrs = append(attrs, semconv.ServiceName(cfg.ServiceName))
				}
				if ua := r.UserAgent(); ua != "" {
					attrs = append(attrs, semconv.UserAgentOriginal(ua))
				}
				span.SetAttributes(attrs...)
			}

			c.SetRequest(r.WithContext(ctx))
			err := next(c)
			if err != nil {
				span.RecordError(err)
				c.Error(err)
			}

			status := c.Response().Status
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))

			// Echo reports unmatched requests with a "/*" catch-all or
			// an empty path; treat 404 as unrouted either way.
			route := c.Path()
			if route != "" && status != http.StatusNotFound {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(semconv.HTTPRoute(route))
			}

			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			// The error was already written to the response above.
			return nil
		}
	}
}

// WrapMiddleware adapts httpserver middleware to Echo middleware.
//
//	e.Use(echotrace.WrapMiddleware(myCustomMiddleware))
func WrapMiddleware(m httpserver.Middleware) echolib.MiddlewareFunc {
	return func(next echolib.HandlerFunc) echolib.HandlerFunc {
		return func(c echolib.Context) error {
			var err error
			handler := m(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				err = next(c)
			}))
			handler.ServeHTTP(c.Response(), c.Request())
			return err
		}
	}
}

// Recovery returns Echo middleware that recovers from panics.
func Recovery(logger zerolog.Logger) echolib.MiddlewareFunc {
	return WrapMiddleware(httpserver.Recovery(logger))
}

// RequestID returns Echo middleware that generates/forwards X-Request-ID.
func RequestID() echolib.MiddlewareFunc {
	return WrapMiddleware(httpserver.RequestID())
}

// Logger returns Echo middleware for structured request logging.
func Logger(cfg httpserver.LoggerConfig) echolib.MiddlewareFunc {
	return WrapMiddleware(httpserver.Logger(cfg))
}

// Metrics returns Echo middleware for OTel metrics.
//
//	metrics, _ := httpserver.NewMetrics(httpserver.DefaultMetricsConfig())
//	e.Use(echotrace.Metrics(metrics))
func Metrics(m *httpserver.Metrics) echolib.MiddlewareFunc {
	return WrapMiddleware(m.Middleware())
}
