// Package fiber provides tracing middleware for the Fiber framework.
//
// Fiber runs on fasthttp, not net/http, so the tracing middleware here
// is native: it reads headers and routing information straight from the
// fiber context instead of bridging through an adaptor. The remaining
// helpers bridge httpserver middleware via gofiber/adaptor.
//
// # Quick start
//
//	app := fiber.New()
//	app.Use(fibertrace.RequestID())
//	app.Use(fibertrace.Tracing(httpserver.DefaultTracingConfig()))
//
// The span for the active request is carried in the fiber user context;
// handlers pass c.UserContext() to downstream calls to continue the
// trace.
package fiber

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/httpserver"
	"github.com/arclight-labs/tracewrap-go/instrument"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/arclight-labs/tracewrap-go/httpserver/adapters/fiber"

// headerCarrier adapts fiber request headers to the propagation API.
type headerCarrier struct {
	c *fiber.Ctx
}

func (hc headerCarrier) Get(key string) string {
	return hc.c.Get(key)
}

func (hc headerCarrier) Set(key, value string) {
	hc.c.Set(key, value)
}

func (hc headerCarrier) Keys() []string {
	headers := hc.c.GetReqHeaders()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	return keys
}

// Tracing returns Fiber middleware for OpenTelemetry tracing.
//
// Each request produces one SERVER span named after the matched route
// ("GET /orders/:id"); unrouted requests keep the "HTTP {method}" name
// and no http.route attribute.
func Tracing(cfg httpserver.TracingConfig) fiber.Handler {
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

	return func(c *fiber.Ctx) error {
		if instrument.IsSuppressed(c.UserContext()) {
			return c.Next()
		}
		if cfg.ExcludedURLs.Disabled(c.OriginalURL()) {
			return c.Next()
		}

		ctx := cfg.Propagator.Extract(c.UserContext(), headerCarrier{c: c})

		ctx, span := tracer.Start(ctx, "HTTP "+c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		if span.IsRecording() {
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(c.Path()),
				semconv.ServerAddress(c.Hostname()),
				semconv.ClientAddress(c.IP()),
			}
			if cfg.ServiceName != "" {
				attrs = append(attrs, semconv.ServiceName(cfg.ServiceName))
			}
			if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
				attrs = append(attrs, semconv.UserAgentOriginal(ua))
			}
			span.SetAttributes(attrs...)
		}

		c.SetUserContext(ctx)
		err := c.Next()
		if err != nil {
			span.RecordError(err)
			// Let fiber's error handler write the response first so the
			// status below reflects it.
			if handleErr := c.App().Config().ErrorHandler(c, err); handleErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		route := c.Route().Path
		if route != "" && route != "/" && status != http.StatusNotFound {
			span.SetName(c.Method() + " " + route)
			span.SetAttributes(semconv.HTTPRoute(route))
		}

		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		return nil
	}
}

// WrapMiddleware adapts httpserver middleware to Fiber middleware via
// the net/http adaptor.
//
//	app.Use(fibertrace.WrapMiddleware(myCustomMiddleware))
func WrapMiddleware(m httpserver.Middleware) fiber.Handler {
	return adaptor.HTTPMiddleware(func(next http.Handler) http.Handler {
		return m(next)
	})
}

// Recovery returns Fiber middleware that recovers from panics.
func Recovery(logger zerolog.Logger) fiber.Handler {
	return WrapMiddleware(httpserver.Recovery(logger))
}

// RequestID returns Fiber middleware that generates/forwards X-Request-ID.
func RequestID() fiber.Handler {
	return WrapMiddleware(httpserver.RequestID())
}

// Logger returns Fiber middleware for structured request logging.
func Logger(cfg httpserver.LoggerConfig) fiber.Handler {
	return WrapMiddleware(httpserver.Logger(cfg))
}

// Metrics returns Fiber middleware for OTel metrics.
//
//	metrics, _ := httpserver.NewMetrics(httpserver.DefaultMetricsConfig())
//	app.Use(fibertrace.Metrics(metrics))
func Metrics(m *httpserver.Metrics) fiber.Handler {
	return WrapMiddleware(m.Middleware())
}
