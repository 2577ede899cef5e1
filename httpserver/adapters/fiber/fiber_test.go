package fiber_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/httpserver"
	fibertrace "github.com/arclight-labs/tracewrap-go/httpserver/adapters/fiber"
	"github.com/arclight-labs/tracewrap-go/instrument"
)

func newRecorder() (*tracetest.SpanRecorder, oteltrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]attribute.Value {
	m := make(map[string]attribute.Value)
	for _, kv := range span.Attributes() {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func newApp(tp oteltrace.TracerProvider) *fiber.App {
	app := fiber.New()
	app.Use(fibertrace.Tracing(httpserver.TracingConfig{TracerProvider: tp}))
	app.Get("/orders/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusInternalServerError)
	})
	return app
}

func TestTracing(t *testing.T) {
	t.Run("given routed request, then span named after fiber route", func(t *testing.T) {
		sr, tp := newRecorder()
		app := newApp(tp)

		req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "GET /orders/:id", spans[0].Name())
		assert.Equal(t, oteltrace.SpanKindServer, spans[0].SpanKind())
		assert.Equal(t, "/orders/:id", spanAttrs(spans[0])["http.route"].AsString())
	})

	t.Run("given unrouted request, then method-only name without route", func(t *testing.T) {
		sr, tp := newRecorder()
		app := newApp(tp)

		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "HTTP GET", spans[0].Name())
		_, hasRoute := spanAttrs(spans[0])["http.route"]
		assert.False(t, hasRoute)
		assert.Equal(t, int64(404), spanAttrs(spans[0])["http.response.status_code"].AsInt64())
	})

	t.Run("given 500 response, then span is error", func(t *testing.T) {
		sr, tp := newRecorder()
		app := newApp(tp)

		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("given excluded URL, then no span", func(t *testing.T) {
		sr, tp := newRecorder()
		app := fiber.New()
		app.Use(fibertrace.Tracing(httpserver.TracingConfig{
			TracerProvider: tp,
			ExcludedURLs:   instrument.NewExcludeList([]string{"/healthz"}),
		}))
		app.Get("/healthz", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, sr.Ended())
	})

	t.Run("given propagated trace context, then span joins remote trace", func(t *testing.T) {
		sr, tp := newRecorder()
		app := fiber.New()
		app.Use(fibertrace.Tracing(httpserver.TracingConfig{
			TracerProvider: tp,
			Propagator:     propagation.TraceContext{},
		}))
		app.Get("/orders/:id", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
		req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736",
			spans[0].SpanContext().TraceID().String())
	})
}

func TestWrapMiddleware(t *testing.T) {
	t.Run("given request id middleware, then header set through adaptor", func(t *testing.T) {
		app := fiber.New()
		app.Use(fibertrace.RequestID())
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})
}
