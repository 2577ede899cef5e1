package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/httpserver"
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

func newTracedRouter(tp oteltrace.TracerProvider) *chi.Mux {
	r := chi.NewRouter()
	r.Use(httpserver.Tracing(httpserver.TracingConfig{
		TracerProvider: tp,
		ServiceName:    "test-api",
	}))
	r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestTracing(t *testing.T) {
	t.Run("given routed request, then span named after route pattern", func(t *testing.T) {
		sr, tp := newRecorder()
		router := newTracedRouter(tp)

		req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "GET /orders/{id}", spans[0].Name())
		assert.Equal(t, oteltrace.SpanKindServer, spans[0].SpanKind())

		attrs := spanAttrs(spans[0])
		assert.Equal(t, "/orders/{id}", attrs["http.route"].AsString())
		assert.Equal(t, "/orders/42", attrs["url.path"].AsString())
		assert.Equal(t, int64(200), attrs["http.response.status_code"].AsInt64())
		assert.Equal(t, "test-api", attrs["service.name"].AsString())
	})

	t.Run("given unrouted request, then method-only name without route", func(t *testing.T) {
		sr, tp := newRecorder()
		router := newTracedRouter(tp)

		req := httptest.NewRequest(http.MethodGet, "/no/such/path", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "HTTP GET", spans[0].Name())

		attrs := spanAttrs(spans[0])
		_, hasRoute := attrs["http.route"]
		assert.False(t, hasRoute, "404 must not carry a route attribute")
		assert.Equal(t, int64(404), attrs["http.response.status_code"].AsInt64())
	})

	t.Run("given 500 response, then span is error", func(t *testing.T) {
		sr, tp := newRecorder()
		router := newTracedRouter(tp)

		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("given propagated trace context, then span joins remote trace", func(t *testing.T) {
		sr, tp := newRecorder()

		r := chi.NewRouter()
		r.Use(httpserver.Tracing(httpserver.TracingConfig{
			TracerProvider: tp,
			Propagator:     propagation.TraceContext{},
		}))
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		// Parent trace from a hypothetical upstream caller.
		remoteTP := sdktrace.NewTracerProvider()
		ctx, parent := remoteTP.Tracer("upstream").Start(context.Background(), "upstream")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))
		parent.End()

		r.ServeHTTP(httptest.NewRecorder(), req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext().TraceID(),
			"server span must continue the propagated trace")
	})

	t.Run("given excluded URL, then no span", func(t *testing.T) {
		sr, tp := newRecorder()

		r := chi.NewRouter()
		r.Use(httpserver.Tracing(httpserver.TracingConfig{
			TracerProvider: tp,
			ExcludedURLs:   instrument.NewExcludeList([]string{"/healthz"}),
		}))
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Get("/orders", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Empty(t, sr.Ended())

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders", nil))
		assert.Len(t, sr.Ended(), 1, "non-excluded URLs still traced")
	})

	t.Run("given exclusion from environment, then applied", func(t *testing.T) {
		t.Setenv("TRACEWRAP_HTTPSERVER_EXCLUDED_URLS", "/metrics,/healthz")

		sr, tp := newRecorder()

		r := chi.NewRouter()
		r.Use(httpserver.Tracing(httpserver.TracingConfig{TracerProvider: tp}))
		r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Empty(t, sr.Ended())
	})

	t.Run("given suppressed context, then no span", func(t *testing.T) {
		sr, tp := newRecorder()
		router := newTracedRouter(tp)

		req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
		req = req.WithContext(instrument.WithSuppressed(req.Context()))
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Empty(t, sr.Ended())
	})

	t.Run("given custom formatter, then its name wins over route", func(t *testing.T) {
		sr, tp := newRecorder()

		r := chi.NewRouter()
		r.Use(httpserver.Tracing(httpserver.TracingConfig{
			TracerProvider: tp,
			SpanNameFormatter: func(req *http.Request) string {
				return "custom " + req.URL.Path
			},
		}))
		r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "custom /orders/42", spans[0].Name())
	})

	t.Run("given plain mux without chi, then method-only name", func(t *testing.T) {
		sr, tp := newRecorder()

		handler := httpserver.Tracing(httpserver.TracingConfig{TracerProvider: tp})(
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
		)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/anything", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "HTTP POST", spans[0].Name())
	})
}
