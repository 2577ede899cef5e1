package httpserver_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-labs/tracewrap-go/httpserver"
)

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	type args struct {
		handler http.HandlerFunc
	}

	tests := []struct {
		name           string
		args           args
		wantStatusCode int
	}{
		{
			name: "given handler panics with string, when recovery applied, then returns 500",
			args: args{
				handler: func(_ http.ResponseWriter, _ *http.Request) {
					panic("test panic")
				},
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "given handler panics with error, when recovery applied, then returns 500",
			args: args{
				handler: func(_ http.ResponseWriter, _ *http.Request) {
					panic(assert.AnError)
				},
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "given handler does not panic, when recovery applied, then proceeds normally",
			args: args{
				handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
				},
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := zerolog.Nop()
			middleware := httpserver.Recovery(logger)
			handler := middleware(tt.args.handler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			assert.NotPanics(t, func() {
				handler.ServeHTTP(rec, req)
			})
			assert.Equal(t, tt.wantStatusCode, rec.Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	type args struct {
		existingID string
	}

	tests := []struct {
		name       string
		args       args
		wantNewID  bool
		wantSameID bool
	}{
		{
			name:      "given no existing ID, when applied, then generates new ID",
			args:      args{existingID: ""},
			wantNewID: true,
		},
		{
			name:       "given existing ID, when applied, then forwards existing ID",
			args:       args{existingID: "existing-request-id-123"},
			wantSameID: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			middleware := httpserver.RequestID()
			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.args.existingID != "" {
				req.Header.Set("X-Request-ID", tt.args.existingID)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			responseID := rec.Header().Get("X-Request-ID")

			if tt.wantNewID {
				assert.NotEmpty(t, responseID)
			}
			if tt.wantSameID {
				assert.Equal(t, tt.args.existingID, responseID)
			}
		})
	}
}

func TestRequestIDMiddleware_OversizedID(t *testing.T) {
	t.Parallel()

	middleware := httpserver.RequestID()
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	inbound := strings.Repeat("x", 300)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", inbound)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, got)
	assert.NotEqual(t, inbound, got)
}

func TestLoggerMiddleware(t *testing.T) {
	t.Parallel()

	newHandler := func(out *bytes.Buffer, skipPaths ...string) http.Handler {
		middleware := httpserver.Logger(httpserver.LoggerConfig{
			Logger:      zerolog.New(out),
			ServiceName: "test-svc",
			SkipPaths:   skipPaths,
		})
		return middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("given normal request, then one completion line logged", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		handler := newHandler(&out)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

		require.NotZero(t, out.Len())
		assert.Contains(t, out.String(), "request completed")
		assert.Contains(t, out.String(), `"path":"/users"`)
		assert.Contains(t, out.String(), `"status":200`)
	})

	t.Run("given skipped path, then nothing logged", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		handler := newHandler(&out, "/livez")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, out.Len())
	})

	t.Run("given request ID in context, then logged as request_id", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		handler := httpserver.Chain(
			httpserver.RequestID(),
			httpserver.Logger(httpserver.LoggerConfig{Logger: zerolog.New(&out)}),
		)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Contains(t, out.String(), `"request_id":"req-42"`)
	})
}

func TestChainMiddleware(t *testing.T) {
	t.Parallel()

	type args struct {
		middlewareCount int
	}

	tests := []struct {
		name      string
		args      args
		wantOrder []string
	}{
		{
			name:      "given no middleware, when chained, then handler executes",
			args:      args{middlewareCount: 0},
			wantOrder: []string{"handler"},
		},
		{
			name:      "given one middleware, when chained, then executes in order",
			args:      args{middlewareCount: 1},
			wantOrder: []string{"m1-before", "handler", "m1-after"},
		},
		{
			name: "given multiple middleware, when chained, then executes in order",
			args: args{middlewareCount: 3},
			wantOrder: []string{
				"m1-before",
				"m2-before",
				"m3-before",
				"handler",
				"m3-after",
				"m2-after",
				"m1-after",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			order := []string{}

			makeMiddleware := func(name string) httpserver.Middleware {
				return func(next http.Handler) http.Handler {
					return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						order = append(order, name+"-before")
						next.ServeHTTP(w, r)
						order = append(order, name+"-after")
					})
				}
			}

			var middlewares []httpserver.Middleware
			for i := 1; i <= tt.args.middlewareCount; i++ {
				middlewares = append(middlewares, makeMiddleware("m"+string(rune('0'+i))))
			}

			handler := httpserver.Chain(
				middlewares...)(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					order = append(order, "handler")
					w.WriteHeader(http.StatusOK)
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantOrder, order)
		})
	}
}
