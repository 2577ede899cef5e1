package httpserver

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// LoggerConfig configures the logging middleware.
type LoggerConfig struct {
	Logger zerolog.Logger

	// ServiceName labels telemetry from this server.
	ServiceName string

	// SkipPaths are paths that should not be logged, typically health
	// check endpoints hit on a tight interval.
	SkipPaths []string

	// LogRequestBody enables logging of the request body. The body is
	// read into memory up to MaxBodyLogSize; meant for development.
	LogRequestBody bool

	// LogResponseBody enables logging of the response body, buffered up
	// to MaxBodyLogSize; meant for development.
	LogResponseBody bool

	// MaxBodyLogSize limits logged body size (default 4KB).
	MaxBodyLogSize int
}

const defaultMaxBodyLogSize = 4 * 1024

// severity picks the log level from the response status class.
func severity(logger zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	default:
		return logger.Info()
	}
}

// Logger returns middleware that logs one line per completed request:
// method, path, status, duration, byte count, client address, plus the
// request ID and trace ID when those middlewares ran before this one.
//
//	handler := httpserver.Logger(httpserver.LoggerConfig{
//	    Logger:    logger,
//	    SkipPaths: []string{"/livez", "/readyz"},
//	})(myHandler)
func Logger(cfg LoggerConfig) Middleware {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	maxBodySize := cfg.MaxBodyLogSize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodyLogSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			var requestBody []byte
			if cfg.LogRequestBody && r.Body != nil {
				requestBody, _ = io.ReadAll(io.LimitReader(r.Body, int64(maxBodySize)))
				r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(requestBody))
			}

			var responseBody *bytes.Buffer
			wrapped := wrapResponseWriter(w)
			if cfg.LogResponseBody {
				responseBody = &bytes.Buffer{}
				wrapped.bodyBuffer = responseBody
				wrapped.maxBodySize = maxBodySize
			}

			next.ServeHTTP(wrapped, r)

			event := severity(cfg.Logger, wrapped.Status()).
				Str("service", cfg.ServiceName).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Int("bytes", wrapped.BytesWritten()).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if id := RequestIDFromContext(r.Context()); id != "" {
				event.Str("request_id", id)
			}
			if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
				event.Str("trace_id", sc.TraceID().String())
			}

			if len(requestBody) > 0 {
				event.Bytes("request_body", requestBody)
			}
			if responseBody != nil && responseBody.Len() > 0 {
				event.Bytes("response_body", responseBody.Bytes())
			}

			event.Msg("request completed")
		})
	}
}
