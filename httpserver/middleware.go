package httpserver

import "net/http"

// Middleware wraps an http.Handler. Compose with Chain.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware into one. The first argument becomes the
// outermost layer: it sees the request first and the response last.
//
//	handler := httpserver.Chain(
//	    httpserver.Tracing(httpserver.DefaultTracingConfig()),
//	    httpserver.Recovery(logger),
//	    httpserver.Logger(httpserver.LoggerConfig{Logger: logger}),
//	)(myHandler)
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// middlewareConfig holds options for DefaultMiddleware.
type middlewareConfig struct {
	logger *LoggerConfig
}

// MiddlewareOption configures DefaultMiddleware.
type MiddlewareOption func(*middlewareConfig)

// WithDefaultLogger adds logging middleware to DefaultMiddleware.
func WithDefaultLogger(cfg LoggerConfig) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.logger = &cfg
	}
}

// DefaultMiddleware returns a baseline stack: request ID handling, and
// when WithDefaultLogger is given, panic recovery plus request logging
// around it. Tracing is not included; add it as the outermost layer with
// your TracerProvider:
//
//	handler := httpserver.Tracing(httpserver.DefaultTracingConfig())(
//	    httpserver.DefaultMiddleware()(myHandler),
//	)
func DefaultMiddleware(opts ...MiddlewareOption) Middleware {
	cfg := &middlewareConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		return Chain(RequestID())
	}
	return Chain(
		Recovery(cfg.logger.Logger),
		RequestID(),
		Logger(*cfg.logger),
	)
}
