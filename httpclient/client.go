package httpclient

import (
	"net/http"

	"github.com/rs/zerolog"
)

// WrapTransport wraps a RoundTripper with tracing. Passing nil uses
// http.DefaultTransport. Wrapping an already wrapped transport returns
// it unchanged so layers never stack.
func WrapTransport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	if wrapped, ok := base.(*otelTransport); ok {
		return wrapped
	}
	return newOtelTransport(base, newConfig(opts...))
}

// InstrumentClient replaces the client's transport with an instrumented
// one, in place. Instrumenting twice is a logged no-op.
func InstrumentClient(client *http.Client, opts ...Option) {
	if client == nil {
		return
	}

	cfg := newConfig(opts...)

	if _, ok := client.Transport.(*otelTransport); ok {
		cfg.Logger.Warn().Msg("client already instrumented, ignoring duplicate install")
		return
	}

	client.Transport = newOtelTransport(client.Transport, cfg)
}

// UninstrumentClient restores the client's original transport. A client
// that was never instrumented is left unchanged.
func UninstrumentClient(client *http.Client, opts ...Option) {
	if client == nil {
		return
	}

	wrapped, ok := client.Transport.(*otelTransport)
	if !ok {
		// Only the logger matters here, skip the full config setup.
		cfg := &config{Logger: zerolog.Nop()}
		for _, opt := range opts {
			opt(cfg)
		}
		cfg.Logger.Warn().Msg("client not instrumented, ignoring uninstrument")
		return
	}

	client.Transport = wrapped.base
}

// NewClient returns an http.Client whose transport is instrumented.
func NewClient(opts ...Option) *http.Client {
	return &http.Client{
		Transport: newOtelTransport(http.DefaultTransport, newConfig(opts...)),
	}
}
