package redis

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/arclight-labs/tracewrap-go/redis"

	// dbSystem is fixed: this package only ever speaks to Redis.
	dbSystem = "redis"

	// maxStatementLength bounds the db.statement attribute so large
	// values (SET of a blob, MSET batches) do not bloat spans.
	maxStatementLength = 1024
)

// config holds the configuration for the redis hook.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// DisableStatement disables the db.statement attribute entirely.
	DisableStatement bool

	// ConnAttributes are added to every span, typically the peer
	// address and database index of the instrumented client.
	ConnAttributes []attribute.KeyValue
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	return cfg
}

// Option configures the redis hook.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithDisableStatement disables recording of command arguments in spans.
func WithDisableStatement() Option {
	return func(cfg *config) {
		cfg.DisableStatement = true
	}
}

// WithConnAttributes adds fixed attributes to every span produced by
// the hook.
func WithConnAttributes(attrs ...attribute.KeyValue) Option {
	return func(cfg *config) {
		cfg.ConnAttributes = attrs
	}
}
