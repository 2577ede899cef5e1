package pgx

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/arclight-labs/tracewrap-go/pgx"

	// dbSystem is fixed: this package only ever speaks to Postgres.
	dbSystem = "postgresql"
)

// config holds the configuration for the pgx tracer.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// DBName is the logical database name, used as the db.name attribute
	// and as the span-name fallback for statements without an operation.
	// When empty, the database from the connection config is used.
	DBName string

	// QuerySanitizer sanitizes SQL before it is recorded as db.statement.
	// If nil, statements are recorded as-is.
	QuerySanitizer func(query string) string

	// DisableQuery disables the db.statement attribute entirely.
	DisableQuery bool

	// CaptureParameters records query arguments as the
	// "db.statement.parameters" attribute. Off by default.
	CaptureParameters bool

	// ExcludeQueries skips spans for statements matching any pattern
	// (regular expressions, matched against the SQL text). Useful for
	// driver-internal queries and health checks.
	ExcludeQueries *instrument.ExcludeList
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

// Option configures the pgx tracer.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithDBName sets the logical database name for spans.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithQuerySanitizer sets a sanitizer applied to SQL before recording.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery disables recording of SQL statements in spans.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}

// WithCaptureParameters enables recording of query arguments.
// The arguments are only stringified when the span is recording.
func WithCaptureParameters() Option {
	return func(cfg *config) {
		cfg.CaptureParameters = true
	}
}

// WithExcludedQueries skips span creation for statements matching any of
// the given regular expressions.
func WithExcludedQueries(patterns ...string) Option {
	return func(cfg *config) {
		cfg.ExcludeQueries = instrument.NewExcludeList(patterns)
	}
}
