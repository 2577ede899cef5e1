package sql

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	// This identifies the library in traces and metrics.
	scope = "github.com/arclight-labs/tracewrap-go/sql"
)

// config holds the configuration for instrumentation.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	// When no global provider is configured, a no-op tracer is used (safe, but no traces).
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	// When no global provider is configured, a no-op meter is used (safe, but no metrics).
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// Logger receives warnings about instrumentation misuse (double
	// wrapping, uninstrumenting a plain connection). Never used on the
	// query path.
	Logger zerolog.Logger

	// DBSystem identifies the database management system (DBMS) product.
	// Examples: "postgresql", "mysql", "sqlite", "mssql", "oracle"
	// See: https://opentelemetry.io/docs/specs/semconv/database/database-spans/
	DBSystem string

	// DBName is the name of the database being accessed.
	DBName string

	// InstanceName identifies a specific database connection instance,
	// such as "primary" or "replica". Added as the "db.instance"
	// attribute on all spans.
	InstanceName string

	// QuerySanitizer sanitizes SQL queries before adding to spans.
	// If nil, queries are included as-is (may expose sensitive data).
	QuerySanitizer func(query string) string

	// DisableQuery disables recording of SQL queries in spans.
	// Use this for security if queries may contain sensitive data
	// and you cannot use a sanitizer.
	DisableQuery bool

	// CaptureParameters enables recording of query arguments as the
	// "db.statement.parameters" span attribute. Off by default: argument
	// values are almost always sensitive.
	CaptureParameters bool

	// ConnAttributes maps semantic attribute keys to dotted paths
	// resolved reflectively on the raw driver connection, e.g.
	// {"net.peer.name": "Config.Host"}. Paths that do not resolve are
	// skipped silently.
	ConnAttributes map[string]string
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// Initialize tracer and meter after options are applied.
	// If no provider is configured globally, these will be no-op implementations
	// that safely do nothing - no errors, just no telemetry data collected.
	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Initialize metrics (ignore errors, will just be nil if fails)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithLogger sets the logger for instrumentation-misuse warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = logger
	}
}

// WithDBSystem sets the database system identifier (DBMS product).
// This is added as the "db.system" attribute on all spans.
//
// Common values: "postgresql", "mysql", "sqlite", "mssql", "oracle".
//
// Example:
//
//	db, _ := tracewrapsql.Open("postgres", dsn,
//	    tracewrapsql.WithDBSystem("postgresql"),
//	)
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the database name being accessed.
// This is added as the "db.name" attribute on all spans and serves as the
// span-name fallback for statements without a recognizable operation.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithInstanceName sets an identifier for this specific database
// connection, such as "primary" or "replica". Added as the "db.instance"
// attribute on all spans, making it easy to filter traces by connection
// in primary/replica or sharded setups.
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithQuerySanitizer sets a custom query sanitizer function.
// The sanitizer receives the raw SQL query and should return a sanitized version
// with sensitive data (like literals) replaced with placeholders.
//
// Use DefaultQuerySanitizer for a basic implementation that replaces
// string literals, numbers, and hex values with "?" placeholders.
//
// Example:
//
//	db, _ := tracewrapsql.Open("postgres", dsn,
//	    tracewrapsql.WithQuerySanitizer(tracewrapsql.DefaultQuerySanitizer),
//	)
//	// Query: "SELECT * FROM users WHERE id = 123"
//	// Recorded as: "SELECT * FROM users WHERE id = ?"
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery disables recording of SQL queries in spans entirely.
// Use this when queries may contain sensitive data and you cannot use a sanitizer.
//
// When enabled, the "db.statement" attribute will not be added to spans,
// but "db.operation" (SELECT, INSERT, etc.) will still be recorded.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}

// WithCaptureParameters enables recording of query arguments as the
// "db.statement.parameters" span attribute.
//
// The stringified arguments are only computed when the span is actually
// recording, so sampled-out traces pay nothing.
func WithCaptureParameters() Option {
	return func(cfg *config) {
		cfg.CaptureParameters = true
	}
}

// WithConnectionAttributes maps semantic attribute keys to dotted paths
// resolved reflectively on the raw driver connection when it is first
// wrapped. Recognized keys: "db.user", "net.peer.name", "net.peer.port",
// "db.name".
//
// Example for a driver exposing its parsed config:
//
//	db, _ := tracewrapsql.Open("postgres", dsn,
//	    tracewrapsql.WithConnectionAttributes(map[string]string{
//	        "net.peer.name": "Config.Host",
//	        "net.peer.port": "Config.Port",
//	        "db.user":       "Config.User",
//	    }),
//	)
//
// A path that does not resolve on a given connection is skipped silently;
// driver shapes differ and a miss is expected.
func WithConnectionAttributes(paths map[string]string) Option {
	return func(cfg *config) {
		cfg.ConnAttributes = paths
	}
}
