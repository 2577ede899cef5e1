// Package sql provides an instrumented database/sql driver wrapper
// with automatic OpenTelemetry tracing and metrics.
//
// The wrapper is a transparent proxy over the driver object graph: the
// wrapped driver returns wrapped connections, wrapped connections return
// wrapped statements and transactions, so every call made through the
// resulting *sql.DB stays instrumented without any change to application
// code.
//
// # Quick start
//
//	import tracewrapsql "github.com/arclight-labs/tracewrap-go/sql"
//
//	db, err := tracewrapsql.Open("postgres", dsn,
//	    tracewrapsql.WithDBSystem("postgresql"),
//	    tracewrapsql.WithDBName("myapp"),
//	)
//	// db is *sql.DB - fully compatible with stdlib
//	rows, _ := db.QueryContext(ctx, "SELECT * FROM users")
//
// Each execution produces one CLIENT span named after the SQL operation
// ("SELECT", "INSERT", ...) carrying db.system, db.name, db.statement and
// db.operation attributes. Statements with no recognizable operation fall
// back to the database name, then to "sql".
//
// # Spans and sampling
//
// Attribute population is gated on the span actually recording, so when
// a sampler drops the trace no statement decoding, sanitizing, or
// parameter stringification happens.
//
// # Direct connection instrumentation
//
// When there is no registration point, wrap a live connection or
// connector directly:
//
//	conn = tracewrapsql.InstrumentConnection(conn, opts...)
//	defer func() { conn = tracewrapsql.UninstrumentConnection(conn) }()
//
// Both directions are idempotent: double wrapping and unwrapping a plain
// connection are warned no-ops.
//
// # Connection attributes
//
// WithConnectionAttributes extracts peer host, port, and user from the
// raw driver connection by dotted path, once per connection:
//
//	tracewrapsql.WithConnectionAttributes(map[string]string{
//	    "net.peer.name": "Config.Host",
//	    "net.peer.port": "Config.Port",
//	    "db.user":       "Config.User",
//	})
//
// Paths that do not resolve on a given driver are skipped silently.
package sql
