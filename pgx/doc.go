// Package pgx provides OpenTelemetry tracing for the jackc/pgx/v5
// Postgres driver, using the driver's native tracer hooks instead of
// wrapping connection objects.
//
// # Quick start
//
//	import tracewrappgx "github.com/arclight-labs/tracewrap-go/pgx"
//
//	cfg, _ := pgx.ParseConfig(dsn)
//	cfg.Tracer = tracewrappgx.NewTracer(
//	    tracewrappgx.WithDBName("orders"),
//	)
//	conn, _ := pgx.ConnectConfig(ctx, cfg)
//
// For pools, set the tracer on the pool's connection config; every
// connection the pool hands out is then instrumented, including ones
// acquired concurrently:
//
//	poolCfg, _ := pgxpool.ParseConfig(dsn)
//	poolCfg.ConnConfig.Tracer = tracewrappgx.NewTracer()
//	pool, _ := pgxpool.NewWithConfig(ctx, poolCfg)
//
// Each query, batch item, prepare, and connect produces one CLIENT span.
// Query spans are named after the SQL operation with the same fallback
// rules as the sql package (database name, then "postgresql"). The layer
// adds no suspension points of its own: it only observes the calls pgx
// makes.
package pgx
