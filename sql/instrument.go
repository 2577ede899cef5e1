package sql

import (
	"database/sql"
	"database/sql/driver"
)

// InstrumentConnection wraps a live driver.Conn directly. Use this when
// no driver-level patch point exists, for example a connection handed
// over by a third-party pool.
//
// Wrapping an already instrumented connection is detected and returns
// the input unchanged with a warning, so at most one tracing layer is
// ever active.
func InstrumentConnection(conn driver.Conn, opts ...Option) driver.Conn {
	cfg := newConfig(opts...)

	if _, ok := conn.(*otelConn); ok {
		cfg.Logger.Warn().Msg("connection already instrumented, returning as is")
		return conn
	}

	return newOtelConn(conn, cfg)
}

// UninstrumentConnection removes the tracing layer from a connection
// previously wrapped by InstrumentConnection, returning the original.
// A plain connection is returned unchanged with a warning.
func UninstrumentConnection(conn driver.Conn, opts ...Option) driver.Conn {
	if wrapped, ok := conn.(*otelConn); ok {
		return wrapped.conn
	}

	newConfig(opts...).Logger.Warn().
		Msg("connection is not instrumented, returning as is")
	return conn
}

// WrapConnector wraps a driver.Connector so every connection it produces
// is instrumented. Useful with sql.OpenDB when the application builds
// connectors itself:
//
//	db := sql.OpenDB(tracewrapsql.WrapConnector(connector,
//	    tracewrapsql.WithDBSystem("postgresql"),
//	))
func WrapConnector(connector driver.Connector, opts ...Option) driver.Connector {
	cfg := newConfig(opts...)

	if wrapped, ok := connector.(*otelConnector); ok {
		cfg.Logger.Warn().Msg("connector already instrumented, returning as is")
		return wrapped
	}

	return &otelConnector{
		connector: connector,
		driver: &otelDriver{
			driver: connector.Driver(),
			cfg:    cfg,
		},
		cfg: cfg,
	}
}

// OpenDB opens a *sql.DB over an instrumented connector.
func OpenDB(connector driver.Connector, opts ...Option) *sql.DB {
	return sql.OpenDB(WrapConnector(connector, opts...))
}
