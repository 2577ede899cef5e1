package sql

import (
	"context"
	"database/sql/driver"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Compile-time interface checks.
var (
	_ driver.Conn               = (*otelConn)(nil)
	_ driver.ConnPrepareContext = (*otelConn)(nil)
	_ driver.ConnBeginTx        = (*otelConn)(nil)
	_ driver.ExecerContext      = (*otelConn)(nil)
	_ driver.QueryerContext     = (*otelConn)(nil)
	_ driver.Pinger             = (*otelConn)(nil)
	_ driver.SessionResetter    = (*otelConn)(nil)
	_ driver.Validator          = (*otelConn)(nil)
)

// otelConn wraps a driver.Conn with OpenTelemetry instrumentation.
// Every statement it prepares comes back wrapped as well, so calls made
// through the returned statement stay instrumented.
type otelConn struct {
	conn driver.Conn
	cfg  *config

	// connAttrs are extracted once from the raw connection when it is
	// first wrapped and reused on every span.
	connAttrs []attribute.KeyValue
}

// newOtelConn creates a new instrumented connection.
func newOtelConn(conn driver.Conn, cfg *config) *otelConn {
	return &otelConn{
		conn:      conn,
		cfg:       cfg,
		connAttrs: extractConnAttributes(conn, cfg.ConnAttributes),
	}
}

// Prepare implements driver.Conn.
func (c *otelConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return newOtelStmt(stmt, c.cfg, query, c.connAttrs), nil
}

// Close implements driver.Conn.
func (c *otelConn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
// Deprecated: Use BeginTx instead. This exists for driver.Conn interface compatibility.
func (c *otelConn) Begin() (driver.Tx, error) {
	tx, err := c.conn.Begin() //nolint:staticcheck // Required for driver.Conn interface
	if err != nil {
		return nil, err
	}
	return newOtelTx(tx, c.cfg, c.connAttrs), nil
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *otelConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error

	if preparer, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}

	if err != nil {
		return nil, err
	}
	return newOtelStmt(stmt, c.cfg, query, c.connAttrs), nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *otelConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	start := time.Now()
	ctx, span := c.cfg.Tracer.Start(ctx, "BEGIN",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	if span.IsRecording() {
		span.SetAttributes(c.cfg.baseAttributes()...)
		span.SetAttributes(c.connAttrs...)
	}

	var tx driver.Tx
	var err error

	if beginner, ok := c.conn.(driver.ConnBeginTx); ok {
		tx, err = beginner.BeginTx(ctx, opts)
	} else {
		tx, err = c.conn.Begin() //nolint:staticcheck // Fallback for older drivers
	}

	// Record metrics
	c.cfg.Metrics.recordQueryDuration(ctx, time.Since(start), "BEGIN", c.cfg.baseAttributes(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return newOtelTx(tx, c.cfg, c.connAttrs), nil
}

// ExecContext implements driver.ExecerContext.
func (c *otelConn) ExecContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		// Fallback: let database/sql prepare and execute
		return nil, driver.ErrSkip
	}

	start := time.Now()
	operation := extractOperation(query)

	ctx, span := c.cfg.Tracer.Start(ctx, c.cfg.spanName(query),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	c.populateSpan(span, query, args)

	result, err := execer.ExecContext(ctx, query, args)

	// Record metrics
	c.cfg.Metrics.recordQueryDuration(
		ctx,
		time.Since(start),
		operation,
		c.cfg.baseAttributes(),
		err,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// QueryContext implements driver.QueryerContext.
func (c *otelConn) QueryContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		// Fallback: let database/sql handle it
		return nil, driver.ErrSkip
	}

	start := time.Now()
	operation := extractOperation(query)

	ctx, span := c.cfg.Tracer.Start(ctx, c.cfg.spanName(query),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	c.populateSpan(span, query, args)

	rows, err := queryer.QueryContext(ctx, query, args)

	// Record metrics
	c.cfg.Metrics.recordQueryDuration(
		ctx,
		time.Since(start),
		operation,
		c.cfg.baseAttributes(),
		err,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rows, nil
}

// Ping implements driver.Pinger.
func (c *otelConn) Ping(ctx context.Context) error {
	start := time.Now()
	ctx, span := c.cfg.Tracer.Start(ctx, "PING",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	if span.IsRecording() {
		span.SetAttributes(c.cfg.baseAttributes()...)
		span.SetAttributes(c.connAttrs...)
	}

	var err error
	if pinger, ok := c.conn.(driver.Pinger); ok {
		err = pinger.Ping(ctx)
	}

	// Record metrics
	c.cfg.Metrics.recordQueryDuration(ctx, time.Since(start), "PING", c.cfg.baseAttributes(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// ResetSession implements driver.SessionResetter.
func (c *otelConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// IsValid implements driver.Validator.
func (c *otelConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// populateSpan attaches query and connection attributes. All attribute
// work, including parameter stringification, is skipped when the span is
// not recording.
func (c *otelConn) populateSpan(span trace.Span, query string, args []driver.NamedValue) {
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(c.cfg.queryAttributes(query)...)
	span.SetAttributes(c.connAttrs...)

	if c.cfg.CaptureParameters && len(args) > 0 {
		span.SetAttributes(attribute.String("db.statement.parameters", formatParameters(args)))
	}
}

// baseAttributes returns the base attributes for all spans and metrics.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String("db.instance", cfg.InstanceName))
	}
	return attrs
}

// queryAttributes returns attributes for query spans.
func (cfg *config) queryAttributes(query string) []attribute.KeyValue {
	attrs := cfg.baseAttributes()

	if !cfg.DisableQuery && query != "" {
		// Statements from drivers handing over raw bytes may carry
		// invalid UTF-8; replace rather than drop the trace.
		sanitized := DecodeStatement([]byte(query))
		if cfg.QuerySanitizer != nil {
			sanitized = cfg.QuerySanitizer(sanitized)
		}
		attrs = append(attrs, attribute.String("db.statement", sanitized))
	}

	// Extract operation from query
	op := extractOperation(query)
	if op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	return attrs
}
