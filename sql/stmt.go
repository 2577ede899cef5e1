package sql

import (
	"context"
	"database/sql/driver"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	_ driver.Stmt             = (*otelStmt)(nil)
	_ driver.StmtExecContext  = (*otelStmt)(nil)
	_ driver.StmtQueryContext = (*otelStmt)(nil)
)

// otelStmt is the prepared-statement counterpart of otelConn: produced
// by the wrapped connection's Prepare, it re-enters the tracing layer on
// every execution.
type otelStmt struct {
	stmt      driver.Stmt
	cfg       *config
	query     string
	connAttrs []attribute.KeyValue
}

func newOtelStmt(stmt driver.Stmt, cfg *config, query string, connAttrs []attribute.KeyValue) *otelStmt {
	return &otelStmt{stmt: stmt, cfg: cfg, query: query, connAttrs: connAttrs}
}

func (s *otelStmt) Close() error { return s.stmt.Close() }

func (s *otelStmt) NumInput() int { return s.stmt.NumInput() }

// Exec satisfies driver.Stmt; database/sql only calls it on drivers
// without context support.
func (s *otelStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.stmt.Exec(args) //nolint:staticcheck // driver.Stmt interface
}

// Query satisfies driver.Stmt; see Exec.
func (s *otelStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.stmt.Query(args) //nolint:staticcheck // driver.Stmt interface
}

// start opens the span for one statement execution and fills its
// attributes when it is recording.
func (s *otelStmt) start(ctx context.Context, args []driver.NamedValue) (context.Context, trace.Span) {
	ctx, span := s.cfg.Tracer.Start(ctx, s.cfg.spanName(s.query),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	if span.IsRecording() {
		span.SetAttributes(s.cfg.queryAttributes(s.query)...)
		span.SetAttributes(s.connAttrs...)
		if s.cfg.CaptureParameters && len(args) > 0 {
			span.SetAttributes(attribute.String("db.statement.parameters", formatParameters(args)))
		}
	}

	return ctx, span
}

func (s *otelStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	ctx, span := s.start(ctx, args)
	defer span.End()

	var result driver.Result
	var err error
	if execer, ok := s.stmt.(driver.StmtExecContext); ok {
		result, err = execer.ExecContext(ctx, args)
	} else {
		result, err = s.stmt.Exec(namedValueToValue(args)) //nolint:staticcheck // pre-context driver
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (s *otelStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	ctx, span := s.start(ctx, args)
	defer span.End()

	var rows driver.Rows
	var err error
	if queryer, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryer.QueryContext(ctx, args)
	} else {
		rows, err = s.stmt.Query(namedValueToValue(args)) //nolint:staticcheck // pre-context driver
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rows, nil
}

func namedValueToValue(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}
