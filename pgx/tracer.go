package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// Compile-time interface checks.
var (
	_ pgx.QueryTracer   = (*Tracer)(nil)
	_ pgx.BatchTracer   = (*Tracer)(nil)
	_ pgx.ConnectTracer = (*Tracer)(nil)
	_ pgx.PrepareTracer = (*Tracer)(nil)
)

// Context keys for the span of each in-flight hook pair. Separate keys so
// a prepare inside a query does not clobber the query's span.
type (
	querySpanKey   struct{}
	batchSpanKey   struct{}
	connectSpanKey struct{}
	prepareSpanKey struct{}
)

// Tracer instruments pgx connections through the driver's tracer hooks.
// Assign it to pgx.ConnConfig.Tracer (or a pool's ConnConfig); it is
// stateless and safe for concurrent use across all connections.
type Tracer struct {
	cfg *config
}

// NewTracer creates a pgx tracer.
func NewTracer(opts ...Option) *Tracer {
	return &Tracer{cfg: newConfig(opts...)}
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *Tracer) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	if instrument.IsSuppressed(ctx) || t.cfg.ExcludeQueries.Disabled(data.SQL) {
		return ctx
	}

	ctx, span := t.cfg.Tracer.Start(ctx, t.spanName(conn, data.SQL),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	if span.IsRecording() {
		span.SetAttributes(t.queryAttributes(conn, data.SQL)...)
		if t.cfg.CaptureParameters && len(data.Args) > 0 {
			span.SetAttributes(attribute.String("db.statement.parameters", fmt.Sprint(data.Args)))
		}
	}

	return context.WithValue(ctx, querySpanKey{}, span)
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
		return
	}

	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
}

// TraceBatchStart implements pgx.BatchTracer.
func (t *Tracer) TraceBatchStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceBatchStartData,
) context.Context {
	if instrument.IsSuppressed(ctx) {
		return ctx
	}

	ctx, span := t.cfg.Tracer.Start(ctx, "BATCH",
		trace.WithSpanKind(trace.SpanKindClient),
	)

	if span.IsRecording() {
		span.SetAttributes(t.baseAttributes(conn)...)
		if data.Batch != nil {
			span.SetAttributes(attribute.Int("db.batch.size", data.Batch.Len()))
		}
	}

	return context.WithValue(ctx, batchSpanKey{}, span)
}

// TraceBatchQuery implements pgx.BatchTracer. Individual batch items are
// recorded as events on the batch span rather than child spans.
func (t *Tracer) TraceBatchQuery(ctx context.Context, _ *pgx.Conn, data pgx.TraceBatchQueryData) {
	span, ok := ctx.Value(batchSpanKey{}).(trace.Span)
	if !ok {
		return
	}

	if data.Err != nil {
		span.RecordError(data.Err)
		return
	}

	if span.IsRecording() && !t.cfg.DisableQuery {
		span.AddEvent("batch.query", trace.WithAttributes(
			attribute.String("db.statement", t.statement(data.SQL)),
		))
	}
}

// TraceBatchEnd implements pgx.BatchTracer.
func (t *Tracer) TraceBatchEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceBatchEndData) {
	span, ok := ctx.Value(batchSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
}

// TraceConnectStart implements pgx.ConnectTracer.
func (t *Tracer) TraceConnectStart(
	ctx context.Context,
	data pgx.TraceConnectStartData,
) context.Context {
	if instrument.IsSuppressed(ctx) {
		return ctx
	}

	ctx, span := t.cfg.Tracer.Start(ctx, "CONNECT",
		trace.WithSpanKind(trace.SpanKindClient),
	)

	if span.IsRecording() && data.ConnConfig != nil {
		span.SetAttributes(configAttributes(data.ConnConfig)...)
	}

	return context.WithValue(ctx, connectSpanKey{}, span)
}

// TraceConnectEnd implements pgx.ConnectTracer.
func (t *Tracer) TraceConnectEnd(ctx context.Context, data pgx.TraceConnectEndData) {
	span, ok := ctx.Value(connectSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
}

// TracePrepareStart implements pgx.PrepareTracer.
func (t *Tracer) TracePrepareStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TracePrepareStartData,
) context.Context {
	if instrument.IsSuppressed(ctx) {
		return ctx
	}

	ctx, span := t.cfg.Tracer.Start(ctx, "PREPARE",
		trace.WithSpanKind(trace.SpanKindClient),
	)

	if span.IsRecording() {
		span.SetAttributes(t.queryAttributes(conn, data.SQL)...)
	}

	return context.WithValue(ctx, prepareSpanKey{}, span)
}

// TracePrepareEnd implements pgx.PrepareTracer.
func (t *Tracer) TracePrepareEnd(ctx context.Context, _ *pgx.Conn, data pgx.TracePrepareEndData) {
	span, ok := ctx.Value(prepareSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
}

// spanName resolves the span name: SQL operation, configured or
// connection database name, then the db system.
func (t *Tracer) spanName(conn *pgx.Conn, sql string) string {
	if op := operation(sql); op != "" {
		return op
	}
	if t.cfg.DBName != "" {
		return t.cfg.DBName
	}
	if db := connDatabase(conn); db != "" {
		return db
	}
	return dbSystem
}

// baseAttributes returns db.system plus connection-derived attributes.
func (t *Tracer) baseAttributes(conn *pgx.Conn) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("db.system", dbSystem)}

	if t.cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", t.cfg.DBName))
	}

	if conn != nil {
		cfg := conn.Config()
		if cfg != nil {
			if t.cfg.DBName == "" && cfg.Database != "" {
				attrs = append(attrs, attribute.String("db.name", cfg.Database))
			}
			attrs = append(attrs, peerAttributes(cfg)...)
		}
	}

	return attrs
}

// queryAttributes returns the attribute set for one statement.
func (t *Tracer) queryAttributes(conn *pgx.Conn, sql string) []attribute.KeyValue {
	attrs := t.baseAttributes(conn)

	if !t.cfg.DisableQuery && sql != "" {
		attrs = append(attrs, attribute.String("db.statement", t.statement(sql)))
	}
	if op := operation(sql); op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	return attrs
}

// statement applies the configured sanitizer.
func (t *Tracer) statement(sql string) string {
	if t.cfg.QuerySanitizer != nil {
		return t.cfg.QuerySanitizer(sql)
	}
	return sql
}

// configAttributes derives attributes from a parsed connection config.
func configAttributes(cfg *pgx.ConnConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("db.system", dbSystem)}
	if cfg.Database != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.Database))
	}
	attrs = append(attrs, peerAttributes(cfg)...)
	return attrs
}

// peerAttributes extracts user and peer host/port from a connection
// config. Missing fields are skipped.
func peerAttributes(cfg *pgx.ConnConfig) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if cfg.User != "" {
		attrs = append(attrs, attribute.String("db.user", cfg.User))
	}
	if cfg.Host != "" {
		attrs = append(attrs, attribute.String("net.peer.name", cfg.Host))
	}
	if cfg.Port != 0 {
		attrs = append(attrs, attribute.Int("net.peer.port", int(cfg.Port)))
	}
	return attrs
}

func connDatabase(conn *pgx.Conn) string {
	if conn == nil {
		return ""
	}
	if cfg := conn.Config(); cfg != nil {
		return cfg.Database
	}
	return ""
}

// operation extracts the uppercased first token of a SQL statement.
func operation(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return ""
	}
	if idx := strings.IndexAny(sql, " \t\n\r"); idx != -1 {
		return strings.ToUpper(sql[:idx])
	}
	return strings.ToUpper(sql)
}
