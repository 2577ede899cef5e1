package sql

import (
	"context"
	"database/sql/driver"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Compile-time interface check.
var _ driver.Tx = (*otelTx)(nil)

// otelTx wraps a driver.Tx with OpenTelemetry instrumentation.
type otelTx struct {
	tx        driver.Tx
	cfg       *config
	connAttrs []attribute.KeyValue
}

// newOtelTx creates a new instrumented transaction.
func newOtelTx(tx driver.Tx, cfg *config, connAttrs []attribute.KeyValue) *otelTx {
	return &otelTx{
		tx:        tx,
		cfg:       cfg,
		connAttrs: connAttrs,
	}
}

// Commit implements driver.Tx.
func (t *otelTx) Commit() error {
	return t.traced("COMMIT", t.tx.Commit)
}

// Rollback implements driver.Tx.
func (t *otelTx) Rollback() error {
	return t.traced("ROLLBACK", t.tx.Rollback)
}

// traced runs a transaction finalizer under a span. driver.Tx carries no
// context, so the span starts from the background context.
func (t *otelTx) traced(name string, fn func() error) error {
	_, span := t.cfg.Tracer.Start(context.Background(), name,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	if span.IsRecording() {
		span.SetAttributes(t.cfg.baseAttributes()...)
		span.SetAttributes(t.connAttrs...)
	}

	err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
