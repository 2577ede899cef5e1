package sql

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for database operations.
type metrics struct {
	queryDuration metric.Float64Histogram

	// Pool gauges, populated by registerPoolMetrics.
	openConnections metric.Int64ObservableGauge
	idleConnections metric.Int64ObservableGauge
	maxConnections  metric.Int64ObservableGauge
	usedConnections metric.Int64ObservableGauge
	waitCount       metric.Int64ObservableCounter
	waitDuration    metric.Float64ObservableCounter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	queryDuration, err := meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of database client operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{queryDuration: queryDuration}, nil
}

// registerPoolMetrics registers observable pool gauges backed by
// db.Stats(). Pool state only exists on *sql.DB, not at the driver
// layer where query metrics are recorded, hence the separate entry
// point.
func (m *metrics) registerPoolMetrics(
	meter metric.Meter,
	db *sql.DB,
	attrs []attribute.KeyValue,
) error {
	gauges := []struct {
		dest *metric.Int64ObservableGauge
		name string
		desc string
	}{
		{&m.openConnections, "db.client.connections.open", "Number of open connections in the pool"},
		{&m.idleConnections, "db.client.connections.idle", "Number of idle connections in the pool"},
		{&m.maxConnections, "db.client.connections.max", "Maximum number of connections allowed in the pool"},
		{&m.usedConnections, "db.client.connections.used", "Number of connections currently in use"},
	}
	for _, g := range gauges {
		gauge, err := meter.Int64ObservableGauge(g.name,
			metric.WithDescription(g.desc),
			metric.WithUnit("{connection}"),
		)
		if err != nil {
			return err
		}
		*g.dest = gauge
	}

	var err error
	m.waitCount, err = meter.Int64ObservableCounter(
		"db.client.connections.wait_count",
		metric.WithDescription("Total number of times waited for a connection"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.waitDuration, err = meter.Float64ObservableCounter(
		"db.client.connections.wait_duration",
		metric.WithDescription("Total time waited for connections in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	withAttrs := metric.WithAttributes(attrs...)
	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			stats := db.Stats()
			o.ObserveInt64(m.openConnections, int64(stats.OpenConnections), withAttrs)
			o.ObserveInt64(m.idleConnections, int64(stats.Idle), withAttrs)
			o.ObserveInt64(m.maxConnections, int64(stats.MaxOpenConnections), withAttrs)
			o.ObserveInt64(m.usedConnections, int64(stats.InUse), withAttrs)
			o.ObserveInt64(m.waitCount, stats.WaitCount, withAttrs)
			o.ObserveFloat64(m.waitDuration, stats.WaitDuration.Seconds(), withAttrs)
			return nil
		},
		m.openConnections,
		m.idleConnections,
		m.maxConnections,
		m.usedConnections,
		m.waitCount,
		m.waitDuration,
	)
	return err
}

// recordQueryDuration records one operation's latency with its outcome.
func (m *metrics) recordQueryDuration(
	ctx context.Context,
	duration time.Duration,
	operation string,
	attrs []attribute.KeyValue,
	err error,
) {
	if m == nil || m.queryDuration == nil {
		return
	}

	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs, attrs...)
	if operation != "" {
		allAttrs = append(allAttrs, attribute.String("db.operation", operation))
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	allAttrs = append(allAttrs, attribute.String("status", status))

	m.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(allAttrs...))
}

// RecordPoolMetrics registers connection pool metrics for a database.
// When db was opened through the wrapped driver, the db.system and
// db.name attributes are picked up from it; extra attributes are
// appended.
//
//	db, _ := tracewrapsql.Open("postgres", dsn,
//	    tracewrapsql.WithDBSystem("postgresql"),
//	)
//	err := tracewrapsql.RecordPoolMetrics(db, meter)
func RecordPoolMetrics(db *sql.DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if drv, ok := db.Driver().(*otelDriver); ok && drv.cfg != nil {
		attrs = append(drv.cfg.baseAttributes(), attrs...)
	}

	return (&metrics{}).registerPoolMetrics(meter, db, attrs)
}
