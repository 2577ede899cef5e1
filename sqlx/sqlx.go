package sqlx

import (
	"context"
	stdsql "database/sql"

	"github.com/jmoiron/sqlx"

	tracewrapsql "github.com/arclight-labs/tracewrap-go/sql"
)

// Open opens a *sqlx.DB backed by the instrumented driver. Every query
// issued through sqlx, including the struct-scanning helpers, is traced
// at the driver layer.
func Open(driverName, dsn string, opts ...tracewrapsql.Option) (*sqlx.DB, error) {
	db, err := tracewrapsql.Open(driverName, dsn, opts...)
	if err != nil {
		return nil, err
	}

	// The original driver name keeps sqlx's bindvar detection intact.
	return sqlx.NewDb(db, driverName), nil
}

// Connect is Open followed by a ping.
func Connect(ctx context.Context, driverName, dsn string, opts ...tracewrapsql.Option) (*sqlx.DB, error) {
	db, err := Open(driverName, dsn, opts...)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// MustConnect is like Connect but panics on error.
func MustConnect(ctx context.Context, driverName, dsn string, opts ...tracewrapsql.Option) *sqlx.DB {
	db, err := Connect(ctx, driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// NewDB wraps an already instrumented *sql.DB with sqlx. The driver name
// selects the bindvar style, so pass the name of the underlying driver,
// not the wrapped registration name.
func NewDB(db *stdsql.DB, driverName string) *sqlx.DB {
	return sqlx.NewDb(db, driverName)
}
