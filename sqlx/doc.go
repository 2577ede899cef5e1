// Package sqlx opens github.com/jmoiron/sqlx handles through the
// instrumented database/sql driver.
//
// sqlx is a thin veneer over *sql.DB, so a handle opened here gets
// tracing for free on every method, GetContext and NamedExecContext
// included. The spans come from the driver layer; this package adds no
// second span per call, it only routes the open through the wrapped
// driver.
//
//	db, err := tracewrapsqlx.Connect(ctx, "postgres", dsn,
//	    tracewrapsql.WithDBSystem("postgresql"),
//	    tracewrapsql.WithDBName("myapp"),
//	)
//
//	var user User
//	err = db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", 1)
package sqlx
