// Package redis provides OpenTelemetry tracing for go-redis clients
// through the client's hook mechanism.
//
// # Quick start
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	tracewrapredis.InstrumentClient(rdb)
//
// Every command produces one CLIENT span named after the command
// ("GET", "HSET"). A pipeline produces a single span, named by joining
// the pipelined command names, since the whole batch is one round trip.
// The db.statement attribute holds the command as it reads in
// redis-cli, truncated to a fixed bound so large payloads do not bloat
// spans.
//
// redis.Nil is a cache miss, not a failure; it never marks a span as an
// error.
package redis
