// Package instrument provides the shared machinery behind the tracewrap
// integrations: a registry of restorable interception handles, a
// context-scoped suppression flag for avoiding duplicate nested spans,
// URL exclusion lists, and reflective attribute extraction.
//
// Application code normally does not use this package directly; it is the
// common core consumed by the sql, pgx, httpclient, httpserver, and redis
// packages.
//
// # Interception handles
//
// An integration that swaps something in place (an http.Client transport,
// a registered driver) implements Interceptable and registers itself:
//
//	reg := instrument.NewRegistry(logger)
//	reg.Install("httpclient", handle)
//	...
//	reg.Remove("httpclient")
//
// Install and Remove are idempotent: a duplicate Install or a Remove
// without a prior Install logs a warning and does nothing. At most one
// interception layer per name is ever active.
//
// # Suppression
//
// When an instrumented call delegates to another instrumented call on the
// same logical chain (an HTTP "request" helper that drives "send"), the
// outer layer marks the context suppressed so the inner layer produces no
// second span:
//
//	ctx = instrument.WithSuppressed(ctx)
//	resp, err := next(ctx, req)
//
// The flag lives in the context, so concurrent call chains never observe
// each other's suppression state.
package instrument
