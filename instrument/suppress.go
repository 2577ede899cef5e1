package instrument

import "context"

// suppressKey is the context key for the suppression flag.
type suppressKey struct{}

// WithSuppressed returns a context in which instrumentation is suppressed.
// Wrappers observing a suppressed context delegate directly without
// opening a span. The flag rides the context, so it is scoped to one
// logical call chain and restored automatically when the chain unwinds.
func WithSuppressed(ctx context.Context) context.Context {
	if IsSuppressed(ctx) {
		return ctx
	}
	return context.WithValue(ctx, suppressKey{}, true)
}

// IsSuppressed reports whether instrumentation is suppressed in ctx.
func IsSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressKey{}).(bool)
	return v
}
