package sql

import (
	"database/sql/driver"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/arclight-labs/tracewrap-go/instrument"
)

// extractConnAttributes resolves the configured dotted paths against the
// raw driver connection, once, when the connection is wrapped. Paths that
// do not resolve are skipped without logging; driver object shapes differ
// and a miss is the expected common case.
func extractConnAttributes(conn any, paths map[string]string) []attribute.KeyValue {
	if len(paths) == 0 || conn == nil {
		return nil
	}

	attrs := make([]attribute.KeyValue, 0, len(paths))
	for key, path := range paths {
		val, ok := instrument.LookupPath(conn, path)
		if !ok || val == nil {
			continue
		}
		attrs = append(attrs, connAttribute(key, val))
	}
	return attrs
}

// connAttribute converts an extracted value to a typed attribute.
func connAttribute(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case string:
		return attribute.String(key, v)
	case []byte:
		return attribute.String(key, DecodeStatement(v))
	case int:
		return attribute.Int(key, v)
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case uint16:
		return attribute.Int(key, int(v))
	case uint32:
		return attribute.Int64(key, int64(v))
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

// formatParameters renders statement arguments for the
// "db.statement.parameters" attribute. Called only when a span is
// recording and parameter capture is enabled.
func formatParameters(args []driver.NamedValue) string {
	return fmt.Sprint(namedValueToValue(args))
}
