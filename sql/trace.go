package sql

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sanitizeRules drive DefaultQuerySanitizer, applied in order: quoted
// strings first so their contents are gone before the literal rules run.
var sanitizeRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`'(?:[^'\\]|\\.)*'`), "'?'"}, // 'john', 'it\'s'
	{regexp.MustCompile(`0[xX][0-9a-fA-F]+`), "?"},   // 0xDEADBEEF
	{regexp.MustCompile(`\b\d+\.?\d*\b`), "?"},       // 123, 45.67
}

// spanName returns the span name for a statement. Resolution order: the
// SQL operation (first token), the configured database name, the library
// name. Span names must never be empty.
//
//	cfg.spanName("SELECT * FROM users") // "SELECT"
//	cfg.spanName("")                    // the db name, or "sql"
func (cfg *config) spanName(query string) string {
	if op := extractOperation(query); op != "" {
		return op
	}
	if cfg.DBName != "" {
		return cfg.DBName
	}
	return "sql"
}

// extractOperation returns the uppercased first word of a statement, or
// "" for an empty one. Recorded as the db.operation attribute.
func extractOperation(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	if i := strings.IndexAny(query, " \t\n\r"); i >= 0 {
		query = query[:i]
	}
	return strings.ToUpper(query)
}

// DecodeStatement converts a raw statement to a valid UTF-8 string.
// Statements arriving as bytes from a driver may contain invalid
// sequences; each invalid byte is replaced with U+FFFD rather than
// failing the trace.
func DecodeStatement(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// DefaultQuerySanitizer replaces string, numeric, and hex literals with
// placeholders so literal values never reach the trace backend.
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123")
//	// "SELECT * FROM users WHERE id = ?"
//
// It is regex-based and intentionally simple. Statements with exotic
// quoting may need a real SQL parser supplied via WithQuerySanitizer.
func DefaultQuerySanitizer(query string) string {
	for _, rule := range sanitizeRules {
		query = rule.pattern.ReplaceAllString(query, rule.replacement)
	}
	return query
}
