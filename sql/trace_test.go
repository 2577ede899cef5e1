package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanName(t *testing.T) {
	type args struct {
		cfg   *config
		query string
	}

	tests := []struct {
		name     string
		args     args
		wantName string
	}{
		{
			name:     "given SELECT query, then returns SELECT",
			args:     args{cfg: &config{}, query: "SELECT * FROM users WHERE id = 1"},
			wantName: "SELECT",
		},
		{
			name:     "given INSERT query, then returns INSERT",
			args:     args{cfg: &config{}, query: "INSERT INTO users (name) VALUES ('test')"},
			wantName: "INSERT",
		},
		{
			name:     "given UPDATE query, then returns UPDATE",
			args:     args{cfg: &config{}, query: "UPDATE users SET name = 'test' WHERE id = 1"},
			wantName: "UPDATE",
		},
		{
			name:     "given lowercase query, then returns uppercase operation",
			args:     args{cfg: &config{}, query: "select * from users"},
			wantName: "SELECT",
		},
		{
			name:     "given empty query with db name, then falls back to db name",
			args:     args{cfg: &config{DBName: "orders"}, query: ""},
			wantName: "orders",
		},
		{
			name:     "given empty query without db name, then falls back to library name",
			args:     args{cfg: &config{}, query: ""},
			wantName: "sql",
		},
		{
			name:     "given whitespace only, then falls back like empty",
			args:     args{cfg: &config{DBName: "orders"}, query: "   "},
			wantName: "orders",
		},
		{
			name:     "given query with leading whitespace, then returns operation",
			args:     args{cfg: &config{}, query: "   SELECT * FROM users"},
			wantName: "SELECT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.args.cfg.spanName(tt.args.query)
			assert.Equal(t, tt.wantName, got)
		})
	}
}

func TestExtractOperation(t *testing.T) {
	type args struct {
		query string
	}

	tests := []struct {
		name          string
		args          args
		wantOperation string
	}{
		{
			name:          "given SELECT statement, then returns SELECT",
			args:          args{query: "SELECT id FROM users"},
			wantOperation: "SELECT",
		},
		{
			name:          "given INSERT statement, then returns INSERT",
			args:          args{query: "INSERT INTO users (id) VALUES (1)"},
			wantOperation: "INSERT",
		},
		{
			name:          "given DELETE statement, then returns DELETE",
			args:          args{query: "DELETE FROM users"},
			wantOperation: "DELETE",
		},
		{
			name:          "given CREATE statement, then returns CREATE",
			args:          args{query: "CREATE TABLE users (id INT)"},
			wantOperation: "CREATE",
		},
		{
			name:          "given empty string, then returns empty string",
			args:          args{query: ""},
			wantOperation: "",
		},
		{
			name:          "given single word command, then returns that word uppercased",
			args:          args{query: "COMMIT"},
			wantOperation: "COMMIT",
		},
		{
			name:          "given query with newline after operation, then returns operation",
			args:          args{query: "SELECT\n* FROM users"},
			wantOperation: "SELECT",
		},
		{
			name:          "given query with tab after operation, then returns operation",
			args:          args{query: "SELECT\t* FROM users"},
			wantOperation: "SELECT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractOperation(tt.args.query)
			assert.Equal(t, tt.wantOperation, got)
		})
	}
}

func TestDecodeStatement(t *testing.T) {
	type args struct {
		raw []byte
	}

	tests := []struct {
		name     string
		args     args
		wantStmt string
	}{
		{
			name:     "given valid utf8 bytes, then returns them verbatim",
			args:     args{raw: []byte("SELECT 1")},
			wantStmt: "SELECT 1",
		},
		{
			name:     "given invalid byte, then replaces without failing",
			args:     args{raw: []byte("SEL\xffECT")},
			wantStmt: "SEL�ECT",
		},
		{
			name:     "given empty input, then returns empty string",
			args:     args{raw: nil},
			wantStmt: "",
		},
		{
			name:     "given multibyte runes, then preserved",
			args:     args{raw: []byte("SELECT 'héllo'")},
			wantStmt: "SELECT 'héllo'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeStatement(tt.args.raw)
			assert.Equal(t, tt.wantStmt, got)
		})
	}
}

func TestDefaultQuerySanitizer(t *testing.T) {
	type args struct {
		query string
	}

	tests := []struct {
		name      string
		args      args
		wantQuery string
	}{
		{
			name:      "given query with string literal, then replaces with placeholder",
			args:      args{query: "SELECT * FROM users WHERE name = 'john'"},
			wantQuery: "SELECT * FROM users WHERE name = '?'",
		},
		{
			name:      "given query with numeric literal, then replaces with placeholder",
			args:      args{query: "SELECT * FROM users WHERE id = 123"},
			wantQuery: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:      "given query with multiple literals, then replaces all",
			args:      args{query: "SELECT * FROM users WHERE id = 1 AND name = 'test'"},
			wantQuery: "SELECT * FROM users WHERE id = ? AND name = '?'",
		},
		{
			name:      "given query with hex literal, then replaces with placeholder",
			args:      args{query: "SELECT * FROM users WHERE id = 0xDEADBEEF"},
			wantQuery: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:      "given query with float literal, then replaces with placeholder",
			args:      args{query: "SELECT * FROM products WHERE price = 19.99"},
			wantQuery: "SELECT * FROM products WHERE price = ?",
		},
		{
			name:      "given empty query, then returns empty",
			args:      args{query: ""},
			wantQuery: "",
		},
		{
			name:      "given query without literals, then returns unchanged",
			args:      args{query: "SELECT * FROM users"},
			wantQuery: "SELECT * FROM users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultQuerySanitizer(tt.args.query)
			assert.Equal(t, tt.wantQuery, got)
		})
	}
}

func TestBaseAttributes(t *testing.T) {
	type args struct {
		cfg *config
	}

	tests := []struct {
		name         string
		args         args
		wantCount    int
		wantContains map[string]string
	}{
		{
			name: "given config with all fields, then returns all attributes",
			args: args{
				cfg: &config{
					DBSystem:     "postgresql",
					DBName:       "testdb",
					InstanceName: "primary",
				},
			},
			wantCount: 3,
			wantContains: map[string]string{
				"db.system":   "postgresql",
				"db.name":     "testdb",
				"db.instance": "primary",
			},
		},
		{
			name:         "given empty config, then returns empty slice",
			args:         args{cfg: &config{}},
			wantCount:    0,
			wantContains: map[string]string{},
		},
		{
			name: "given config with only DBSystem, then returns one attribute",
			args: args{
				cfg: &config{DBSystem: "mysql"},
			},
			wantCount: 1,
			wantContains: map[string]string{
				"db.system": "mysql",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := tt.args.cfg.baseAttributes()
			assert.Len(t, attrs, tt.wantCount)

			attrMap := make(map[string]string)
			for _, attr := range attrs {
				attrMap[string(attr.Key)] = attr.Value.AsString()
			}

			for key, wantValue := range tt.wantContains {
				assert.Equal(t, wantValue, attrMap[key], "attribute %s", key)
			}
		})
	}
}

func TestQueryAttributes(t *testing.T) {
	type args struct {
		cfg   *config
		query string
	}

	tests := []struct {
		name         string
		args         args
		wantContains map[string]string
		wantMissing  []string
	}{
		{
			name: "given config with DB info, then includes statement and operation",
			args: args{
				cfg:   &config{DBSystem: "postgresql", DBName: "testdb"},
				query: "SELECT * FROM users",
			},
			wantContains: map[string]string{
				"db.system":    "postgresql",
				"db.name":      "testdb",
				"db.statement": "SELECT * FROM users",
				"db.operation": "SELECT",
			},
		},
		{
			name: "given config with sanitizer, then sanitizes query",
			args: args{
				cfg:   &config{DBSystem: "postgresql", QuerySanitizer: DefaultQuerySanitizer},
				query: "SELECT * FROM users WHERE id = 123",
			},
			wantContains: map[string]string{
				"db.statement": "SELECT * FROM users WHERE id = ?",
				"db.operation": "SELECT",
			},
		},
		{
			name: "given config with DisableQuery, then omits statement",
			args: args{
				cfg:   &config{DBSystem: "postgresql", DisableQuery: true},
				query: "SELECT * FROM users",
			},
			wantContains: map[string]string{
				"db.operation": "SELECT",
			},
			wantMissing: []string{"db.statement"},
		},
		{
			name: "given statement with invalid utf8, then decoded with replacement",
			args: args{
				cfg:   &config{},
				query: "SEL\xffECT",
			},
			wantContains: map[string]string{
				"db.statement": "SEL�ECT",
			},
		},
		{
			name: "given empty query, then operation is empty",
			args: args{
				cfg:   &config{DBSystem: "postgresql"},
				query: "",
			},
			wantContains: map[string]string{
				"db.system": "postgresql",
			},
			wantMissing: []string{"db.statement", "db.operation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := tt.args.cfg.queryAttributes(tt.args.query)

			attrMap := make(map[string]string)
			for _, attr := range attrs {
				attrMap[string(attr.Key)] = attr.Value.AsString()
			}

			for key, wantValue := range tt.wantContains {
				assert.Equal(t, wantValue, attrMap[key], "attribute %s", key)
			}

			for _, key := range tt.wantMissing {
				_, exists := attrMap[key]
				assert.False(t, exists, "attribute %s should be missing", key)
			}
		})
	}
}
