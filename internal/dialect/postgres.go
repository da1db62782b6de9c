package dialect

import (
	"strings"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
)

type postgreSQL struct{}

var postgresTypes = map[string]string{
	"INT":                      "INTEGER",
	"INT4":                     "INTEGER",
	"INT2":                     "SMALLINT",
	"INT8":                     "BIGINT",
	"BOOL":                     "BOOLEAN",
	"FLOAT8":                   "DOUBLE",
	"DOUBLE PRECISION":         "DOUBLE",
	"FLOAT4":                   "REAL",
	"CHARACTER VARYING":        "VARCHAR",
	"CHARACTER":                "CHAR",
	"BPCHAR":                   "CHAR",
	"TIMESTAMPTZ":              "TIMESTAMP",
	"TIMESTAMP WITH TIME ZONE": "TIMESTAMP",
	"TIMETZ":                   "TIME",
	"TIME WITH TIME ZONE":      "TIME",
	"JSONB":                    "JSON",
	"BYTEA":                    "BINARY",
	"CITEXT":                   "TEXT",
	"MONEY":                    "DECIMAL",
}

var (
	postgresNow  = set("NOW()", "CURRENT_TIMESTAMP", "LOCALTIMESTAMP", "TRANSACTION_TIMESTAMP()", "STATEMENT_TIMESTAMP()", "CLOCK_TIMESTAMP()")
	postgresUUID = set("GEN_RANDOM_UUID()", "UUID_GENERATE_V4()", "UUID_GENERATE_V1()", "UUIDV7()")
)

func (postgreSQL) Parse(script string, opts schema.Options) *ddl.Result {
	return parseSQL(ddl.Grammar{}, script, opts)
}

func (postgreSQL) NormalizeType(col *ddl.ParsedColumn) {
	if col.Default != nil && strings.HasPrefix(strings.ToLower(strings.TrimSpace(*col.Default)), "nextval(") {
		col.AutoIncrement = true
		col.Default = nil
	}
	rename(col, postgresTypes)
}

func (postgreSQL) NormalizeDefault(expr string) string {
	return rewriteDefault(StripParens(stripCast(expr)), postgresNow, postgresUUID)
}

// stripCast drops a trailing ::type cast outside quotes, e.g.
// 'new'::character varying becomes 'new'.
func stripCast(expr string) string {
	inQuote := false
	for i := 0; i+1 < len(expr); i++ {
		switch {
		case expr[i] == '\'':
			inQuote = !inQuote
		case !inQuote && expr[i] == ':' && expr[i+1] == ':':
			return strings.TrimSpace(expr[:i])
		}
	}
	return expr
}
