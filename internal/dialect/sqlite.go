package dialect

import (
	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/sqltoken"
)

type sqlite struct{}

// SQLite also accepts MySQL and SQL Server identifier quotes.
var sqliteGrammar = ddl.Grammar{Quoting: sqltoken.Quoting{Backtick: true, Bracket: true}}

var sqliteTypes = map[string]string{
	"INT":      "INTEGER",
	"DATETIME": "TIMESTAMP",
	"BLOB":     "BINARY",
	"CLOB":     "TEXT",
	"BOOL":     "BOOLEAN",
	"NUMERIC":  "DECIMAL",
}

var (
	sqliteNow  = set("CURRENT_TIMESTAMP", "DATETIME('NOW')", "DATETIME('NOW','LOCALTIME')", "STRFTIME('%S','NOW')")
	sqliteUUID = set("LOWER(HEX(RANDOMBLOB(16)))", "HEX(RANDOMBLOB(16))")
)

func (sqlite) Parse(script string, opts schema.Options) *ddl.Result {
	return parseSQL(sqliteGrammar, script, opts)
}

func (sqlite) NormalizeType(col *ddl.ParsedColumn) {
	if col.Type == "CHAR" && argIs(col, "36") {
		col.Type = "UUID"
		col.Args = nil
		return
	}
	rename(col, sqliteTypes)
}

func (sqlite) NormalizeDefault(expr string) string {
	return rewriteDefault(expr, sqliteNow, sqliteUUID)
}
