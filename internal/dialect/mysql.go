package dialect

import (
	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/sqltoken"
)

type mySQL struct{}

var mySQLGrammar = ddl.Grammar{Quoting: sqltoken.Quoting{Backtick: true}}

var mySQLTypes = map[string]string{
	"INT":        "INTEGER",
	"MEDIUMINT":  "INTEGER",
	"TINYINT":    "SMALLINT",
	"DATETIME":   "TIMESTAMP",
	"TINYTEXT":   "TEXT",
	"MEDIUMTEXT": "TEXT",
	"LONGTEXT":   "TEXT",
	"BLOB":       "BINARY",
	"TINYBLOB":   "BINARY",
	"MEDIUMBLOB": "BINARY",
	"LONGBLOB":   "BINARY",
	"VARBINARY":  "BINARY",
	"BOOL":       "BOOLEAN",
	"SET":        "ENUM",
}

var (
	mySQLNow  = set("CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP()", "NOW()", "LOCALTIMESTAMP", "LOCALTIMESTAMP()", "UTC_TIMESTAMP()")
	mySQLUUID = set("UUID()")
)

func (mySQL) Parse(script string, opts schema.Options) *ddl.Result {
	return parseSQL(mySQLGrammar, script, opts)
}

func (mySQL) NormalizeType(col *ddl.ParsedColumn) {
	col.Unsigned = false
	switch {
	case col.Type == "TINYINT" && argIs(col, "1"), col.Type == "BIT" && argIs(col, "1"):
		col.Type = "BOOLEAN"
		col.Args = nil
		return
	case col.Type == "CHAR" && argIs(col, "36"):
		col.Type = "UUID"
		col.Args = nil
		return
	case col.Type == "INT" || col.Type == "INTEGER" || col.Type == "BIGINT" || col.Type == "SMALLINT" || col.Type == "TINYINT":
		// display widths carry no size information
		col.Args = nil
	}
	rename(col, mySQLTypes)
}

func (mySQL) NormalizeDefault(expr string) string {
	return rewriteDefault(expr, mySQLNow, mySQLUUID)
}
