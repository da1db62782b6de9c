package dialect

import (
	"strings"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/sqltoken"
)

type sqlServer struct{}

var sqlServerGrammar = ddl.Grammar{
	Quoting:        sqltoken.Quoting{Bracket: true},
	BatchSeparator: true,
}

var sqlServerTypes = map[string]string{
	"NVARCHAR":         "VARCHAR",
	"NCHAR":            "CHAR",
	"NTEXT":            "TEXT",
	"INT":              "INTEGER",
	"TINYINT":          "SMALLINT",
	"BIT":              "BOOLEAN",
	"DATETIME":         "TIMESTAMP",
	"DATETIME2":        "TIMESTAMP",
	"SMALLDATETIME":    "TIMESTAMP",
	"DATETIMEOFFSET":   "TIMESTAMP",
	"UNIQUEIDENTIFIER": "UUID",
	"VARBINARY":        "BINARY",
	"IMAGE":            "BINARY",
	"XML":              "TEXT",
	"MONEY":            "DECIMAL",
	"SMALLMONEY":       "DECIMAL",
}

var (
	sqlServerNow  = set("GETDATE()", "SYSDATETIME()", "GETUTCDATE()", "SYSUTCDATETIME()", "CURRENT_TIMESTAMP", "SYSDATETIMEOFFSET()")
	sqlServerUUID = set("NEWID()", "NEWSEQUENTIALID()")
)

func (sqlServer) Parse(script string, opts schema.Options) *ddl.Result {
	return parseSQL(sqlServerGrammar, script, opts)
}

func (sqlServer) NormalizeType(col *ddl.ParsedColumn) {
	maxLen := argIs(col, "MAX")
	switch col.Type {
	case "MONEY":
		col.Args = []string{"19", "4"}
	case "SMALLMONEY":
		col.Args = []string{"10", "4"}
	}
	rename(col, sqlServerTypes)
	if maxLen {
		col.Args = nil
		if col.Type != "BINARY" {
			col.Type = "TEXT"
		}
	}
}

func (sqlServer) NormalizeDefault(expr string) string {
	// N'...' unicode literals
	if len(expr) > 2 && (expr[0] == 'N' || expr[0] == 'n') && expr[1] == '\'' {
		expr = expr[1:]
	}
	return rewriteDefault(strings.TrimSpace(expr), sqlServerNow, sqlServerUUID)
}
