package dialect

import (
	"strconv"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
)

type oracle struct{}

var oracleTypes = map[string]string{
	"VARCHAR2":                       "VARCHAR",
	"NVARCHAR2":                      "VARCHAR",
	"NCHAR":                          "CHAR",
	"CLOB":                           "TEXT",
	"NCLOB":                          "TEXT",
	"LONG":                           "TEXT",
	"BINARY_DOUBLE":                  "DOUBLE",
	"BINARY_FLOAT":                   "REAL",
	"BLOB":                           "BINARY",
	"LONG RAW":                       "BINARY",
	"RAW":                            "BINARY",
	"INT":                            "INTEGER",
	"TIMESTAMP WITH TIME ZONE":       "TIMESTAMP",
	"TIMESTAMP WITH LOCAL TIME ZONE": "TIMESTAMP",
}

var (
	oracleNow  = set("SYSDATE", "SYSTIMESTAMP", "CURRENT_TIMESTAMP", "CURRENT_DATE", "LOCALTIMESTAMP")
	oracleUUID = set("SYS_GUID()")
)

func (oracle) Parse(script string, opts schema.Options) *ddl.Result {
	return parseSQL(ddl.Grammar{}, script, opts)
}

func (oracle) NormalizeType(col *ddl.ParsedColumn) {
	switch {
	case col.Type == "NUMBER" && (len(col.Args) == 1 || len(col.Args) == 2 && col.Args[1] == "0"):
		// NUMBER(p) and NUMBER(p,0) hold whole numbers; NUMBER(*,0) is the
		// full 38 digits
		p, err := strconv.Atoi(col.Args[0])
		if err != nil {
			if col.Args[0] != "*" {
				break
			}
			p = 38
		}
		col.Args = nil
		switch {
		case p == 1:
			col.Type = "BOOLEAN"
		case p <= 10:
			col.Type = "INTEGER"
		default:
			col.Type = "BIGINT"
		}
		return
	case col.Type == "NUMBER" && len(col.Args) == 0:
		col.Type = "DOUBLE"
		return
	case col.Type == "NUMBER":
		col.Type = "DECIMAL"
		return
	case col.Type == "RAW" && argIs(col, "16"):
		col.Type = "UUID"
		col.Args = nil
		return
	}
	rename(col, oracleTypes)
}

func (oracle) NormalizeDefault(expr string) string {
	return rewriteDefault(expr, oracleNow, oracleUUID)
}
