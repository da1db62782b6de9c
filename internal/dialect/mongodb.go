package dialect

import (
	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
)

type mongoDB struct{}

var mongoTypes = map[string]string{
	"STRING":   "VARCHAR",
	"INT":      "INTEGER",
	"NUMBER":   "INTEGER",
	"LONG":     "BIGINT",
	"DOUBLE":   "DOUBLE",
	"DECIMAL":  "DECIMAL",
	"BOOL":     "BOOLEAN",
	"DATE":     "TIMESTAMP",
	"OBJECTID": "OBJECTID",
	"OBJECT":   "JSON",
	"ARRAY":    "JSON",
	"BINDATA":  "BINARY",
	"UUID":     "UUID",
}

func (mongoDB) Parse(script string, opts schema.Options) *ddl.Result {
	return ddl.NewParser(ddl.Grammar{}, opts.PreserveComments, opts.Log()).ParseDocuments(script)
}

func (mongoDB) NormalizeType(col *ddl.ParsedColumn) {
	if col.Type == "STRING" && len(col.Args) == 0 && len(col.EnumValues) == 0 {
		col.Type = "TEXT"
		return
	}
	if len(col.EnumValues) > 0 {
		col.Type = "ENUM"
		return
	}
	rename(col, mongoTypes)
}

// Collections declare no defaults.
func (mongoDB) NormalizeDefault(expr string) string {
	return expr
}
