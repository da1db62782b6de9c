package dialect

import (
	"strconv"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
)

// TypeInfo is the canonical form of a normalized column type.
type TypeInfo struct {
	Type      schema.Type
	Length    int
	Precision int
	Scale     int
}

// baseTypes covers the pre-canonical vocabulary shared by every dialect.
var baseTypes = map[string]schema.Type{
	"VARCHAR":   schema.TypeString,
	"CHAR":      schema.TypeString,
	"ENUM":      schema.TypeString,
	"OBJECTID":  schema.TypeString,
	"TEXT":      schema.TypeText,
	"SMALLINT":  schema.TypeInteger,
	"INTEGER":   schema.TypeInteger,
	Serial:      schema.TypeInteger,
	"BIGINT":    schema.TypeBigint,
	BigSerial:   schema.TypeBigint,
	"DECIMAL":   schema.TypeDecimal,
	"NUMERIC":   schema.TypeDecimal,
	"FLOAT":     schema.TypeNumber,
	"REAL":      schema.TypeNumber,
	"DOUBLE":    schema.TypeNumber,
	"BOOLEAN":   schema.TypeBoolean,
	"DATE":      schema.TypeDate,
	"TIMESTAMP": schema.TypeTimestamp,
	"TIME":      schema.TypeTimestamp,
	"UUID":      schema.TypeUUID,
	"JSON":      schema.TypeJSON,
	"BINARY":    schema.TypeBinary,
}

// dialectTypes holds the spellings that only one dialect leaves behind after
// its normalization pass.
var dialectTypes = map[Dialect]map[string]schema.Type{
	SQLServer: {
		"FLOAT":       schema.TypeNumber,
		"SQL_VARIANT": schema.TypeText,
		"HIERARCHYID": schema.TypeString,
		"ROWVERSION":  schema.TypeBinary,
		"SYSNAME":     schema.TypeString,
		"GEOGRAPHY":   schema.TypeBinary,
		"GEOMETRY":    schema.TypeBinary,
	},
	MySQL: {
		"YEAR":      schema.TypeInteger,
		"BIT":       schema.TypeInteger,
		"TIME":      schema.TypeTimestamp,
		"GEOMETRY":  schema.TypeBinary,
		"CHARACTER": schema.TypeString,
	},
	PostgreSQL: {
		"BIT":         schema.TypeString,
		"INET":        schema.TypeString,
		"CIDR":        schema.TypeString,
		"MACADDR":     schema.TypeString,
		"INTERVAL":    schema.TypeString,
		"XML":         schema.TypeText,
		"TSVECTOR":    schema.TypeText,
		"NAME":        schema.TypeString,
		"OID":         schema.TypeBigint,
		"SMALLSERIAL": schema.TypeInteger,
	},
	Oracle: {
		"FLOAT":    schema.TypeNumber,
		"ROWID":    schema.TypeString,
		"XMLTYPE":  schema.TypeText,
		"INTERVAL": schema.TypeString,
	},
	SQLite: {
		"STRING": schema.TypeText,
	},
	MongoDB: {
		"OBJECTID": schema.TypeString,
	},
}

// objectIDLength is the hex length of a MongoDB ObjectId.
const objectIDLength = 24

// Canonical maps a normalized column of dialect d to its canonical type. The
// second result is false when the spelling is unknown; the type then falls
// back to text.
func Canonical(d Dialect, col ddl.ParsedColumn) (TypeInfo, bool) {
	if col.Array {
		return TypeInfo{Type: schema.TypeJSON}, true
	}
	t, ok := dialectTypes[d][col.Type]
	if !ok {
		t, ok = baseTypes[col.Type]
	}
	if !ok {
		return TypeInfo{Type: schema.TypeText}, false
	}

	info := TypeInfo{Type: t}
	switch t {
	case schema.TypeString:
		info.Length = intArg(col.Args, 0)
		if col.Type == "OBJECTID" {
			info.Length = objectIDLength
		}
	case schema.TypeDecimal:
		info.Precision = intArg(col.Args, 0)
		info.Scale = intArg(col.Args, 1)
	}
	return info, true
}

func intArg(args []string, i int) int {
	if i >= len(args) {
		return 0
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
