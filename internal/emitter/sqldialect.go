package emitter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/tordrt/schemabridge/internal/schema"
)

// sqlDialect describes how one SQL target spells types, defaults, keys and
// identifiers.
type sqlDialect struct {
	quote func(string) string
	types map[schema.Type]string
	// fallback is the generic text type for types the table does not cover.
	fallback string
	// stringType formats a sized string type, e.g. VARCHAR(%d).
	stringType string
	// decimalType formats DECIMAL(p,s); bareDecimal is used without precision.
	decimalType string
	bareDecimal string

	now, uuid           string
	boolTrue, boolFalse string

	// identity is appended after the type of auto-increment columns. Empty
	// means serial pseudo-types (PostgreSQL) or rowid aliasing (SQLite).
	identity string

	serial      bool // SERIAL/BIGSERIAL pseudo-types
	qualify     bool // namespace-qualified names
	nativeEnums bool // CREATE TYPE ... AS ENUM
	inlineEnums bool // ENUM('a', 'b') column type
	inlineFKs   bool // no ALTER TABLE ADD CONSTRAINT support
	commentOn   bool // COMMENT ON TABLE/COLUMN statements
	inlineNotes bool // COMMENT '...' column and table options
	onUpdate    bool // foreign keys accept ON UPDATE
	noRestrict  bool // RESTRICT is spelled NO ACTION
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func bracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

var postgresDialect = &sqlDialect{
	quote: pq.QuoteIdentifier,
	types: map[schema.Type]string{
		schema.TypeText:      "TEXT",
		schema.TypeInteger:   "INTEGER",
		schema.TypeBigint:    "BIGINT",
		schema.TypeNumber:    "DOUBLE PRECISION",
		schema.TypeBoolean:   "BOOLEAN",
		schema.TypeDate:      "DATE",
		schema.TypeTimestamp: "TIMESTAMP",
		schema.TypeUUID:      "UUID",
		schema.TypeJSON:      "JSONB",
		schema.TypeBinary:    "BYTEA",
	},
	fallback:    "TEXT",
	stringType:  "VARCHAR(%d)",
	decimalType: "DECIMAL(%d,%d)",
	bareDecimal: "DECIMAL",
	now:         "now()",
	uuid:        "gen_random_uuid()",
	boolTrue:    "TRUE",
	boolFalse:   "FALSE",
	serial:      true,
	qualify:     true,
	nativeEnums: true,
	commentOn:   true,
	onUpdate:    true,
}

var mysqlDialect = &sqlDialect{
	quote: backtick,
	types: map[schema.Type]string{
		schema.TypeText:      "TEXT",
		schema.TypeInteger:   "INT",
		schema.TypeBigint:    "BIGINT",
		schema.TypeNumber:    "DOUBLE",
		schema.TypeBoolean:   "TINYINT(1)",
		schema.TypeDate:      "DATE",
		schema.TypeTimestamp: "DATETIME",
		schema.TypeUUID:      "CHAR(36)",
		schema.TypeJSON:      "JSON",
		schema.TypeBinary:    "BLOB",
	},
	fallback:    "TEXT",
	stringType:  "VARCHAR(%d)",
	decimalType: "DECIMAL(%d,%d)",
	bareDecimal: "DECIMAL(10,2)",
	now:         "CURRENT_TIMESTAMP",
	uuid:        "(UUID())",
	boolTrue:    "TRUE",
	boolFalse:   "FALSE",
	identity:    "AUTO_INCREMENT",
	inlineEnums: true,
	inlineNotes: true,
	onUpdate:    true,
}

var sqlServerDialect = &sqlDialect{
	quote: bracket,
	types: map[schema.Type]string{
		schema.TypeText:      "NVARCHAR(MAX)",
		schema.TypeInteger:   "INT",
		schema.TypeBigint:    "BIGINT",
		schema.TypeNumber:    "FLOAT",
		schema.TypeBoolean:   "BIT",
		schema.TypeDate:      "DATE",
		schema.TypeTimestamp: "DATETIME2",
		schema.TypeUUID:      "UNIQUEIDENTIFIER",
		schema.TypeJSON:      "NVARCHAR(MAX)",
		schema.TypeBinary:    "VARBINARY(MAX)",
	},
	fallback:    "NVARCHAR(MAX)",
	stringType:  "NVARCHAR(%d)",
	decimalType: "DECIMAL(%d,%d)",
	bareDecimal: "DECIMAL(18,2)",
	now:         "GETDATE()",
	uuid:        "NEWID()",
	boolTrue:    "1",
	boolFalse:   "0",
	identity:    "IDENTITY(1,1)",
	onUpdate:    true,
	noRestrict:  true,
}

var oracleDialect = &sqlDialect{
	quote: doubleQuote,
	types: map[schema.Type]string{
		schema.TypeText:      "CLOB",
		schema.TypeInteger:   "NUMBER(10)",
		schema.TypeBigint:    "NUMBER(19)",
		schema.TypeNumber:    "BINARY_DOUBLE",
		schema.TypeBoolean:   "NUMBER(1)",
		schema.TypeDate:      "DATE",
		schema.TypeTimestamp: "TIMESTAMP",
		schema.TypeUUID:      "RAW(16)",
		schema.TypeJSON:      "JSON",
		schema.TypeBinary:    "BLOB",
	},
	fallback:    "CLOB",
	stringType:  "VARCHAR2(%d)",
	decimalType: "NUMBER(%d,%d)",
	bareDecimal: "NUMBER(38,10)",
	now:         "SYSTIMESTAMP",
	uuid:        "SYS_GUID()",
	boolTrue:    "1",
	boolFalse:   "0",
	identity:    "GENERATED BY DEFAULT AS IDENTITY",
	commentOn:   true,
}

var sqliteDialect = &sqlDialect{
	quote: doubleQuote,
	types: map[schema.Type]string{
		schema.TypeText:      "TEXT",
		schema.TypeInteger:   "INTEGER",
		schema.TypeBigint:    "BIGINT",
		schema.TypeNumber:    "REAL",
		schema.TypeBoolean:   "BOOLEAN",
		schema.TypeDate:      "DATE",
		schema.TypeTimestamp: "DATETIME",
		schema.TypeUUID:      "CHAR(36)",
		schema.TypeJSON:      "JSON",
		schema.TypeBinary:    "BLOB",
	},
	fallback:    "TEXT",
	stringType:  "VARCHAR(%d)",
	decimalType: "NUMERIC(%d,%d)",
	bareDecimal: "NUMERIC",
	now:         "CURRENT_TIMESTAMP",
	uuid:        "(lower(hex(randomblob(16))))",
	boolTrue:    "1",
	boolFalse:   "0",
	inlineFKs:   true,
	onUpdate:    true,
}

func sqlDialectFor(t Target) *sqlDialect {
	switch t {
	case MySQL:
		return mysqlDialect
	case SQLServer:
		return sqlServerDialect
	case Oracle:
		return oracleDialect
	case SQLite:
		return sqliteDialect
	}
	return postgresDialect
}

// defaultStringLength is used for string columns without a declared length.
const defaultStringLength = 255

// columnType renders the type of a. The second result is false when the type
// is outside the canonical vocabulary and the generic text type was used.
func (d *sqlDialect) columnType(a schema.Attribute) (string, bool) {
	switch a.Type {
	case schema.TypeString:
		n := a.Length
		if n <= 0 {
			n = defaultStringLength
		}
		return fmt.Sprintf(d.stringType, n), true
	case schema.TypeDecimal:
		if a.Precision > 0 {
			return fmt.Sprintf(d.decimalType, a.Precision, a.Scale), true
		}
		return d.bareDecimal, true
	}
	if t, ok := d.types[a.Type]; ok {
		return t, true
	}
	return d.fallback, false
}

// defaultValue renders a default from the shared vocabulary.
func (d *sqlDialect) defaultValue(def string) string {
	switch def {
	case schema.DefaultNow:
		return d.now
	case schema.DefaultUUID:
		return d.uuid
	case schema.DefaultTrue:
		return d.boolTrue
	case schema.DefaultFalse:
		return d.boolFalse
	}
	return def
}

// action renders a referential action the target accepts, or "".
func (d *sqlDialect) action(a string) string {
	a = strings.ToUpper(strings.TrimSpace(a))
	if d == oracleDialect && a != "CASCADE" && a != "SET NULL" {
		return ""
	}
	if a == "RESTRICT" && d.noRestrict {
		return "NO ACTION"
	}
	return a
}
