// Package ddl parses DDL scripts into dialect-neutral table records.
//
// The grammar is a small recursive-descent parser over the token stream
// produced by sqltoken. It accepts the union of the supported dialects'
// CREATE TABLE, CREATE INDEX, ALTER TABLE ... ADD, CREATE TYPE ... AS ENUM and
// COMMENT ON forms. Every other statement is ignored.
package ddl

import (
	"slices"
	"strings"
)

// ParsedTable is one table as written in the source script, before any type
// normalization.
type ParsedTable struct {
	Name        string
	Namespace   string
	Columns     []ParsedColumn
	PrimaryKey  []string
	ForeignKeys []ParsedForeignKey
	Uniques     [][]string
	Indexes     []ParsedIndex
	Checks      []ParsedCheck
	Comment     string
}

// ParsedColumn is one column definition with its raw type spelling.
type ParsedColumn struct {
	Name          string
	Type          string   // upper-cased type name, e.g. "NVARCHAR", "DOUBLE PRECISION"
	Args          []string // type arguments, e.g. ["10", "2"] or ["MAX"]
	Array         bool
	Unsigned      bool
	Nullable      bool
	Unique        bool
	PrimaryKey    bool
	AutoIncrement bool
	Default       *string
	Comment       string
	EnumValues    []string
	References    *ParsedReference
}

// ParsedReference is an inline column-level REFERENCES clause.
type ParsedReference struct {
	Table    string
	Columns  []string
	OnDelete string
	OnUpdate string
}

// ParsedForeignKey is a table-level foreign key. Columns and RefColumns are
// parallel.
type ParsedForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// ParsedIndex is a secondary index.
type ParsedIndex struct {
	Name    string
	Columns []string
	Unique  bool
}

// ParsedCheck is a check constraint with its raw expression.
type ParsedCheck struct {
	Name       string
	Expression string
}

// ParsedEnum is a named enumeration type.
type ParsedEnum struct {
	Name   string
	Values []string
}

// Result is the outcome of parsing one script. Skipped lists the DDL
// statements that could not be parsed; the remaining tables are still valid.
type Result struct {
	Tables  []ParsedTable
	Enums   []ParsedEnum
	Skipped []*ParseError
}

// RawType returns the type as written, e.g. "NVARCHAR(255)".
func (c ParsedColumn) RawType() string {
	var b strings.Builder
	b.WriteString(c.Type)
	if len(c.Args) > 0 {
		b.WriteString("(")
		b.WriteString(strings.Join(c.Args, ","))
		b.WriteString(")")
	}
	if c.Array {
		b.WriteString("[]")
	}
	return b.String()
}

// Table returns the parsed table with the given name (case-insensitive), or nil.
func (r *Result) Table(name string) *ParsedTable {
	for i := range r.Tables {
		if strings.EqualFold(r.Tables[i].Name, name) {
			return &r.Tables[i]
		}
	}
	return nil
}

// clone copies t deeply enough that changes to the copy's slices leave t
// untouched.
func (t *ParsedTable) clone() *ParsedTable {
	out := *t
	out.Columns = slices.Clone(t.Columns)
	out.PrimaryKey = slices.Clone(t.PrimaryKey)
	out.ForeignKeys = slices.Clone(t.ForeignKeys)
	out.Uniques = slices.Clone(t.Uniques)
	out.Indexes = slices.Clone(t.Indexes)
	out.Checks = slices.Clone(t.Checks)
	return &out
}

// Column returns the column with the given name (case-insensitive), or nil.
func (t *ParsedTable) Column(name string) *ParsedColumn {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}
