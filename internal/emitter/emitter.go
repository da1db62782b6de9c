// Package emitter renders a canonical schema into SQL DDL, entity-class
// models and documentation formats.
package emitter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tordrt/schemabridge/internal/schema"
)

// Formatter writes one schema in one output format.
type Formatter interface {
	Format(s *schema.Schema) error
}

// NewFormatter returns the formatter for target writing to w.
func NewFormatter(w io.Writer, target Target, opts schema.Options) (Formatter, error) {
	switch target {
	case PostgreSQL, Supabase, MySQL, SQLServer, Oracle, SQLite:
		return NewSQLFormatter(w, target, opts), nil
	case Prisma:
		return NewPrismaFormatter(w, opts), nil
	case TypeORM:
		return NewTypeORMFormatter(w, opts), nil
	case GORM:
		return NewGORMFormatter(w, opts), nil
	case DBML:
		return NewDBMLFormatter(w, opts), nil
	case Markdown:
		return NewMarkdownFormatter(w, opts), nil
	case Text:
		return NewTextFormatter(w, opts), nil
	case Mermaid:
		return NewMermaidFormatter(w, opts), nil
	}
	return nil, &schema.UnsupportedDialectError{Kind: schema.KindTarget, Name: target.String(), Supported: TargetNames()}
}

// Emit renders s for target. The output is deterministic for a given schema
// and options except for the generation header, whose time comes from
// opts.Now. An invalid schema yields a *schema.ValidationError and no
// output.
func Emit(s *schema.Schema, target Target, opts schema.Options) (string, error) {
	var b strings.Builder
	if err := EmitTo(&b, s, target, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// EmitTo is Emit writing to w. Nothing is written when validation fails.
func EmitTo(w io.Writer, s *schema.Schema, target Target, opts schema.Options) error {
	if err := schema.Validate(s, opts.Strict); err != nil {
		return err
	}
	f, err := NewFormatter(w, target, opts)
	if err != nil {
		return err
	}
	if opts.AddTimestamps {
		s = withTimestamps(s)
	}
	if err := f.Format(s); err != nil {
		return fmt.Errorf("emit %s: %w", target, err)
	}
	return nil
}

// header is the single line of output that changes between runs.
func header(opts schema.Options) string {
	return "Generated by schemabridge at " + opts.Timestamp().Format(time.RFC3339)
}

// Timestamp column names added by Options.AddTimestamps.
const (
	createdAtColumn = "created_at"
	updatedAtColumn = "updated_at"
)

// withTimestamps returns a copy of s where every entity has created_at and
// updated_at columns. s itself is not modified.
func withTimestamps(s *schema.Schema) *schema.Schema {
	out := *s
	out.Entities = make([]schema.Entity, len(s.Entities))
	for i, e := range s.Entities {
		attrs := make([]schema.Attribute, len(e.Attributes), len(e.Attributes)+2)
		copy(attrs, e.Attributes)
		for _, name := range []string{createdAtColumn, updatedAtColumn} {
			if !e.HasAttribute(name) {
				attrs = append(attrs, schema.Attribute{
					Name:    name,
					Type:    schema.TypeTimestamp,
					Default: schema.DefaultNow,
				})
			}
		}
		e.Attributes = attrs
		out.Entities[i] = e
	}
	return &out
}

// typeLabel returns the canonical type name with its size, as used by the
// documentation formats.
func typeLabel(a schema.Attribute) string {
	switch {
	case a.Type == schema.TypeString && a.Length > 0:
		return fmt.Sprintf("varchar(%d)", a.Length)
	case a.Type == schema.TypeString:
		return "varchar"
	case a.Type == schema.TypeDecimal && a.Precision > 0:
		return fmt.Sprintf("decimal(%d,%d)", a.Precision, a.Scale)
	}
	return string(a.Type)
}

// uniqueName names a multi-column unique constraint.
func uniqueName(table string, cols []string) string {
	return "uq_" + table + "_" + strings.Join(cols, "_")
}

// relationName returns the constraint name of r.
func relationName(r schema.Relation) string {
	if r.Name != "" {
		return r.Name
	}
	return "fk_" + r.SourceEntity + "_" + strings.Join(r.SourceColumns, "_")
}

// checkName names the n-th (1-based) check constraint of a table when the
// source did not.
func checkName(c schema.Check, n int) string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("chk_%s_%d", c.Entity, n)
}

// indexName names an index when the source did not.
func indexName(table string, idx schema.Index) string {
	if idx.Name != "" {
		return idx.Name
	}
	prefix := "idx_"
	if idx.Unique {
		prefix = "uidx_"
	}
	return prefix + table + "_" + strings.Join(idx.Columns, "_")
}

// singlePK reports whether a is the only primary key column of e.
func singlePK(e schema.Entity, a schema.Attribute) bool {
	pk := primaryKey(e)
	return len(pk) == 1 && pk[0] == a.Name
}

// primaryKey returns the primary key columns of e, from the entity or from
// the attribute flags.
func primaryKey(e schema.Entity) []string {
	if len(e.PrimaryKey) > 0 {
		return e.PrimaryKey
	}
	var pk []string
	for _, a := range e.Attributes {
		if a.IsPrimaryKey {
			pk = append(pk, a.Name)
		}
	}
	return pk
}

// isStringLiteral reports whether a default is a quoted string literal.
func isStringLiteral(def string) bool {
	return len(def) >= 2 && def[0] == '\'' && def[len(def)-1] == '\''
}

// unquoteLiteral strips the quotes of a SQL string literal and undoes
// doubled quotes.
func unquoteLiteral(def string) string {
	if !isStringLiteral(def) {
		return def
	}
	return strings.ReplaceAll(def[1:len(def)-1], "''", "'")
}

// sqlLiteral quotes s as a SQL string literal.
func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
