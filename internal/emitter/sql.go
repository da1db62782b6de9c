package emitter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// SQLFormatter renders DDL for one SQL target.
type SQLFormatter struct {
	writer io.Writer
	target Target
	opts   schema.Options
	d      *sqlDialect
}

// NewSQLFormatter creates a DDL formatter for a SQL target.
func NewSQLFormatter(w io.Writer, target Target, opts schema.Options) *SQLFormatter {
	return &SQLFormatter{writer: w, target: target, opts: opts, d: sqlDialectFor(target)}
}

// Format writes the complete script: enum types, tables in dependency order,
// indexes, comments, deferred foreign keys and row level security.
func (f *SQLFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "-- %s\n", header(f.opts))
	_, _ = fmt.Fprintf(f.writer, "-- Target: %s\n\n", f.target)

	if f.opts.CreateSchema && f.d.qualify {
		_, _ = fmt.Fprintf(f.writer, "CREATE SCHEMA IF NOT EXISTS %s;\n\n", f.d.quote(f.opts.Namespace()))
	}

	if f.d.nativeEnums && len(s.Enums) > 0 {
		f.section("Enum types")
		for _, en := range s.Enums {
			_, _ = fmt.Fprintln(f.writer, f.CreateEnum(en))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	ordered, forced := Order(s.Entities, s.Relations)
	for _, name := range forced {
		f.opts.Log().Debug("dependency cycle, placing table before its references", "table", name, "target", f.target.String())
	}

	f.section("Tables")
	for _, e := range ordered {
		f.WriteCreateTable(s, e)
		_, _ = fmt.Fprintln(f.writer)
	}

	f.writeIndexes(ordered)
	if f.opts.IncludeComments && f.d.commentOn {
		f.writeComments(ordered)
	}
	if !f.d.inlineFKs {
		f.writeForeignKeys(s, ordered)
	}
	if f.opts.WithRLS && (f.target == PostgreSQL || f.target == Supabase) {
		f.writePolicies(ordered)
	}
	return nil
}

func (f *SQLFormatter) section(title string) {
	if f.opts.IncludeComments {
		_, _ = fmt.Fprintf(f.writer, "-- %s\n", title)
	}
}

// QuoteIdent quotes a column or constraint name for the target.
func (f *SQLFormatter) QuoteIdent(name string) string {
	return f.d.quote(name)
}

// QuoteTable quotes a table or type name, qualified with the namespace where
// the target supports it.
func (f *SQLFormatter) QuoteTable(name string) string {
	if f.d.qualify {
		return f.d.quote(f.opts.Namespace()) + "." + f.d.quote(name)
	}
	return f.d.quote(name)
}

// WriteCreateTable writes the CREATE TABLE statement of e.
func (f *SQLFormatter) WriteCreateTable(s *schema.Schema, e schema.Entity) {
	if f.opts.IncludeComments && e.Comment != "" && !f.d.commentOn && !f.d.inlineNotes {
		_, _ = fmt.Fprintf(f.writer, "-- %s: %s\n", e.Name, e.Comment)
	}

	var lines []string
	var enumChecks []string
	for _, a := range e.Attributes {
		def, check := f.ColumnDefinition(s, e, a)
		lines = append(lines, def)
		if check != "" {
			enumChecks = append(enumChecks, check)
		}
	}

	if pk := primaryKey(e); len(pk) > 1 {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", f.d.quote("pk_"+e.Name), f.columnList(pk)))
	}
	for _, u := range e.Uniques {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", f.d.quote(uniqueName(e.Name, u)), f.columnList(u)))
	}
	for i, c := range s.ChecksFor(e.Name) {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", f.d.quote(checkName(c, i+1)), c.Expression))
	}
	lines = append(lines, enumChecks...)
	if f.d.inlineFKs {
		for _, r := range foreignKeys(s, e.Name) {
			lines = append(lines, "CONSTRAINT "+f.d.quote(relationName(r))+" "+f.references(r))
		}
	}

	_, _ = fmt.Fprintf(f.writer, "CREATE TABLE %s (\n", f.QuoteTable(e.Name))
	_, _ = fmt.Fprintf(f.writer, "    %s\n)", strings.Join(lines, ",\n    "))
	if f.opts.IncludeComments && f.d.inlineNotes && e.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, " COMMENT=%s", sqlLiteral(e.Comment))
	}
	_, _ = fmt.Fprintln(f.writer, ";")
}

// ColumnDefinition renders one column. The second result is a CHECK
// constraint emulating an enum on targets without enum types, or "".
func (f *SQLFormatter) ColumnDefinition(s *schema.Schema, e schema.Entity, a schema.Attribute) (string, string) {
	pk := singlePK(e, a)
	typ, check := f.columnType(s, e, a)

	parts := []string{f.d.quote(a.Name), typ}
	inlinePK := pk
	switch {
	case !a.IsAutoIncrement:
	case f.d.identity != "":
		parts = append(parts, f.d.identity)
	case f.target == SQLite && pk && isIntegral(a.Type):
		parts[1] = "INTEGER PRIMARY KEY AUTOINCREMENT"
		inlinePK = false
	case f.d.serial && a.Type == schema.TypeBigint:
		parts[1] = "BIGSERIAL"
	case f.d.serial && a.Type == schema.TypeInteger:
		parts[1] = "SERIAL"
	}

	if a.Default != "" && !a.IsAutoIncrement {
		parts = append(parts, "DEFAULT "+f.d.defaultValue(a.Default))
	}
	if !a.IsOptional && !pk {
		parts = append(parts, "NOT NULL")
	}
	if inlinePK {
		parts = append(parts, "PRIMARY KEY")
	}
	if a.IsUnique && !pk {
		parts = append(parts, "UNIQUE")
	}
	if f.opts.IncludeComments && f.d.inlineNotes && a.Comment != "" {
		parts = append(parts, "COMMENT "+sqlLiteral(a.Comment))
	}
	return strings.Join(parts, " "), check
}

// ColumnType returns the target type of a, resolving enums.
func (f *SQLFormatter) ColumnType(s *schema.Schema, e schema.Entity, a schema.Attribute) string {
	typ, _ := f.columnType(s, e, a)
	return typ
}

// DefaultValue renders a default from the shared vocabulary for the target.
func (f *SQLFormatter) DefaultValue(def string) string {
	return f.d.defaultValue(def)
}

// CreateEnum renders the CREATE TYPE statement of en, or "" on targets
// without enum types.
func (f *SQLFormatter) CreateEnum(en schema.Enum) string {
	if !f.d.nativeEnums {
		return ""
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);", f.QuoteTable(en.Name), literalList(en.Values))
}

// columnType resolves enums before the plain type table.
func (f *SQLFormatter) columnType(s *schema.Schema, e schema.Entity, a schema.Attribute) (string, string) {
	if en := s.Enum(a.Enum); a.Enum != "" && en != nil {
		switch {
		case f.d.nativeEnums:
			return f.QuoteTable(en.Name), ""
		case f.d.inlineEnums:
			return "ENUM(" + literalList(en.Values) + ")", ""
		}
		typ, _ := f.d.columnType(a)
		check := fmt.Sprintf("CONSTRAINT %s CHECK (%s IN (%s))",
			f.d.quote("chk_"+e.Name+"_"+a.Name), f.d.quote(a.Name), literalList(en.Values))
		return typ, check
	}

	typ, ok := f.d.columnType(a)
	if !ok {
		f.opts.Log().Warn("unknown type, using generic text type",
			"table", e.Name, "column", a.Name, "type", string(a.Type), "target", f.target.String())
	}
	return typ, ""
}

func (f *SQLFormatter) columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = f.d.quote(c)
	}
	return strings.Join(quoted, ", ")
}

// references renders FOREIGN KEY (...) REFERENCES t (...) with the actions
// the target accepts.
func (f *SQLFormatter) references(r schema.Relation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s (%s)",
		f.columnList(r.SourceColumns), f.QuoteTable(r.TargetEntity), f.columnList(r.TargetColumns))
	if a := f.d.action(r.OnDelete); a != "" {
		b.WriteString(" ON DELETE " + a)
	}
	if a := f.d.action(r.OnUpdate); a != "" && f.d.onUpdate {
		b.WriteString(" ON UPDATE " + a)
	}
	return b.String()
}

func (f *SQLFormatter) writeIndexes(entities []schema.Entity) {
	var n int
	for _, e := range entities {
		n += len(e.Indexes)
	}
	if n == 0 {
		return
	}
	f.section("Indexes")
	for _, e := range entities {
		for _, idx := range e.Indexes {
			unique := ""
			if idx.Unique {
				unique = "UNIQUE "
			}
			_, _ = fmt.Fprintf(f.writer, "CREATE %sINDEX %s ON %s (%s);\n",
				unique, f.d.quote(indexName(e.Name, idx)), f.QuoteTable(e.Name), f.columnList(idx.Columns))
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *SQLFormatter) writeComments(entities []schema.Entity) {
	var out []string
	for _, e := range entities {
		if e.Comment != "" {
			out = append(out, fmt.Sprintf("COMMENT ON TABLE %s IS %s;", f.QuoteTable(e.Name), sqlLiteral(e.Comment)))
		}
		for _, a := range e.Attributes {
			if a.Comment != "" {
				out = append(out, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s;", f.QuoteTable(e.Name), f.d.quote(a.Name), sqlLiteral(a.Comment)))
			}
		}
	}
	if len(out) == 0 {
		return
	}
	f.section("Comments")
	_, _ = fmt.Fprintf(f.writer, "%s\n\n", strings.Join(out, "\n"))
}

func (f *SQLFormatter) writeForeignKeys(s *schema.Schema, entities []schema.Entity) {
	var out []string
	for _, e := range entities {
		for _, r := range foreignKeys(s, e.Name) {
			out = append(out, f.AddForeignKey(r))
		}
	}
	if len(out) == 0 {
		return
	}
	f.section("Foreign keys")
	_, _ = fmt.Fprintf(f.writer, "%s\n\n", strings.Join(out, "\n"))
}

// AddForeignKey renders the deferred ALTER TABLE statement attaching r.
func (f *SQLFormatter) AddForeignKey(r schema.Relation) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;",
		f.QuoteTable(r.SourceEntity), f.d.quote(relationName(r)), f.references(r))
}

// foreignKeys returns the relations leaving entity, plus attribute-level
// references no relation covers.
func foreignKeys(s *schema.Schema, entity string) []schema.Relation {
	out := s.RelationsFrom(entity)
	e := s.Entity(entity)
	if e == nil {
		return out
	}
	for _, a := range e.Attributes {
		if a.References == nil || coveredBy(out, a.Name) {
			continue
		}
		out = append(out, schema.Relation{
			SourceEntity:  entity,
			TargetEntity:  a.References.Table,
			SourceColumns: []string{a.Name},
			TargetColumns: []string{a.References.Column},
			OnDelete:      a.References.OnDelete,
			OnUpdate:      a.References.OnUpdate,
			Cardinality:   schema.ManyToOne,
		})
	}
	return out
}

func coveredBy(relations []schema.Relation, column string) bool {
	for _, r := range relations {
		if len(r.SourceColumns) == 1 && r.SourceColumns[0] == column {
			return true
		}
	}
	return false
}

func isIntegral(t schema.Type) bool {
	return t == schema.TypeInteger || t == schema.TypeBigint
}

func literalList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = sqlLiteral(v)
	}
	return strings.Join(quoted, ", ")
}
