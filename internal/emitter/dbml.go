package emitter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// DBMLFormatter renders DBML for dbdiagram.io and dbdocs.
type DBMLFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewDBMLFormatter creates a DBML formatter.
func NewDBMLFormatter(w io.Writer, opts schema.Options) *DBMLFormatter {
	return &DBMLFormatter{writer: w, opts: opts}
}

// Format writes enums, tables with their indexes, then Ref lines.
func (f *DBMLFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "// %s\n", header(f.opts))

	for _, en := range s.Enums {
		_, _ = fmt.Fprintf(f.writer, "\nEnum %s {\n", dbmlName(en.Name))
		for _, v := range en.Values {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", dbmlName(v))
		}
		_, _ = fmt.Fprintln(f.writer, "}")
	}

	entities := orderedEntities(s)
	for _, e := range entities {
		_, _ = fmt.Fprintln(f.writer)
		f.writeTable(s, e)
	}

	var refs []string
	for _, e := range entities {
		for _, r := range foreignKeys(s, e.Name) {
			refs = append(refs, dbmlRef(r))
		}
	}
	if len(refs) > 0 {
		_, _ = fmt.Fprintf(f.writer, "\n%s\n", strings.Join(refs, "\n"))
	}
	return nil
}

func (f *DBMLFormatter) writeTable(s *schema.Schema, e schema.Entity) {
	_, _ = fmt.Fprintf(f.writer, "Table %s {\n", dbmlName(e.Name))
	for _, a := range e.Attributes {
		typ := typeLabel(a)
		if en := s.Enum(a.Enum); a.Enum != "" && en != nil {
			typ = dbmlName(en.Name)
		}
		if strings.Contains(typ, " ") {
			typ = strconv.Quote(typ)
		}
		line := "  " + dbmlName(a.Name) + " " + typ
		if settings := f.settings(e, a); len(settings) > 0 {
			line += " [" + strings.Join(settings, ", ") + "]"
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}

	var idx []string
	if pk := primaryKey(e); len(pk) > 1 {
		idx = append(idx, "("+dbmlNames(pk)+") [pk]")
	}
	for _, u := range e.Uniques {
		idx = append(idx, fmt.Sprintf("(%s) [unique, name: %s]", dbmlNames(u), sqlLiteral(uniqueName(e.Name, u))))
	}
	for _, i := range e.Indexes {
		opts := "name: " + sqlLiteral(indexName(e.Name, i))
		if i.Unique {
			opts = "unique, " + opts
		}
		idx = append(idx, fmt.Sprintf("(%s) [%s]", dbmlNames(i.Columns), opts))
	}
	if len(idx) > 0 {
		_, _ = fmt.Fprintln(f.writer, "\n  indexes {")
		for _, line := range idx {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", line)
		}
		_, _ = fmt.Fprintln(f.writer, "  }")
	}
	if f.opts.IncludeComments && e.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "\n  Note: %s\n", sqlLiteral(e.Comment))
	}
	_, _ = fmt.Fprintln(f.writer, "}")
}

func (f *DBMLFormatter) settings(e schema.Entity, a schema.Attribute) []string {
	var out []string
	pk := singlePK(e, a)
	if pk {
		out = append(out, "pk")
	}
	if a.IsAutoIncrement {
		out = append(out, "increment")
	}
	if !a.IsOptional && !pk {
		out = append(out, "not null")
	}
	if a.IsUnique && !pk {
		out = append(out, "unique")
	}
	if a.Default != "" {
		out = append(out, "default: "+dbmlDefault(a.Default))
	}
	if f.opts.IncludeComments && a.Comment != "" {
		out = append(out, "note: "+sqlLiteral(a.Comment))
	}
	return out
}

func dbmlDefault(def string) string {
	switch {
	case def == schema.DefaultTrue, def == schema.DefaultFalse, isStringLiteral(def):
		return def
	}
	if _, err := strconv.ParseFloat(def, 64); err == nil {
		return def
	}
	return "`" + def + "`"
}

func dbmlRef(r schema.Relation) string {
	op := ">"
	if r.Cardinality == schema.OneToOne {
		op = "-"
	}
	line := fmt.Sprintf("Ref %s: %s.%s %s %s.%s", dbmlName(relationName(r)),
		dbmlName(r.SourceEntity), dbmlColumns(r.SourceColumns), op,
		dbmlName(r.TargetEntity), dbmlColumns(r.TargetColumns))
	var opts []string
	if r.OnDelete != "" {
		opts = append(opts, "delete: "+strings.ToLower(r.OnDelete))
	}
	if r.OnUpdate != "" {
		opts = append(opts, "update: "+strings.ToLower(r.OnUpdate))
	}
	if len(opts) > 0 {
		line += " [" + strings.Join(opts, ", ") + "]"
	}
	return line
}

func dbmlColumns(cols []string) string {
	if len(cols) == 1 {
		return dbmlName(cols[0])
	}
	return "(" + dbmlNames(cols) + ")"
}

func dbmlNames(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = dbmlName(c)
	}
	return strings.Join(out, ", ")
}

// dbmlName double-quotes names that are not plain identifiers.
func dbmlName(name string) string {
	if isPlainIdent(name) || (strings.HasPrefix(name, "_") && isPlainIdent(strings.TrimLeft(name, "_"))) {
		return name
	}
	return strconv.Quote(name)
}
