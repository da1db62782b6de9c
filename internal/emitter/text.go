package emitter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer, opts schema.Options) *TextFormatter {
	return &TextFormatter{writer: w, opts: opts}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "# %s\n\n", header(f.opts))

	for _, en := range s.Enums {
		_, _ = fmt.Fprintf(f.writer, "ENUM %s (%s)\n", en.Name, strings.Join(en.Values, "|"))
	}
	if len(s.Enums) > 0 {
		_, _ = fmt.Fprintln(f.writer)
	}

	for i, e := range orderedEntities(s) {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.FormatTable(s, e)
	}
	return nil
}

// FormatTable writes one table block.
func (f *TextFormatter) FormatTable(s *schema.Schema, e schema.Entity) {
	pkStr := ""
	if pk := primaryKey(e); len(pk) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", e.Name, pkStr)
	if f.opts.IncludeComments && e.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "  -- %s\n", e.Comment)
	}

	for _, a := range e.Attributes {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(s, a))
	}

	if fks := foreignKeys(s, e.Name); len(fks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, r := range fks {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n",
				strings.Join(r.SourceColumns, ","), r.TargetEntity, strings.Join(r.TargetColumns, ","), cardinality(r))
		}
	}

	if len(e.Indexes) > 0 || len(e.Uniques) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, u := range e.Uniques {
			_, _ = fmt.Fprintf(f.writer, "    %s (%s) UNIQUE\n", uniqueName(e.Name, u), strings.Join(u, ", "))
		}
		for _, idx := range e.Indexes {
			unique := ""
			if idx.Unique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", indexName(e.Name, idx), strings.Join(idx.Columns, ", "), unique)
		}
	}

	if checks := s.ChecksFor(e.Name); len(checks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  CHECKS:")
		for i, c := range checks {
			_, _ = fmt.Fprintf(f.writer, "    %s: %s\n", checkName(c, i+1), c.Expression)
		}
	}
}

func (f *TextFormatter) formatColumn(s *schema.Schema, a schema.Attribute) string {
	parts := []string{a.Name + ":", docType(s, a)}

	if a.IsAutoIncrement {
		parts = append(parts, "AUTO INCREMENT")
	}
	if a.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if !a.IsOptional {
		parts = append(parts, "NOT NULL")
	}
	if a.Default != "" {
		parts = append(parts, "DEFAULT "+a.Default)
	}
	if f.opts.IncludeComments && a.Comment != "" {
		parts = append(parts, "-- "+a.Comment)
	}
	return strings.Join(parts, " ")
}
