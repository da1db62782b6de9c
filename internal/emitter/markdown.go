package emitter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer, opts schema.Options) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w, opts: opts}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "<!-- %s -->\n\n", header(f.opts))
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	if len(s.Enums) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Enums")
		_, _ = fmt.Fprintln(f.writer)
		for _, en := range s.Enums {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", en.Name, strings.Join(en.Values, " | "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, e := range orderedEntities(s) {
		f.FormatTable(s, e)
	}
	return nil
}

// FormatTable formats a single table (exported for use by the multi-file writer)
func (f *MarkdownFormatter) FormatTable(s *schema.Schema, e schema.Entity) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", e.Name)
	if f.opts.IncludeComments && e.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", e.Comment)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, a := range e.Attributes {
		line := fmt.Sprintf("- **%s:** %s", a.Name, docType(s, a))
		if c := docConstraints(e, a); c != "" {
			line += ", " + c
		}
		if f.opts.IncludeComments && a.Comment != "" {
			line += " (" + a.Comment + ")"
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}
	_, _ = fmt.Fprintln(f.writer)

	if fks := foreignKeys(s, e.Name); len(fks) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, r := range fks {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				strings.Join(r.SourceColumns, ", "),
				r.TargetEntity,
				strings.Join(r.TargetColumns, ", "),
				cardinality(r))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(e.Indexes) > 0 || len(e.Uniques) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, u := range e.Uniques {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", uniqueName(e.Name, u), strings.Join(u, ", "))
		}
		for _, idx := range e.Indexes {
			if idx.Unique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", indexName(e.Name, idx), strings.Join(idx.Columns, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", indexName(e.Name, idx), strings.Join(idx.Columns, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if checks := s.ChecksFor(e.Name); len(checks) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Checks")
		_, _ = fmt.Fprintln(f.writer)
		for i, c := range checks {
			_, _ = fmt.Fprintf(f.writer, "- %s: `%s`\n", checkName(c, i+1), c.Expression)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

// docType is the type shown by the documentation formats, with enum values
// inlined.
func docType(s *schema.Schema, a schema.Attribute) string {
	if en := s.Enum(a.Enum); a.Enum != "" && en != nil {
		return fmt.Sprintf("%s (%s)", en.Name, strings.Join(en.Values, "|"))
	}
	return typeLabel(a)
}

func docConstraints(e schema.Entity, a schema.Attribute) string {
	var constraints []string
	if e.IsPrimaryKeyColumn(a.Name) || a.IsPrimaryKey {
		constraints = append(constraints, "PK")
	}
	if a.IsAutoIncrement {
		constraints = append(constraints, "AUTO INCREMENT")
	}
	if a.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if !a.IsOptional {
		constraints = append(constraints, "NOT NULL")
	}
	if a.Default != "" {
		constraints = append(constraints, "DEFAULT "+a.Default)
	}
	return strings.Join(constraints, ", ")
}

// cardinality returns the relation cardinality, N:1 when unset.
func cardinality(r schema.Relation) string {
	if r.Cardinality == "" {
		return schema.ManyToOne
	}
	return r.Cardinality
}
