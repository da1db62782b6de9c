package emitter

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// MermaidFormatter renders a Mermaid erDiagram.
type MermaidFormatter struct {
	writer io.Writer
	opts   schema.Options
}

// NewMermaidFormatter creates a Mermaid formatter.
func NewMermaidFormatter(w io.Writer, opts schema.Options) *MermaidFormatter {
	return &MermaidFormatter{writer: w, opts: opts}
}

var mermaidUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Format writes one entity block per table and one line per relation.
func (f *MermaidFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintf(f.writer, "%%%% %s\n", header(f.opts))
	_, _ = fmt.Fprintln(f.writer, "erDiagram")

	entities := orderedEntities(s)
	for _, e := range entities {
		fks := make(map[string]bool)
		for _, r := range foreignKeys(s, e.Name) {
			for _, c := range r.SourceColumns {
				fks[c] = true
			}
		}

		_, _ = fmt.Fprintf(f.writer, "    %s {\n", mermaidName(e.Name))
		for _, a := range e.Attributes {
			var keys []string
			if e.IsPrimaryKeyColumn(a.Name) || a.IsPrimaryKey {
				keys = append(keys, "PK")
			}
			if fks[a.Name] {
				keys = append(keys, "FK")
			}
			if a.IsUnique {
				keys = append(keys, "UK")
			}
			line := fmt.Sprintf("        %s %s", mermaidName(string(a.Type)), mermaidName(a.Name))
			if len(keys) > 0 {
				line += " " + strings.Join(keys, ", ")
			}
			if f.opts.IncludeComments && a.Comment != "" {
				line += fmt.Sprintf(" %q", strings.ReplaceAll(a.Comment, `"`, "'"))
			}
			_, _ = fmt.Fprintln(f.writer, line)
		}
		_, _ = fmt.Fprintln(f.writer, "    }")
	}

	for _, e := range entities {
		for _, r := range foreignKeys(s, e.Name) {
			card := "||--o{"
			if r.Cardinality == schema.OneToOne {
				card = "||--o|"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s %s %s : %q\n",
				mermaidName(r.TargetEntity), card, mermaidName(r.SourceEntity), relationName(r))
		}
	}
	return nil
}

func mermaidName(name string) string {
	return mermaidUnsafe.ReplaceAllString(name, "_")
}
