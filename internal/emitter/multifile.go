package emitter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// MultiFileWriter writes documentation to a directory: an overview file plus
// one file per table. Only the markdown and text targets are supported.
type MultiFileWriter struct {
	OutputDir string
	Target    Target
	Options   schema.Options
}

// NewMultiFileWriter creates a new multi-file writer
func NewMultiFileWriter(outputDir string, target Target, opts schema.Options) (*MultiFileWriter, error) {
	if target != Markdown && target != Text {
		return nil, &schema.UnsupportedDialectError{
			Kind:      schema.KindTarget,
			Name:      target.String() + " (multi-file)",
			Supported: []string{Markdown.String(), Text.String()},
		}
	}
	return &MultiFileWriter{OutputDir: outputDir, Target: target, Options: opts}, nil
}

// Write validates s and writes the overview and per-table files.
func (f *MultiFileWriter) Write(s *schema.Schema) error {
	if err := schema.Validate(s, f.Options.Strict); err != nil {
		return err
	}
	if f.Options.AddTimestamps {
		s = withTimestamps(s)
	}

	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) { f.writeOverview(w, s) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, e := range s.Entities {
		if err := f.writeFile(fileStem(e.Name), func(w io.Writer) { f.writeTable(w, s, e) }); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", e.Name, err)
		}
	}
	return nil
}

func (f *MultiFileWriter) writeFile(stem string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(f.OutputDir, stem+f.extension()))
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

func (f *MultiFileWriter) writeOverview(w io.Writer, s *schema.Schema) {
	sorted := make([]schema.Entity, len(s.Entities))
	copy(sorted, s.Entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	if f.Target == Markdown {
		_, _ = fmt.Fprintf(w, "<!-- %s -->\n\n", header(f.Options))
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.extension())
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "# %s\n\n", header(f.Options))
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.extension())
	}

	for _, e := range sorted {
		if f.Target == Markdown {
			_, _ = fmt.Fprintf(w, "- **%s**", e.Name)
		} else {
			_, _ = fmt.Fprintf(w, "%s", e.Name)
		}
		if targets := referencedTables(s, e.Name); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func (f *MultiFileWriter) writeTable(w io.Writer, s *schema.Schema, e schema.Entity) {
	if f.Target == Text {
		NewTextFormatter(w, f.Options).FormatTable(s, e)
		if incoming := s.RelationsTo(e.Name); len(incoming) > 0 {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, "  REFERENCED BY:")
			for _, r := range incoming {
				_, _ = fmt.Fprintf(w, "    %s.%s (%s)\n", r.SourceEntity, strings.Join(r.SourceColumns, ","), cardinality(r))
			}
		}
		return
	}

	NewMarkdownFormatter(w, f.Options).FormatTable(s, e)
	if incoming := s.RelationsTo(e.Name); len(incoming) > 0 {
		_, _ = fmt.Fprintf(w, "### Referenced by\n\n")
		for _, r := range incoming {
			_, _ = fmt.Fprintf(w, "- %s.%s → %s (%s)\n",
				r.SourceEntity, strings.Join(r.SourceColumns, ", "),
				strings.Join(r.TargetColumns, ", "),
				describeCardinality(r))
		}
		_, _ = fmt.Fprintln(w)
	}
}

// describeCardinality spells a relation out from the target's point of view.
func describeCardinality(r schema.Relation) string {
	if cardinality(r) == schema.OneToOne {
		return fmt.Sprintf("one %s per %s", r.SourceEntity, r.TargetEntity)
	}
	return fmt.Sprintf("many %s per %s", r.SourceEntity, r.TargetEntity)
}

// referencedTables returns the distinct targets of the relations leaving
// entity, in first-seen order.
func referencedTables(s *schema.Schema, entity string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range foreignKeys(s, entity) {
		if !seen[r.TargetEntity] {
			seen[r.TargetEntity] = true
			out = append(out, r.TargetEntity)
		}
	}
	return out
}

// fileStem makes a table name safe to use as a file name.
func fileStem(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_", ":", "_").Replace(name)
}

func (f *MultiFileWriter) extension() string {
	if f.Target == Markdown {
		return ".md"
	}
	return ".txt"
}
