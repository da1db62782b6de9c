package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tordrt/schemabridge"
	"github.com/tordrt/schemabridge/internal/emitter"
	"github.com/tordrt/schemabridge/internal/migrate"
	"github.com/tordrt/schemabridge/internal/schema"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// extensions maps output formats to the file extension used under
// --output-dir.
var extensions = map[emitter.Target]string{
	emitter.Prisma:   ".prisma",
	emitter.TypeORM:  ".ts",
	emitter.GORM:     ".go",
	emitter.DBML:     ".dbml",
	emitter.Markdown: ".md",
	emitter.Text:     ".txt",
	emitter.Mermaid:  ".mmd",
}

func extension(t emitter.Target) string {
	if t.IsSQL() {
		return ".sql"
	}
	return extensions[t]
}

// outputSpec says where a rendered schema goes.
type outputSpec struct {
	file           string
	dir            string
	splitThreshold int
}

// split reports whether documentation for n tables should be written as an
// overview plus one file per table.
func (o outputSpec) split(t emitter.Target, n int) bool {
	if o.dir == "" || (t != emitter.Markdown && t != emitter.Text) {
		return false
	}
	return o.splitThreshold == 0 || n > o.splitThreshold
}

// writeSchema renders s for target. stem names the file created under the
// output directory; in split mode it names a subdirectory when nested is
// set.
func writeSchema(w io.Writer, s *schema.Schema, target emitter.Target, opts schema.Options, out outputSpec, stem string, nested bool) error {
	if out.split(target, len(s.Entities)) {
		dir := out.dir
		if nested {
			dir = filepath.Join(dir, stem)
		}
		return schemabridge.FormatSchema(s, &schemabridge.OutputOptions{Target: target, OutputDir: dir, Options: opts})
	}

	path := out.file
	if out.dir != "" {
		if err := os.MkdirAll(out.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path = filepath.Join(out.dir, stem+extension(target))
	}
	if path == "" {
		return schemabridge.FormatSchema(s, &schemabridge.OutputOptions{Target: target, Writer: w, Options: opts})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := schemabridge.FormatSchema(s, &schemabridge.OutputOptions{Target: target, Writer: f, Options: opts}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// inputStem names the output for an input path.
func inputStem(path string) string {
	if path == "" || path == "-" {
		return "schema"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// renderDiffSummary prints one row per changed table.
func renderDiffSummary(w io.Writer, d *migrate.Diff) {
	if d.IsEmpty() {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("No changes"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Change", "Columns"})

	for _, e := range d.TablesToAdd {
		t.AppendRow(table.Row{e.Name, "create", fmt.Sprintf("%d columns", len(e.Attributes))})
	}
	for _, td := range d.TablesToModify {
		t.AppendRow(table.Row{td.Name, "alter", columnChanges(td)})
	}
	for _, e := range d.TablesToRemove {
		t.AppendRow(table.Row{e.Name, "drop", fmt.Sprintf("%d columns", len(e.Attributes))})
	}
	t.Render()
}

func columnChanges(td migrate.TableDiff) string {
	var parts []string
	for _, a := range td.ColumnsToAdd {
		parts = append(parts, "+"+a.Name)
	}
	for _, c := range td.ColumnsToModify {
		facets := make([]string, len(c.Changes))
		for i, f := range c.Changes {
			facets[i] = string(f)
		}
		parts = append(parts, fmt.Sprintf("~%s (%s)", c.Name, strings.Join(facets, ", ")))
	}
	for _, a := range td.ColumnsToRemove {
		parts = append(parts, "-"+a.Name)
	}
	return strings.Join(parts, " ")
}

// renderWarnings prints migration warnings, one per line.
func renderWarnings(w io.Writer, warnings []migrate.Warning) {
	for _, warn := range warnings {
		_, _ = fmt.Fprintln(w, warningStyle.Render("Warning:"), warn.String())
	}
}
