package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemabridge/internal/db"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/emitter"
)

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List source dialects and output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			sources := table.NewWriter()
			sources.SetOutputMirror(w)
			sources.SetStyle(table.StyleLight)
			sources.SetTitle("Source dialects")
			sources.AppendHeader(table.Row{"Dialect", "Aliases", "Introspection"})
			for _, d := range dialect.All {
				introspect := ""
				if slices.Contains(db.Supported, d) {
					introspect = "yes"
				}
				sources.AppendRow(table.Row{d.String(), strings.Join(aliases(d), ", "), introspect})
			}
			sources.Render()
			_, _ = fmt.Fprintln(w)

			targets := table.NewWriter()
			targets.SetOutputMirror(w)
			targets.SetStyle(table.StyleLight)
			targets.SetTitle("Output formats")
			targets.AppendHeader(table.Row{"Format", "Kind", "Extension"})
			for _, t := range emitter.Targets {
				targets.AppendRow(table.Row{t.String(), targetKind(t), extension(t)})
			}
			targets.Render()
			return nil
		},
	}
}

// aliases lists the other accepted spellings of d.
func aliases(d dialect.Dialect) []string {
	var out []string
	for _, name := range dialect.Names() {
		if got, err := dialect.Lookup(name); err == nil && got == d && name != d.String() {
			out = append(out, name)
		}
	}
	return out
}

func targetKind(t emitter.Target) string {
	switch {
	case t.IsSQL():
		return "SQL DDL"
	case t == emitter.Prisma || t == emitter.TypeORM || t == emitter.GORM:
		return "ORM models"
	case t == emitter.Mermaid || t == emitter.DBML:
		return "diagram"
	}
	return "documentation"
}
