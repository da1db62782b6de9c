package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemabridge"
	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/snapshot"
)

func newDiffCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Generate a PostgreSQL migration between two schema versions",
		Long: `Diff compares two schemas by table and column name and prints the migration
SQL that turns OLD into NEW. Each side is either a snapshot (.yaml, .yml,
.json) or a DDL script parsed with --source. A renamed table or column is
migrated as a drop plus an add. A summary and any data-loss or narrowing
warnings go to stderr; warnings never stop generation.`,
		Example: `  schemabridge diff -s postgresql v1.sql v2.sql
  schemabridge diff schema.yaml next.sql -s postgresql -o migrations/002.sql`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := a.loadSide(cmd, args[0])
			if err != nil {
				return err
			}
			updated, err := a.loadSide(cmd, args[1])
			if err != nil {
				return err
			}

			d, err := schemabridge.Diff(old, updated)
			if err != nil {
				return InvalidSchemaError("", err)
			}
			res, err := schemabridge.GenerateMigrationSQL(d, a.options())
			if err != nil {
				return GeneralError("failed to generate migration", err)
			}

			renderDiffSummary(cmd.ErrOrStderr(), d)
			renderWarnings(cmd.ErrOrStderr(), res.Warnings)

			if output != "" {
				if err := os.WriteFile(output, []byte(res.SQL), 0o644); err != nil {
					return GeneralError("failed to write migration", err)
				}
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), res.SQL)
			return err
		},
	}
	addSourceFlag(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "migration file (default: stdout)")
	return cmd
}

// loadSide reads one side of a diff from a snapshot or a DDL script. A
// script without tables is an empty schema.
func (a *app) loadSide(cmd *cobra.Command, path string) (*schema.Schema, error) {
	if snapshot.IsSnapshotPath(path) {
		snap, err := snapshot.Load(path)
		if err != nil {
			return nil, SchemaParseError("", err)
		}
		a.logger.Debug("loaded snapshot", "path", path, "id", snap.ID, "created_at", snap.CreatedAt)
		return snap.Schema, nil
	}

	source, err := a.cfg.SourceDialect()
	if err != nil {
		return nil, ConfigError(path, err)
	}
	script, err := a.readInput(cmd, path)
	if err != nil {
		return nil, GeneralError(path, err)
	}
	s, err := schemabridge.ParseSchema(script, source, a.options())
	if errors.Is(err, schemabridge.ErrEmptySchema) {
		a.logger.Warn("no tables recognized, treating as empty schema", "input", path)
		return s, nil
	}
	if err != nil {
		return nil, SchemaParseError(path, err)
	}
	return s, nil
}
