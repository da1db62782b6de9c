package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/schemabridge"
	"github.com/tordrt/schemabridge/internal/schema"
)

func newConvertCmd(a *app) *cobra.Command {
	var out outputSpec

	cmd := &cobra.Command{
		Use:   "convert [file...]",
		Short: "Convert DDL scripts to another dialect, ORM models or documentation",
		Long: `Convert parses each input with the source dialect and renders it in the
target format. Inputs are parsed concurrently; with several inputs and
--output-dir each one gets its own output file. Reads stdin when no file is
given.`,
		Example: `  schemabridge convert -s mssql -t postgresql schema.sql
  schemabridge convert -s mysql -t prisma -d out/ billing.sql users.sql
  cat schema.sql | schemabridge convert -s sqlite -t mermaid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args, out)
		},
	}
	addSourceFlag(cmd)
	addTargetFlag(cmd)
	addEmitFlags(cmd, &out)
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, args []string, out outputSpec) error {
	source, err := a.cfg.SourceDialect()
	if err != nil {
		return ConfigError("", err)
	}
	target, err := a.cfg.TargetFormat()
	if err != nil {
		return ConfigError("", err)
	}
	if out, err = a.outputFor(out); err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	if len(inputs) > 1 && out.file != "" {
		return ConfigError("--output takes a single input; use --output-dir for several", nil)
	}

	opts := a.options()
	schemas := make([]*schema.Schema, len(inputs))

	g, _ := errgroup.WithContext(cmd.Context())
	for i, in := range inputs {
		g.Go(func() error {
			script, err := a.readInput(cmd, in)
			if err != nil {
				return GeneralError(in, err)
			}
			s, err := schemabridge.ParseSchema(script, source, opts)
			switch {
			case errors.Is(err, schemabridge.ErrEmptySchema):
				return SchemaParseError(fmt.Sprintf("%s: no tables recognized", inputStem(in)), err)
			case schema.IsValidationError(err):
				return InvalidSchemaError(inputStem(in), err)
			case err != nil:
				return SchemaParseError(inputStem(in), err)
			}
			a.logger.Debug("parsed input", "input", in, "tables", len(s.Entities), "relations", len(s.Relations))
			schemas[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, s := range schemas {
		if i > 0 && out.dir == "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := writeSchema(cmd.OutOrStdout(), s, target, opts, out, inputStem(inputs[i]), len(inputs) > 1); err != nil {
			if schema.IsValidationError(err) {
				return InvalidSchemaError(inputStem(inputs[i]), err)
			}
			return GeneralError("failed to write output", err)
		}
	}
	return nil
}
