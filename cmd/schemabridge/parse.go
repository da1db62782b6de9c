package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemabridge"
	"github.com/tordrt/schemabridge/internal/snapshot"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a DDL script and print its canonical schema snapshot",
		Long: `Parse builds the canonical schema of a script and writes it as a YAML or
JSON snapshot. Snapshots can stand in for DDL files on either side of diff.`,
		Example: `  schemabridge parse -s postgresql schema.sql -o schema.yaml
  schemabridge parse -s mssql --format json < schema.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.cfg.SourceDialect()
			if err != nil {
				return ConfigError("", err)
			}
			var in string
			if len(args) == 1 {
				in = args[0]
			}

			script, err := a.readInput(cmd, in)
			if err != nil {
				return GeneralError(in, err)
			}
			opts := a.options()
			s, err := schemabridge.ParseSchema(script, source, opts)
			if err != nil {
				if errors.Is(err, schemabridge.ErrEmptySchema) {
					return SchemaParseError("no tables recognized", err)
				}
				return err
			}

			snap := snapshot.New(s, source.String(), opts.Timestamp())
			if output != "" {
				if err := snapshot.Save(output, snap); err != nil {
					return GeneralError("", err)
				}
				return nil
			}
			return snapshot.Encode(cmd.OutOrStdout(), snap, snapshot.Format(format))
		},
	}
	addSourceFlag(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file; .json selects JSON (default: stdout)")
	cmd.Flags().StringVar(&format, "format", string(snapshot.FormatYAML), "stdout encoding: yaml or json")
	return cmd
}
