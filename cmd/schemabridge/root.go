package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemabridge/internal/config"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/emitter"
	"github.com/tordrt/schemabridge/internal/schema"
)

// app carries the state shared by every command once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func (a *app) options() schema.Options {
	return a.cfg.Options(a.logger)
}

// readInput returns the contents of path, or stdin for "" and "-".
func (a *app) readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "schemabridge",
		Short: "Convert database schemas between dialects, ORM models and docs",
		Long: `schemabridge reads CREATE TABLE scripts from SQL Server, MySQL, PostgreSQL,
Oracle, SQLite or MongoDB, builds one canonical schema model and renders it as
DDL for another database, as Prisma, TypeORM or GORM models, or as DBML,
Mermaid, markdown or text documentation. It also diffs two schema versions
into a PostgreSQL migration and documents live databases.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return ConfigError("failed to load configuration", err)
			}
			if err := cfg.Validate(); err != nil {
				return ConfigError("invalid configuration", err)
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if cfg.File != "" {
				a.logger.Debug("using config file", "path", cfg.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./schemabridge.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.String("schema", schema.DefaultNamespace, "namespace for PostgreSQL output and database introspection")
	pf.Bool("strict", false, "fail on unknown column types and unresolved references")
	pf.Bool("preserve-comments", false, "keep comments found in the input")

	rootCmd.AddCommand(newConvertCmd(a))
	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newDiffCmd(a))
	rootCmd.AddCommand(newIntrospectCmd(a))
	rootCmd.AddCommand(newDialectsCmd())
	return rootCmd
}

// Flag helpers shared by the commands.

func addSourceFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "source dialect ("+strings.Join(dialect.Names(), ", ")+")")
}

func addTargetFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "t", "", "output format ("+strings.Join(emitter.TargetNames(), ", ")+")")
}

func addEmitFlags(cmd *cobra.Command, out *outputSpec) {
	fl := cmd.Flags()
	fl.StringVarP(&out.file, "output", "o", "", "output file (default: stdout)")
	fl.StringP("output-dir", "d", "", "output directory")
	fl.IntVar(&out.splitThreshold, "split-threshold", 0, "with --output-dir, split markdown/text docs into one file per table only above this many tables (0: always)")
	fl.Bool("with-rls", false, "add row level security policies (postgresql, supabase)")
	fl.Bool("include-comments", false, "include comments and section headers in the output")
	fl.Bool("create-schema", false, "emit CREATE SCHEMA for the namespace")
	fl.Bool("add-timestamps", false, "add created_at/updated_at columns where missing")
}

// outputFor completes out with the configured output directory and checks
// the combination.
func (a *app) outputFor(out outputSpec) (outputSpec, error) {
	out.dir = a.cfg.OutputDir
	if out.dir != "" && out.file != "" {
		return out, ConfigError("cannot use both --output-dir and --output flags", nil)
	}
	return out, nil
}
