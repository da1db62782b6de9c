// Package config loads CLI settings from defaults, a schemabridge.yaml file,
// SCHEMABRIDGE_* environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/emitter"
	"github.com/tordrt/schemabridge/internal/schema"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SCHEMABRIDGE_"

// fileNames are the config files searched for when none is given.
var fileNames = []string{"schemabridge.yaml", "schemabridge.yml"}

// Config holds the settings shared by every command.
type Config struct {
	Source           string `koanf:"source"`
	Target           string `koanf:"target"`
	Schema           string `koanf:"schema"`
	WithRLS          bool   `koanf:"with_rls"`
	IncludeComments  bool   `koanf:"include_comments"`
	CreateSchema     bool   `koanf:"create_schema"`
	PreserveComments bool   `koanf:"preserve_comments"`
	AddTimestamps    bool   `koanf:"add_timestamps"`
	Strict           bool   `koanf:"strict"`
	Verbose          bool   `koanf:"verbose"`
	OutputDir        string `koanf:"output_dir"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// keys are the recognized configuration keys; flags outside this set are
// left to their commands.
var keys = map[string]bool{
	"source": true, "target": true, "schema": true, "with_rls": true,
	"include_comments": true, "create_schema": true, "preserve_comments": true,
	"add_timestamps": true, "strict": true, "verbose": true, "output_dir": true,
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"source":            "",
		"target":            "",
		"schema":            schema.DefaultNamespace,
		"with_rls":          false,
		"include_comments":  false,
		"create_schema":     false,
		"preserve_comments": false,
		"add_timestamps":    false,
		"strict":            false,
		"verbose":           false,
		"output_dir":        "",
	}
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
// Only flags the user actually set take part. cfgFile may be empty, in which
// case schemabridge.yaml or schemabridge.yml in the working directory is used
// when present.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return load(".", cfgFile, flags)
}

func load(dir, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(dir, cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: SCHEMABRIDGE_WITH_RLS -> with_rls
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !keys[key] {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

// findConfigFile returns the explicit path, or the first default config file
// present in dir.
func findConfigFile(dir, explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range fileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// SourceDialect resolves the configured source dialect.
func (c *Config) SourceDialect() (dialect.Dialect, error) {
	if c.Source == "" {
		return 0, fmt.Errorf("source dialect is required (--source or %sSOURCE)", EnvPrefix)
	}
	return dialect.Lookup(c.Source)
}

// TargetFormat resolves the configured output format.
func (c *Config) TargetFormat() (emitter.Target, error) {
	if c.Target == "" {
		return 0, fmt.Errorf("target format is required (--target or %sTARGET)", EnvPrefix)
	}
	return emitter.LookupTarget(c.Target)
}

// Validate checks that any configured dialect and target names are known.
func (c *Config) Validate() error {
	if c.Source != "" {
		if _, err := dialect.Lookup(c.Source); err != nil {
			return err
		}
	}
	if c.Target != "" {
		if _, err := emitter.LookupTarget(c.Target); err != nil {
			return err
		}
	}
	return nil
}

// Options converts the configuration into pipeline options.
func (c *Config) Options(logger *slog.Logger) schema.Options {
	return schema.Options{
		Schema:           c.Schema,
		WithRLS:          c.WithRLS,
		IncludeComments:  c.IncludeComments,
		CreateSchema:     c.CreateSchema,
		PreserveComments: c.PreserveComments,
		AddTimestamps:    c.AddTimestamps,
		Strict:           c.Strict,
		Logger:           logger,
	}
}
