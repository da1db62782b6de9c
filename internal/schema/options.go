package schema

import (
	"log/slog"
	"time"
)

// DefaultNamespace is the target namespace used when Options.Schema is empty.
const DefaultNamespace = "public"

// Options is the flat configuration record shared by parsing, emission and
// migration generation. The zero value is usable.
type Options struct {
	// Schema is the target namespace (PostgreSQL/Supabase). Defaults to "public".
	Schema string
	// WithRLS enables row-level-security policies (PostgreSQL/Supabase only).
	WithRLS bool
	// IncludeComments emits section comments and entity/column comments.
	IncludeComments bool
	// CreateSchema emits CREATE SCHEMA for the target namespace.
	CreateSchema bool
	// PreserveComments keeps source comments while parsing.
	PreserveComments bool
	// AddTimestamps adds created_at/updated_at columns where missing.
	AddTimestamps bool
	// Strict rejects unresolved references and unknown types.
	Strict bool

	// Now returns the generation time for header lines. Defaults to time.Now.
	Now func() time.Time
	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Namespace returns the configured target namespace.
func (o Options) Namespace() string {
	if o.Schema == "" {
		return DefaultNamespace
	}
	return o.Schema
}

// Timestamp returns the generation time in UTC.
func (o Options) Timestamp() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}

// Log returns the configured logger, or one that discards everything.
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
