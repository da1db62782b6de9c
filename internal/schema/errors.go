package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySchema is returned when a conversion produced no entities at all.
// Parsing is best-effort, so callers decide whether an empty result is fatal.
var ErrEmptySchema = errors.New("schemabridge: no tables recognized in input")

// DialectKind distinguishes source dialects from emission targets in errors.
type DialectKind string

const (
	KindSource DialectKind = "source dialect"
	KindTarget DialectKind = "target format"
)

// UnsupportedDialectError is returned for an unknown source or target
// identifier, before any parsing or emission starts.
type UnsupportedDialectError struct {
	Kind      DialectKind
	Name      string
	Supported []string
}

func (e *UnsupportedDialectError) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("unsupported %s %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("unsupported %s %q (supported: %s)", e.Kind, e.Name, strings.Join(e.Supported, ", "))
}

// ValidationError reports data-model invariant violations found before
// emission. No output is produced when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid schema: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid schema: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// DiffError reports that one side of a diff is not well-formed.
type DiffError struct {
	Side string // "old" or "new"
	Err  error
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("cannot diff: %s schema: %v", e.Side, e.Err)
}

func (e *DiffError) Unwrap() error {
	return e.Err
}

// IsUnsupportedDialect returns true if err is or wraps an UnsupportedDialectError.
func IsUnsupportedDialect(err error) bool {
	var target *UnsupportedDialectError
	return errors.As(err, &target)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
