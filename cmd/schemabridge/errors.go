package main

import (
	"errors"
	"fmt"

	"github.com/tordrt/schemabridge/internal/db"
	"github.com/tordrt/schemabridge/internal/schema"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitConfig      = 2
	ExitSchemaParse = 3
	ExitDBConnect   = 4
	ExitValidation  = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message == "":
		return e.Err.Error()
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// SchemaParseError creates an ExitError with ExitSchemaParse code.
func SchemaParseError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitSchemaParse, Message: msg, Err: err}
}

// DBConnectError creates an ExitError with ExitDBConnect code.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// InvalidSchemaError creates an ExitError with ExitValidation code.
func InvalidSchemaError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitValidation, Message: msg, Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}

// classify maps err to an ExitError. Errors already carrying a code keep
// it; typed pipeline errors get theirs from their kind.
func classify(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	var connErr *db.ConnectError
	switch {
	case errors.As(err, &connErr):
		return DBConnectError("", err)
	case schema.IsUnsupportedDialect(err):
		return ConfigError("", err)
	case schema.IsValidationError(err):
		return InvalidSchemaError("", err)
	case errors.Is(err, schema.ErrEmptySchema):
		return SchemaParseError("", err)
	}
	return GeneralError("", err)
}
