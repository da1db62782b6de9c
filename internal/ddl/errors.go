package ddl

import (
	"fmt"

	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// ParseError reports one DDL statement that could not be parsed. It is
// recovered locally: the statement is skipped and parsing continues.
type ParseError struct {
	Statement int // 1-based statement index in the script
	Pos       sqltoken.Position
	Message   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in statement %d at line %d, column %d: %s", e.Statement, e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	errUnexpectedToken = "unexpected token %s, expected %s"
	errUnbalanced      = "unbalanced parentheses"
	errUnknownTable    = "unknown table %q"
	errNoColumns       = "table %q has no columns"
	errDuplicateColumn = "table %q declares column %q twice"
	errMissingColumn   = "table %q: %s column %q does not exist"
)
