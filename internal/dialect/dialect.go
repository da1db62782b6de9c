// Package dialect wires each supported source dialect to its grammar, its
// type-spelling normalization and its default-value rewriting.
package dialect

import (
	"sort"
	"strings"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
)

// Dialect identifies a source dialect.
type Dialect int

const (
	SQLServer Dialect = iota
	MySQL
	PostgreSQL
	Oracle
	SQLite
	MongoDB
)

// All lists every dialect in declaration order.
var All = []Dialect{SQLServer, MySQL, PostgreSQL, Oracle, SQLite, MongoDB}

func (d Dialect) String() string {
	switch d {
	case SQLServer:
		return "sqlserver"
	case MySQL:
		return "mysql"
	case PostgreSQL:
		return "postgresql"
	case Oracle:
		return "oracle"
	case SQLite:
		return "sqlite"
	case MongoDB:
		return "mongodb"
	}
	return "unknown"
}

// aliases maps accepted spellings to dialects.
var aliases = map[string]Dialect{
	"sqlserver":  SQLServer,
	"mssql":      SQLServer,
	"mysql":      MySQL,
	"mariadb":    MySQL,
	"postgresql": PostgreSQL,
	"postgres":   PostgreSQL,
	"supabase":   PostgreSQL,
	"oracle":     Oracle,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"mongodb":    MongoDB,
}

// Names returns every accepted dialect name, sorted.
func Names() []string {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a dialect name. Unknown names yield an
// *schema.UnsupportedDialectError.
func Lookup(name string) (Dialect, error) {
	d, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, &schema.UnsupportedDialectError{Kind: schema.KindSource, Name: name, Supported: Names()}
	}
	return d, nil
}

// Strategy is the per-dialect behavior. Each dialect is a distinct type so a
// dialect missing a method does not compile.
type Strategy interface {
	// Parse turns a script into raw parsed tables.
	Parse(script string, opts schema.Options) *ddl.Result
	// NormalizeType rewrites a column's type spelling into the pre-canonical
	// vocabulary. It may also set AutoIncrement or clear a default that
	// only encodes a sequence.
	NormalizeType(col *ddl.ParsedColumn)
	// NormalizeDefault rewrites a default expression into the shared default
	// vocabulary. The expression arrives trimmed with wrapping parentheses
	// removed.
	NormalizeDefault(expr string) string
}

var strategies = map[Dialect]Strategy{
	SQLServer:  sqlServer{},
	MySQL:      mySQL{},
	PostgreSQL: postgreSQL{},
	Oracle:     oracle{},
	SQLite:     sqlite{},
	MongoDB:    mongoDB{},
}

// For returns the strategy of d.
func For(d Dialect) Strategy {
	return strategies[d]
}

// Parse parses script with the grammar of d and runs the normalization pass.
func Parse(d Dialect, script string, opts schema.Options) *ddl.Result {
	res := For(d).Parse(script, opts)
	Normalize(d, res)
	return res
}

// parseSQL runs the shared SQL grammar.
func parseSQL(g ddl.Grammar, script string, opts schema.Options) *ddl.Result {
	return ddl.NewParser(g, opts.PreserveComments, opts.Log()).Parse(script)
}
