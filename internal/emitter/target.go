package emitter

import (
	"sort"
	"strings"

	"github.com/tordrt/schemabridge/internal/schema"
)

// Target identifies an output format.
type Target int

const (
	PostgreSQL Target = iota
	Supabase
	MySQL
	SQLServer
	Oracle
	SQLite
	Prisma
	TypeORM
	GORM
	DBML
	Markdown
	Text
	Mermaid
)

// Targets lists every output format in declaration order.
var Targets = []Target{
	PostgreSQL, Supabase, MySQL, SQLServer, Oracle, SQLite,
	Prisma, TypeORM, GORM, DBML, Markdown, Text, Mermaid,
}

var targetNames = map[Target]string{
	PostgreSQL: "postgresql",
	Supabase:   "supabase",
	MySQL:      "mysql",
	SQLServer:  "sqlserver",
	Oracle:     "oracle",
	SQLite:     "sqlite",
	Prisma:     "prisma",
	TypeORM:    "typeorm",
	GORM:       "gorm",
	DBML:       "dbml",
	Markdown:   "markdown",
	Text:       "text",
	Mermaid:    "mermaid",
}

var targetAliases = map[string]Target{
	"postgres": PostgreSQL,
	"mariadb":  MySQL,
	"mssql":    SQLServer,
	"md":       Markdown,
}

func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsSQL reports whether t produces DDL.
func (t Target) IsSQL() bool {
	return t <= SQLite
}

// TargetNames returns the canonical target names, sorted.
func TargetNames() []string {
	names := make([]string, 0, len(targetNames))
	for _, name := range targetNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTarget resolves a target name. Unknown names yield an
// *schema.UnsupportedDialectError.
func LookupTarget(name string) (Target, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for t, n := range targetNames {
		if n == key {
			return t, nil
		}
	}
	if t, ok := targetAliases[key]; ok {
		return t, nil
	}
	return 0, &schema.UnsupportedDialectError{Kind: schema.KindTarget, Name: name, Supported: TargetNames()}
}
