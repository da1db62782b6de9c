// Package db reads the catalogs of live databases into parse results, so an
// introspected schema flows through the same normalization and builder as a
// parsed DDL script.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tordrt/schemabridge/internal/builder"
	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/schema"
)

// Source is a connected database whose catalog can be extracted.
type Source interface {
	// Dialect is the dialect whose normalization pass the result needs.
	Dialect() dialect.Dialect
	// Extract reads the given tables, or every base table when tables is
	// empty.
	Extract(ctx context.Context, tables []string) (*ddl.Result, error)
	Close() error
}

// ConnectError reports a database that could not be reached.
type ConnectError struct {
	Dialect dialect.Dialect
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Dialect, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Supported lists the dialects that can be introspected.
var Supported = []dialect.Dialect{dialect.PostgreSQL, dialect.MySQL, dialect.SQLite}

// Open connects to the database at dsn. namespace selects the PostgreSQL
// schema or the MySQL database and may be empty; SQLite ignores it.
func Open(ctx context.Context, d dialect.Dialect, dsn, namespace string, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch d {
	case dialect.PostgreSQL:
		client, err := NewPostgresClient(ctx, dsn)
		if err != nil {
			return nil, &ConnectError{Dialect: d, Err: err}
		}
		if namespace == "" {
			namespace = schema.DefaultNamespace
		}
		return NewPostgresExtractor(client, namespace, logger), nil

	case dialect.MySQL:
		client, err := NewMySQLClient(ctx, dsn)
		if err != nil {
			return nil, &ConnectError{Dialect: d, Err: err}
		}
		if namespace == "" {
			if namespace, err = client.CurrentDatabase(ctx); err != nil {
				_ = client.Close()
				return nil, &ConnectError{Dialect: d, Err: err}
			}
		}
		return NewMySQLExtractor(client, namespace, logger), nil

	case dialect.SQLite:
		client, err := NewSQLiteClient(ctx, dsn)
		if err != nil {
			return nil, &ConnectError{Dialect: d, Err: err}
		}
		return NewSQLiteExtractor(client, logger), nil
	}

	names := make([]string, len(Supported))
	for i, s := range Supported {
		names[i] = s.String()
	}
	return nil, &schema.UnsupportedDialectError{Kind: schema.KindSource, Name: d.String(), Supported: names}
}

// ExtractSchema extracts src and builds the canonical schema from it.
func ExtractSchema(ctx context.Context, src Source, tables []string, opts schema.Options) (*schema.Schema, error) {
	res, err := src.Extract(ctx, tables)
	if err != nil {
		return nil, err
	}
	opts.Log().Debug("extracted catalog", "dialect", src.Dialect().String(), "tables", len(res.Tables), "enums", len(res.Enums))

	dialect.Normalize(src.Dialect(), res)
	return builder.Build(src.Dialect(), res, opts)
}

// foreignKeyRow is one column pair of a foreign key as catalogs list them.
type foreignKeyRow struct {
	name      string
	column    string
	refTable  string
	refColumn string
	onDelete  string
	onUpdate  string
}

// groupForeignKeys folds per-column rows into one foreign key per constraint
// name, in first-seen order.
func groupForeignKeys(rows []foreignKeyRow) []ddl.ParsedForeignKey {
	var out []ddl.ParsedForeignKey
	pos := make(map[string]int)
	for _, r := range rows {
		i, ok := pos[r.name]
		if !ok {
			i = len(out)
			pos[r.name] = i
			out = append(out, ddl.ParsedForeignKey{
				Name:     r.name,
				RefTable: r.refTable,
				OnDelete: referentialAction(r.onDelete),
				OnUpdate: referentialAction(r.onUpdate),
			})
		}
		out[i].Columns = append(out[i].Columns, r.column)
		if r.refColumn != "" {
			out[i].RefColumns = append(out[i].RefColumns, r.refColumn)
		}
	}
	return out
}

// referentialAction drops the implicit NO ACTION so introspected keys match
// keys parsed from DDL that never spelled it out.
func referentialAction(rule string) string {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	if rule == "NO ACTION" {
		return ""
	}
	return rule
}

// addUniques records single-column unique sets on the column and keeps
// composite ones on the table.
func addUniques(t *ddl.ParsedTable, cols []string) {
	if len(cols) == 1 {
		if col := t.Column(cols[0]); col != nil {
			col.Unique = true
			return
		}
	}
	t.Uniques = append(t.Uniques, cols)
}

// fillImplicitReferences resolves foreign keys that name no target columns
// to the primary key of the target table.
func fillImplicitReferences(res *ddl.Result) {
	for i := range res.Tables {
		for j := range res.Tables[i].ForeignKeys {
			fk := &res.Tables[i].ForeignKeys[j]
			if len(fk.RefColumns) > 0 {
				continue
			}
			if target := res.Table(fk.RefTable); target != nil {
				fk.RefColumns = append([]string(nil), target.PrimaryKey...)
			}
		}
	}
}
