package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// SQLiteExtractor reads a SQLite database through its PRAGMA functions.
type SQLiteExtractor struct {
	client *SQLiteClient
	logger *slog.Logger
}

// NewSQLiteExtractor creates a SQLite extractor.
func NewSQLiteExtractor(client *SQLiteClient, logger *slog.Logger) *SQLiteExtractor {
	return &SQLiteExtractor{client: client, logger: logger}
}

func (e *SQLiteExtractor) Dialect() dialect.Dialect { return dialect.SQLite }

func (e *SQLiteExtractor) Close() error { return e.client.Close() }

// Extract reads the given tables, or every user table when tables is empty.
// Foreign keys that omit the target columns are resolved to the target's
// primary key.
func (e *SQLiteExtractor) Extract(ctx context.Context, tables []string) (*ddl.Result, error) {
	names, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	res := &ddl.Result{}
	for _, name := range names {
		table, err := e.extractTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", name, err)
		}
		res.Tables = append(res.Tables, *table)
	}
	fillImplicitReferences(res)
	return res, nil
}

func (e *SQLiteExtractor) getTableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// pragma renders a table-valued PRAGMA call on a quoted name.
func pragma(fn, name string) string {
	return fmt.Sprintf("PRAGMA %s(%s)", fn, pq.QuoteIdentifier(name))
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, name string) (*ddl.ParsedTable, error) {
	e.logger.Debug("extracting table", "table", name)
	table := &ddl.ParsedTable{Name: name}

	if err := e.extractColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", name)
	}

	var err error
	if table.ForeignKeys, err = e.extractForeignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	if err := e.extractIndexes(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	return table, nil
}

// extractColumns reads columns and the primary key from table_info. A lone
// INTEGER primary key aliases the rowid and is auto-incrementing.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, table *ddl.ParsedTable) error {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("table_info", table.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkCol struct {
		name  string
		order int
	}
	var pk []pkCol

	for rows.Next() {
		var (
			cid, notNull, pkOrder int
			name, declared        string
			def                   sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &def, &pkOrder); err != nil {
			return err
		}

		col := ddl.ParsedColumn{Type: "BLOB"}
		if strings.TrimSpace(declared) != "" {
			if col, err = ddl.ParseType(declared, sqltoken.Quoting{Backtick: true, Bracket: true}); err != nil {
				return fmt.Errorf("column %s: type %q: %w", name, declared, err)
			}
		}
		col.Name = name
		col.Nullable = notNull == 0 && pkOrder == 0
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		if pkOrder > 0 {
			pk = append(pk, pkCol{name: name, order: pkOrder})
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].order < pk[j].order })
	for _, c := range pk {
		table.PrimaryKey = append(table.PrimaryKey, c.name)
	}
	if len(pk) == 1 {
		if col := table.Column(pk[0].name); col != nil && (col.Type == "INTEGER" || col.Type == "INT") {
			col.AutoIncrement = true
		}
	}
	return nil
}

func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, name string) ([]ddl.ParsedForeignKey, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("foreign_key_list", name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fkRows []foreignKeyRow
	for rows.Next() {
		var (
			id, seq                                 int
			target, from, onUpdate, onDelete, match string
			to                                      sql.NullString
		)
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fkRows = append(fkRows, foreignKeyRow{
			name:      fmt.Sprintf("fk_%s_%d", name, id),
			column:    from,
			refTable:  target,
			refColumn: to.String,
			onDelete:  onDelete,
			onUpdate:  onUpdate,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupForeignKeys(fkRows), nil
}

type sqliteIndex struct {
	name   string
	unique bool
	origin string
}

// extractIndexes reads index_list, then index_info for each index. Indexes
// created by UNIQUE constraints become unique constraints; the primary key
// index is skipped.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, table *ddl.ParsedTable) error {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("index_list", table.Name))
	if err != nil {
		return err
	}
	var list []sqliteIndex
	for rows.Next() {
		var (
			seq, unique, partial int
			idx                  sqliteIndex
		)
		if err := rows.Scan(&seq, &idx.name, &unique, &idx.origin, &partial); err != nil {
			_ = rows.Close()
			return err
		}
		idx.unique = unique == 1
		if idx.origin != "pk" {
			list = append(list, idx)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	// index_list reports the newest index first
	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })

	for _, idx := range list {
		cols, err := e.indexColumns(ctx, idx.name)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			continue
		}
		if idx.origin == "u" {
			addUniques(table, cols)
			continue
		}
		table.Indexes = append(table.Indexes, ddl.ParsedIndex{Name: idx.name, Columns: cols, Unique: idx.unique})
	}
	return nil
}

// indexColumns lists the columns of an index. Expression columns have no
// name and are skipped.
func (e *SQLiteExtractor) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("index_info", index))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}
