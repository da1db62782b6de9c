package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// MySQLExtractor reads one MySQL database.
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
	logger     *slog.Logger
}

// NewMySQLExtractor creates an extractor for the database schemaName.
func NewMySQLExtractor(client *MySQLClient, schemaName string, logger *slog.Logger) *MySQLExtractor {
	return &MySQLExtractor{client: client, schemaName: schemaName, logger: logger}
}

func (e *MySQLExtractor) Dialect() dialect.Dialect { return dialect.MySQL }

func (e *MySQLExtractor) Close() error { return e.client.Close() }

// Extract reads the given tables, or every base table when tables is empty.
func (e *MySQLExtractor) Extract(ctx context.Context, tables []string) (*ddl.Result, error) {
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
	return res, nil
}

func (e *MySQLExtractor) getTableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
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

func (e *MySQLExtractor) extractTable(ctx context.Context, name string) (*ddl.ParsedTable, error) {
	e.logger.Debug("extracting table", "table", name)
	table := &ddl.ParsedTable{Name: name}

	var comment sql.NullString
	err := e.client.GetDB().QueryRowContext(ctx, `
		SELECT table_comment
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`, e.schemaName, name).Scan(&comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s.%s does not exist", e.schemaName, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract comment: %w", err)
	}
	table.Comment = comment.String

	if table.Columns, err = e.extractColumns(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if table.PrimaryKey, err = e.extractPrimaryKey(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	if table.ForeignKeys, err = e.extractForeignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	if err := e.extractIndexes(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	return table, nil
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, name string) ([]ddl.ParsedColumn, error) {
	query := `
		SELECT column_name, column_type, data_type, is_nullable, column_default, extra, column_comment
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ddl.ParsedColumn
	for rows.Next() {
		var (
			colName, columnType, dataType, nullable, extra, comment string
			def                                                     sql.NullString
		)
		if err := rows.Scan(&colName, &columnType, &dataType, &nullable, &def, &extra, &comment); err != nil {
			return nil, err
		}

		col, err := ddl.ParseType(columnType, sqltoken.Quoting{Backtick: true})
		if err != nil {
			return nil, fmt.Errorf("column %s: type %q: %w", colName, columnType, err)
		}
		col.Name = colName
		col.Nullable = nullable == "YES"
		col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		col.Default = mysqlDefault(def, dataType, extra)
		col.Comment = comment
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// mysqlNumeric lists data types whose defaults are reported as bare numbers.
var mysqlNumeric = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "bigint": true,
	"decimal": true, "float": true, "double": true, "bit": true, "year": true,
}

// mysqlDefault turns an information_schema default back into SQL. MySQL
// reports string literals unquoted and marks expression defaults with
// DEFAULT_GENERATED.
func mysqlDefault(def sql.NullString, dataType, extra string) *string {
	if !def.Valid {
		return nil
	}
	v := def.String
	switch {
	case strings.Contains(strings.ToUpper(extra), "DEFAULT_GENERATED"),
		mysqlNumeric[strings.ToLower(dataType)],
		strings.HasPrefix(strings.ToUpper(v), "CURRENT_TIMESTAMP"):
	default:
		v = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return &v
}

func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, name string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`
	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		pk = append(pk, col)
	}
	return pk, rows.Err()
}

func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, name string) ([]ddl.ParsedForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.table_schema
			AND rc.constraint_name = kcu.constraint_name
			AND rc.table_name = kcu.table_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`
	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fkRows []foreignKeyRow
	for rows.Next() {
		var r foreignKeyRow
		if err := rows.Scan(&r.name, &r.column, &r.refTable, &r.refColumn, &r.onDelete, &r.onUpdate); err != nil {
			return nil, err
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupForeignKeys(fkRows), nil
}

// extractIndexes reads every index but the primary key. Unique indexes
// become unique constraints; the index InnoDB adds for each foreign key is
// skipped.
func (e *MySQLExtractor) extractIndexes(ctx context.Context, table *ddl.ParsedTable) error {
	query := `
		SELECT
			s.index_name,
			s.non_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`
	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	fkNames := make(map[string]bool, len(table.ForeignKeys))
	for _, fk := range table.ForeignKeys {
		fkNames[fk.Name] = true
	}

	for rows.Next() {
		var (
			name, columnNames string
			nonUnique         int
		)
		if err := rows.Scan(&name, &nonUnique, &columnNames); err != nil {
			return err
		}
		cols := strings.Split(columnNames, ",")
		switch {
		case nonUnique == 0:
			addUniques(table, cols)
		case fkNames[name]:
		default:
			table.Indexes = append(table.Indexes, ddl.ParsedIndex{Name: name, Columns: cols})
		}
	}
	return rows.Err()
}
