package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/dialect"
)

// PostgresExtractor reads one PostgreSQL schema.
type PostgresExtractor struct {
	client *PostgresClient
	schema string
	logger *slog.Logger
}

// NewPostgresExtractor creates an extractor for the schema schemaName.
func NewPostgresExtractor(client *PostgresClient, schemaName string, logger *slog.Logger) *PostgresExtractor {
	return &PostgresExtractor{client: client, schema: schemaName, logger: logger}
}

func (e *PostgresExtractor) Dialect() dialect.Dialect { return dialect.PostgreSQL }

func (e *PostgresExtractor) Close() error {
	return e.client.Close(context.Background())
}

// Extract reads the enum types of the schema and the given tables, or every
// base table when tables is empty.
func (e *PostgresExtractor) Extract(ctx context.Context, tables []string) (*ddl.Result, error) {
	if v, err := e.client.ServerVersion(ctx); err == nil {
		e.logger.Debug("introspecting postgresql", "version", v, "schema", e.schema)
	}

	names, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	enums, err := e.extractEnums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract enum types: %w", err)
	}
	res := &ddl.Result{Enums: enums}

	for _, name := range names {
		table, err := e.extractTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", name, err)
		}
		res.Tables = append(res.Tables, *table)
	}
	return res, nil
}

func (e *PostgresExtractor) getTableNames(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	query := `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
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

func (e *PostgresExtractor) extractTable(ctx context.Context, name string) (*ddl.ParsedTable, error) {
	e.logger.Debug("extracting table", "table", name)
	table := &ddl.ParsedTable{Name: name}

	comment, err := e.extractTableComment(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract comment: %w", err)
	}
	table.Comment = comment

	if table.Columns, err = e.extractColumns(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s does not exist or has no columns", e.schema, name)
	}
	if table.PrimaryKey, err = e.extractPrimaryKey(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	if table.ForeignKeys, err = e.extractForeignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	if err := e.extractUniques(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract unique constraints: %w", err)
	}
	if table.Indexes, err = e.extractIndexes(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	if table.Checks, err = e.extractChecks(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to extract checks: %w", err)
	}
	return table, nil
}

func (e *PostgresExtractor) extractTableComment(ctx context.Context, name string) (string, error) {
	query := `
		SELECT COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
	`
	var comment string
	err := e.client.GetConnection().QueryRow(ctx, query, e.schema, name).Scan(&comment)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return comment, nil
}

// pgColumnType turns an information_schema type description into the type
// fields of a parsed column.
func pgColumnType(col *ddl.ParsedColumn, dataType, udtName string, charLen, precision, scale *int) {
	switch dataType {
	case "USER-DEFINED":
		col.Type = strings.ToUpper(udtName)
		return
	case "ARRAY":
		col.Array = true
		col.Type = strings.ToUpper(strings.TrimPrefix(udtName, "_"))
		return
	case "timestamp without time zone":
		col.Type = "TIMESTAMP"
	case "time without time zone":
		col.Type = "TIME"
	default:
		col.Type = strings.ToUpper(dataType)
	}

	switch {
	case charLen != nil:
		col.Args = []string{strconv.Itoa(*charLen)}
	case dataType == "numeric" && precision != nil:
		s := 0
		if scale != nil {
			s = *scale
		}
		col.Args = []string{strconv.Itoa(*precision), strconv.Itoa(s)}
	}
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, name string) ([]ddl.ParsedColumn, error) {
	query := `
		SELECT
			c.column_name::text,
			c.data_type::text,
			c.udt_name::text,
			c.character_maximum_length::int,
			c.numeric_precision::int,
			c.numeric_scale::int,
			c.is_nullable = 'YES',
			c.column_default::text,
			c.is_identity = 'YES',
			COALESCE(col_description(pc.oid, c.ordinal_position::int), '')
		FROM information_schema.columns c
		JOIN pg_namespace n ON n.nspname = c.table_schema
		JOIN pg_class pc ON pc.relnamespace = n.oid AND pc.relname = c.table_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ddl.ParsedColumn
	for rows.Next() {
		var (
			col                       ddl.ParsedColumn
			dataType, udtName         string
			charLen, precision, scale *int
			identity                  bool
		)
		if err := rows.Scan(&col.Name, &dataType, &udtName, &charLen, &precision, &scale,
			&col.Nullable, &col.Default, &identity, &col.Comment); err != nil {
			return nil, err
		}
		pgColumnType(&col, dataType, udtName, charLen, precision, scale)
		col.AutoIncrement = identity
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// extractEnums reads every enum type of the schema with labels in sort
// order.
func (e *PostgresExtractor) extractEnums(ctx context.Context) ([]ddl.ParsedEnum, error) {
	query := `
		SELECT t.typname::text, e.enumlabel::text
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enums []ddl.ParsedEnum
	for rows.Next() {
		var typName, label string
		if err := rows.Scan(&typName, &label); err != nil {
			return nil, err
		}
		if n := len(enums); n == 0 || enums[n-1].Name != typName {
			enums = append(enums, ddl.ParsedEnum{Name: typName})
		}
		enums[len(enums)-1].Values = append(enums[len(enums)-1].Values, label)
	}
	return enums, rows.Err()
}

func (e *PostgresExtractor) extractPrimaryKey(ctx context.Context, name string) ([]string, error) {
	query := `
		SELECT a.attname::text
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		WHERE con.contype = 'p' AND n.nspname = $1 AND t.relname = $2
		ORDER BY k.ord
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, name)
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

// pgActions maps pg_constraint action codes to SQL.
var pgActions = map[string]string{
	"a": "NO ACTION",
	"r": "RESTRICT",
	"c": "CASCADE",
	"n": "SET NULL",
	"d": "SET DEFAULT",
}

func (e *PostgresExtractor) extractForeignKeys(ctx context.Context, name string) ([]ddl.ParsedForeignKey, error) {
	query := `
		SELECT
			con.conname::text,
			a.attname::text,
			ft.relname::text,
			fa.attname::text,
			con.confdeltype::text,
			con.confupdtype::text
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_class ft ON ft.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum
		WHERE con.contype = 'f' AND n.nspname = $1 AND t.relname = $2
		ORDER BY con.conname, k.ord
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fkRows []foreignKeyRow
	for rows.Next() {
		var r foreignKeyRow
		var onDelete, onUpdate string
		if err := rows.Scan(&r.name, &r.column, &r.refTable, &r.refColumn, &onDelete, &onUpdate); err != nil {
			return nil, err
		}
		r.onDelete, r.onUpdate = pgActions[onDelete], pgActions[onUpdate]
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupForeignKeys(fkRows), nil
}

func (e *PostgresExtractor) extractUniques(ctx context.Context, table *ddl.ParsedTable) error {
	query := `
		SELECT array_agg(a.attname::text ORDER BY k.ord)
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		WHERE con.contype = 'u' AND n.nspname = $1 AND t.relname = $2
		GROUP BY con.conname
		ORDER BY con.conname
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cols []string
		if err := rows.Scan(&cols); err != nil {
			return err
		}
		addUniques(table, cols)
	}
	return rows.Err()
}

// extractIndexes reads secondary indexes. Indexes backing a primary key or
// unique constraint are reported through those constraints instead.
func (e *PostgresExtractor) extractIndexes(ctx context.Context, name string) ([]ddl.ParsedIndex, error) {
	query := `
		SELECT
			i.relname::text,
			ix.indisunique,
			array_agg(a.attname::text ORDER BY array_position(ix.indkey, a.attnum))
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT EXISTS (SELECT 1 FROM pg_constraint con WHERE con.conindid = ix.indexrelid)
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []ddl.ParsedIndex
	for rows.Next() {
		var idx ddl.ParsedIndex
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (e *PostgresExtractor) extractChecks(ctx context.Context, name string) ([]ddl.ParsedCheck, error) {
	query := `
		SELECT con.conname::text, pg_get_constraintdef(con.oid)
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE con.contype = 'c' AND n.nspname = $1 AND t.relname = $2
		ORDER BY con.conname
	`
	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []ddl.ParsedCheck
	for rows.Next() {
		var c ddl.ParsedCheck
		var def string
		if err := rows.Scan(&c.Name, &def); err != nil {
			return nil, err
		}
		c.Expression = checkExpression(def)
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// checkExpression strips the CHECK keyword and wrapping parentheses from a
// constraint definition.
func checkExpression(def string) string {
	def = strings.TrimSpace(def)
	if len(def) >= 5 && strings.EqualFold(def[:5], "CHECK") {
		def = strings.TrimSpace(def[5:])
	}
	def = strings.TrimSuffix(def, " NOT VALID")
	return dialect.StripParens(def)
}
