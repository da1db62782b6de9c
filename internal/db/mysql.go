package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLClient wraps the database handle used for catalog queries.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient opens dsn (go-sql-driver format, e.g.
// "user:pass@tcp(localhost:3306)/app") and pings the server.
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// catalog columns such as column_default are text, never time values
	cfg.ParseTime = false

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &MySQLClient{db: db}, nil
}

// CurrentDatabase returns the database selected by the DSN.
func (c *MySQLClient) CurrentDatabase(ctx context.Context) (string, error) {
	var name sql.NullString
	if err := c.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return "", fmt.Errorf("read current database: %w", err)
	}
	if !name.Valid || name.String == "" {
		return "", fmt.Errorf("no database selected in dsn")
	}
	return name.String, nil
}

// Close closes the database handle.
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database handle.
func (c *MySQLClient) GetDB() *sql.DB {
	return c.db
}
