package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient wraps a read-only handle on a database file.
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient opens the database at path read-only. A path that is
// already a "file:" URI is used as given.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &SQLiteClient{db: db}, nil
}

// Close closes the database handle.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database handle.
func (c *SQLiteClient) GetDB() *sql.DB {
	return c.db
}
