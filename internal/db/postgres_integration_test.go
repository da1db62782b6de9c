//go:build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/testutil"
)

const blogDDL = `
CREATE TYPE post_status AS ENUM ('draft', 'published');

CREATE TABLE users (
	id SERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	display_name TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
COMMENT ON TABLE users IS 'Registered accounts';

CREATE TABLE posts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	author_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	status post_status NOT NULL DEFAULT 'draft',
	price NUMERIC(10, 2) CHECK (price >= 0),
	tags TEXT[],
	UNIQUE (author_id, status)
);
CREATE INDEX idx_posts_status ON posts (status);
`

// postgresDSN returns DATABASE_URL when set, otherwise starts a container.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("postgres"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresExtractor_Integration(t *testing.T) {
	ctx := context.Background()
	dsn := postgresDSN(t)

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "DROP SCHEMA IF EXISTS bridge_it CASCADE; CREATE SCHEMA bridge_it; SET search_path TO bridge_it;"+blogDDL)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	src, err := Open(ctx, dialect.PostgreSQL, dsn, "bridge_it", testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer src.Close()

	s, err := ExtractSchema(ctx, src, nil, schema.Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	require.Len(t, s.Entities, 2)
	users := s.Entity("users")
	require.NotNil(t, users)
	assert.Equal(t, "Registered accounts", users.Comment)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	assert.True(t, users.Attribute("id").IsAutoIncrement)
	assert.Equal(t, 255, users.Attribute("email").Length)
	assert.True(t, users.Attribute("email").IsUnique)
	assert.True(t, users.Attribute("display_name").IsOptional)
	assert.Equal(t, schema.DefaultNow, users.Attribute("created_at").Default)

	posts := s.Entity("posts")
	require.NotNil(t, posts)
	assert.Equal(t, schema.TypeUUID, posts.Attribute("id").Type)
	assert.Equal(t, schema.DefaultUUID, posts.Attribute("id").Default)
	assert.Equal(t, "post_status", posts.Attribute("status").Enum)
	assert.Equal(t, "'draft'", posts.Attribute("status").Default)
	assert.Equal(t, schema.TypeJSON, posts.Attribute("tags").Type)
	assert.Equal(t, [][]string{{"author_id", "status"}}, posts.Uniques)
	require.Len(t, posts.Indexes, 1)
	assert.Equal(t, "idx_posts_status", posts.Indexes[0].Name)

	require.NotNil(t, s.Enum("post_status"))
	assert.Equal(t, []string{"draft", "published"}, s.Enum("post_status").Values)
	require.Len(t, s.ChecksFor("posts"), 1)
	assert.Contains(t, s.ChecksFor("posts")[0].Expression, "price >= ")

	rels := s.RelationsFrom("posts")
	require.Len(t, rels, 1)
	assert.Equal(t, "users", rels[0].TargetEntity)
	assert.Equal(t, "CASCADE", rels[0].OnDelete)
}
