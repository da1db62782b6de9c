package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/schema"
)

func TestOpen_ConnectError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Open(ctx, dialect.PostgreSQL, "postgres://nobody@127.0.0.1:1/none?sslmode=disable", "", nil)
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, dialect.PostgreSQL, ce.Dialect)
	assert.Contains(t, err.Error(), "connect to postgresql")
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), dialect.Oracle, "whatever", "", nil)
	require.Error(t, err)
	assert.True(t, schema.IsUnsupportedDialect(err))
	assert.Contains(t, err.Error(), "postgresql, mysql, sqlite")
}

func TestAddUniques(t *testing.T) {
	table := &ddl.ParsedTable{Columns: []ddl.ParsedColumn{{Name: "a"}, {Name: "b"}}}

	addUniques(table, []string{"a"})
	addUniques(table, []string{"a", "b"})
	addUniques(table, []string{"missing"})

	assert.True(t, table.Column("a").Unique)
	assert.False(t, table.Column("b").Unique)
	assert.Equal(t, [][]string{{"a", "b"}, {"missing"}}, table.Uniques)
}

func TestFillImplicitReferences(t *testing.T) {
	res := &ddl.Result{Tables: []ddl.ParsedTable{
		{Name: "users", PrimaryKey: []string{"id"}},
		{Name: "posts", ForeignKeys: []ddl.ParsedForeignKey{
			{Columns: []string{"user_id"}, RefTable: "users"},
			{Columns: []string{"org_id"}, RefTable: "orgs"},
		}},
	}}

	fillImplicitReferences(res)

	assert.Equal(t, []string{"id"}, res.Tables[1].ForeignKeys[0].RefColumns)
	assert.Empty(t, res.Tables[1].ForeignKeys[1].RefColumns)
}
