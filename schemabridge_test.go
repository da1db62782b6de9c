package schemabridge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemabridge/internal/db"
	"github.com/tordrt/schemabridge/internal/schema"
	"github.com/tordrt/schemabridge/internal/testutil"
)

func testOptions(t *testing.T) Options {
	return Options{Now: testutil.FixedNow(), Logger: testutil.NewTestLogger(t)}
}

const independentTables = `
CREATE TABLE accounts (
	id INTEGER PRIMARY KEY,
	handle VARCHAR(100) NOT NULL,
	bio TEXT,
	balance DECIMAL(12,2) NOT NULL,
	rating DOUBLE PRECISION,
	active BOOLEAN NOT NULL,
	joined DATE,
	seen_at TIMESTAMP,
	external_id UUID,
	avatar BYTEA
);

CREATE TABLE audit_events (
	id BIGINT PRIMARY KEY,
	kind VARCHAR(40) NOT NULL,
	payload TEXT
);
`

// shape reduces a schema to entity name -> attribute name -> canonical type.
func shape(s *Schema) map[string]map[string]schema.Type {
	out := make(map[string]map[string]schema.Type, len(s.Entities))
	for _, e := range s.Entities {
		cols := make(map[string]schema.Type, len(e.Attributes))
		for _, a := range e.Attributes {
			cols[a.Name] = a.Type
		}
		out[e.Name] = cols
	}
	return out
}

func TestConvert_RoundTripPreservesShape(t *testing.T) {
	opts := testOptions(t)
	original, err := ParseSchema(independentTables, PostgreSQL, opts)
	require.NoError(t, err)
	require.Len(t, original.Entities, 2)

	tests := []struct {
		target Target
		source Dialect
	}{
		{ToPostgreSQL, PostgreSQL},
		{ToSupabase, PostgreSQL},
		{ToMySQL, MySQL},
		{ToSQLServer, SQLServer},
		{ToOracle, Oracle},
		{ToSQLite, SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			out, err := Emit(original, tt.target, opts)
			require.NoError(t, err)

			back, err := ParseSchema(out, tt.source, opts)
			require.NoError(t, err, out)
			assert.Equal(t, shape(original), shape(back), out)
		})
	}
}

func TestConvert_Deterministic(t *testing.T) {
	opts := testOptions(t)
	for _, name := range []string{"postgresql", "mysql", "prisma", "gorm", "dbml", "markdown"} {
		target, err := LookupTarget(name)
		require.NoError(t, err)

		first, err := Convert(independentTables, PostgreSQL, target, opts)
		require.NoError(t, err)
		second, err := Convert(independentTables, PostgreSQL, target, opts)
		require.NoError(t, err)
		assert.Equal(t, first, second, name)
	}
}

func TestConvert_ReferencedTableComesFirst(t *testing.T) {
	script := `
CREATE TABLE posts (
	id INT PRIMARY KEY,
	author_id INT NOT NULL REFERENCES authors (id)
);
CREATE TABLE authors (
	id INT PRIMARY KEY,
	name VARCHAR(80)
);`

	out, err := Convert(script, PostgreSQL, ToMySQL, testOptions(t))
	require.NoError(t, err)

	authors := strings.Index(out, "CREATE TABLE `authors`")
	posts := strings.Index(out, "CREATE TABLE `posts`")
	require.NotEqual(t, -1, authors)
	require.NotEqual(t, -1, posts)
	assert.Less(t, authors, posts)
}

func TestConvert_MutualForeignKeysTerminate(t *testing.T) {
	script := `
CREATE TABLE a (id INT PRIMARY KEY, b_id INT);
CREATE TABLE b (id INT PRIMARY KEY, a_id INT);
ALTER TABLE a ADD CONSTRAINT fk_a_b FOREIGN KEY (b_id) REFERENCES b (id);
ALTER TABLE b ADD CONSTRAINT fk_b_a FOREIGN KEY (a_id) REFERENCES a (id);`

	out, err := Convert(script, PostgreSQL, ToPostgreSQL, testOptions(t))
	require.NoError(t, err)

	require.Equal(t, 2, strings.Count(out, "CREATE TABLE"))
	require.Equal(t, 2, strings.Count(out, "ADD CONSTRAINT"))
	assert.Less(t, strings.LastIndex(out, "CREATE TABLE"), strings.Index(out, "ALTER TABLE"))
}

func TestParseSchema_SQLServerUsers(t *testing.T) {
	s, err := ParseSchema(
		"CREATE TABLE Users (Id INT IDENTITY(1,1) PRIMARY KEY, Email NVARCHAR(255) NOT NULL UNIQUE, CreatedAt DATETIME2 DEFAULT GETDATE())",
		SQLServer, testOptions(t))
	require.NoError(t, err)
	require.Len(t, s.Entities, 1)

	users := s.Entities[0]
	assert.Equal(t, "Users", users.Name)
	require.Len(t, users.Attributes, 3)

	id := users.Attribute("Id")
	assert.Equal(t, schema.TypeInteger, id.Type)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.IsOptional)

	email := users.Attribute("Email")
	assert.Equal(t, schema.TypeString, email.Type)
	assert.True(t, email.IsUnique)
	assert.False(t, email.IsOptional)

	createdAt := users.Attribute("CreatedAt")
	assert.Equal(t, schema.TypeTimestamp, createdAt.Type)
	assert.Equal(t, schema.DefaultNow, createdAt.Default)
}

func TestParseSchema_EmptyInput(t *testing.T) {
	s, err := ParseSchema("SELECT 1; INSERT INTO t VALUES (1);", PostgreSQL, testOptions(t))
	require.ErrorIs(t, err, ErrEmptySchema)
	require.NotNil(t, s)
	assert.Empty(t, s.Entities)

	_, err = Convert("", MySQL, ToPrisma, testOptions(t))
	assert.ErrorIs(t, err, ErrEmptySchema)
}

func TestParse_KeepsGoodStatements(t *testing.T) {
	res := Parse("CREATE TABLE ok (id INT); CREATE TABLE broken (id INT,, x);", PostgreSQL, testOptions(t))
	require.Len(t, res.Tables, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Statement)
}

func TestParseSchema_BrokenTableDoesNotSinkScript(t *testing.T) {
	scripts := map[string]string{
		"duplicate column":   "CREATE TABLE good (id INT PRIMARY KEY); CREATE TABLE bad (x INT, x INT);",
		"missing pk column":  "CREATE TABLE good (id INT PRIMARY KEY); CREATE TABLE bad (x INT, PRIMARY KEY (y));",
		"missing alter pk":   "CREATE TABLE good (id INT PRIMARY KEY); ALTER TABLE good ADD PRIMARY KEY (y);",
		"missing index part": "CREATE TABLE good (id INT PRIMARY KEY); CREATE INDEX i ON good (id, y);",
	}
	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			s, err := ParseSchema(script, PostgreSQL, testOptions(t))
			require.NoError(t, err)
			require.Len(t, s.Entities, 1)
			assert.Equal(t, "good", s.Entities[0].Name)
			assert.Equal(t, []string{"id"}, s.Entities[0].PrimaryKey)
		})
	}
}

func TestLookup_Unsupported(t *testing.T) {
	_, err := LookupDialect("dbase")
	var unsupported *UnsupportedDialectError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, schema.KindSource, unsupported.Kind)

	_, err = LookupTarget("cobol")
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, schema.KindTarget, unsupported.Kind)
}

func TestDiff_AddedColumnMigration(t *testing.T) {
	opts := testOptions(t)
	old, err := ParseSchema("CREATE TABLE users (id INT PRIMARY KEY, email VARCHAR(255) NOT NULL);", PostgreSQL, opts)
	require.NoError(t, err)
	updated, err := ParseSchema("CREATE TABLE users (id INT PRIMARY KEY, email VARCHAR(255) NOT NULL, nickname VARCHAR(40));", PostgreSQL, opts)
	require.NoError(t, err)

	d, err := Diff(old, updated)
	require.NoError(t, err)
	require.Len(t, d.TablesToModify, 1)
	require.Len(t, d.TablesToModify[0].ColumnsToAdd, 1)
	added := d.TablesToModify[0].ColumnsToAdd[0]
	assert.Equal(t, "nickname", added.Name)
	assert.Equal(t, schema.TypeString, added.Type)

	res, err := GenerateMigrationSQL(d, opts)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Warnings)
	assert.Contains(t, res.SQL, `ALTER TABLE "public"."users" ADD COLUMN "nickname" VARCHAR(40);`)
}

func TestDiff_DropEverythingWarns(t *testing.T) {
	opts := testOptions(t)
	old, err := ParseSchema(independentTables, PostgreSQL, opts)
	require.NoError(t, err)

	d, err := Diff(old, &Schema{})
	require.NoError(t, err)
	assert.Len(t, d.TablesToRemove, len(old.Entities))

	res, err := GenerateMigrationSQL(d, opts)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0].String(), "data loss")
}

func TestDiff_InvalidSide(t *testing.T) {
	bad := &Schema{Entities: []Entity{{Name: "t"}, {Name: "t"}}}
	_, err := Diff(bad, &Schema{})

	var diffErr *DiffError
	require.True(t, errors.As(err, &diffErr))
	assert.Equal(t, "old", diffErr.Side)
}

func TestFormatSchema(t *testing.T) {
	s, err := ParseSchema(independentTables, PostgreSQL, testOptions(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FormatSchema(s, &OutputOptions{Target: ToMermaid, Writer: &buf, Options: testOptions(t)}))
	assert.Contains(t, buf.String(), "erDiagram")

	dir := t.TempDir()
	require.NoError(t, FormatSchema(s, &OutputOptions{Target: ToMarkdown, OutputDir: dir, Options: testOptions(t)}))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var files []string
	for _, e := range entries {
		files = append(files, e.Name())
	}
	sort.Strings(files)
	assert.Equal(t, []string{"_overview.md", "accounts.md", "audit_events.md"}, files)

	err = FormatSchema(s, &OutputOptions{Target: ToPrisma, OutputDir: filepath.Join(dir, "prisma")})
	assert.True(t, schema.IsUnsupportedDialect(err))
}

func TestExtractSchema_Errors(t *testing.T) {
	_, err := ExtractSchema(context.Background(), "oracle://scott@db", nil)
	assert.ErrorContains(t, err, "invalid database URL scheme")

	missing := filepath.Join(t.TempDir(), "missing.db")
	err = ExtractAndFormat(context.Background(), "sqlite://"+missing, nil, &OutputOptions{Writer: &bytes.Buffer{}})
	var connErr *db.ConnectError
	require.True(t, errors.As(err, &connErr), "got %v", err)
}
