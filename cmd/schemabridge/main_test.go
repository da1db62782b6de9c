package main

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemabridge/internal/db"
	"github.com/tordrt/schemabridge/internal/dialect"
	"github.com/tordrt/schemabridge/internal/schema"
)

const usersDDL = `
CREATE TABLE users (
	id INT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE
);
CREATE TABLE posts (
	id INT PRIMARY KEY,
	user_id INT NOT NULL REFERENCES users (id),
	title VARCHAR(200)
);`

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name       string
		tablesStr  string
		wantTables []string
	}{
		{"single table", "users", []string{"users"}},
		{"multiple tables", "users,posts,comments", []string{"users", "posts", "comments"}},
		{"tables with spaces", "users, posts, comments", []string{"users", "posts", "comments"}},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTables, parseTableList(tt.tablesStr))
		})
	}
}

func TestConvert_Stdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blog.sql", usersDDL)

	res := execute(t, "", "convert", "-s", "postgresql", "-t", "mysql", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	users := strings.Index(res.stdout, "CREATE TABLE `users`")
	posts := strings.Index(res.stdout, "CREATE TABLE `posts`")
	require.NotEqual(t, -1, users)
	assert.Less(t, users, posts)
}

func TestConvert_Stdin(t *testing.T) {
	res := execute(t, usersDDL, "convert", "--source", "postgres", "--target", "mermaid")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "erDiagram")
}

func TestConvert_ManyInputsToDir(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.sql", "CREATE TABLE a (id INT PRIMARY KEY);")
	b := writeFile(t, dir, "b.sql", "CREATE TABLE b (id INT PRIMARY KEY, name TEXT);")
	out := filepath.Join(dir, "out")

	res := execute(t, "", "convert", "-s", "postgresql", "-t", "prisma", "-d", out, a, b)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	for _, name := range []string{"a.prisma", "b.prisma"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "model")
	}
}

func TestConvert_SplitDocs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "blog.sql", usersDDL)
	out := filepath.Join(dir, "docs")

	res := execute(t, "", "convert", "-s", "postgresql", "-t", "markdown", "--output-dir", out, path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	for _, name := range []string{"_overview.md", "users.md", "posts.md"} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	// below the threshold everything goes to one file
	out2 := filepath.Join(dir, "single")
	res = execute(t, "", "convert", "-s", "postgresql", "-t", "text", "-d", out2, "--split-threshold", "5", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(out2, "blog.txt"))
}

func TestConvert_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.sql", usersDDL)
	empty := writeFile(t, dir, "empty.sql", "SELECT 1;")
	odd := writeFile(t, dir, "odd.sql", "CREATE TABLE t (id INT PRIMARY KEY, shape FANCYTYPE);")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing source", []string{"convert", "-t", "mysql", good}, ExitConfig},
		{"unknown target", []string{"convert", "-s", "mysql", "-t", "cobol", good}, ExitConfig},
		{"output and output-dir", []string{"convert", "-s", "mysql", "-t", "mysql", "-o", "x.sql", "-d", dir, good}, ExitConfig},
		{"no tables", []string{"convert", "-s", "postgresql", "-t", "mysql", empty}, ExitSchemaParse},
		{"strict unknown type", []string{"convert", "--strict", "-s", "postgresql", "-t", "mysql", odd}, ExitValidation},
		{"lenient unknown type", []string{"convert", "-s", "postgresql", "-t", "mysql", odd}, ExitSuccess},
		{"missing file", []string{"convert", "-s", "postgresql", "-t", "mysql", filepath.Join(dir, "nope.sql")}, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			assert.Equal(t, tt.want, res.code, res.stderr)
			if tt.want != ExitSuccess {
				assert.Contains(t, res.stderr, "Error:")
			}
		})
	}
}

func TestConvert_EnvConfig(t *testing.T) {
	t.Setenv("SCHEMABRIDGE_SOURCE", "postgresql")
	t.Setenv("SCHEMABRIDGE_TARGET", "dbml")

	res := execute(t, usersDDL, "convert")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Table users")
}

func TestParse_Snapshot(t *testing.T) {
	res := execute(t,
		"CREATE TABLE Users (Id INT IDENTITY(1,1) PRIMARY KEY, Email NVARCHAR(255) NOT NULL UNIQUE, CreatedAt DATETIME2 DEFAULT GETDATE())",
		"parse", "-s", "mssql")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "version: 1")
	assert.Contains(t, res.stdout, "source: sqlserver")
	assert.Contains(t, res.stdout, "name: Users")
	assert.Contains(t, res.stdout, "default: now()")

	res = execute(t, usersDDL, "parse", "-s", "postgresql", "--format", "json")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "{"))
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	oldSQL := writeFile(t, dir, "v1.sql", usersDDL)
	newSQL := writeFile(t, dir, "v2.sql", strings.Replace(usersDDL, "email VARCHAR(255) NOT NULL UNIQUE", "email VARCHAR(255) NOT NULL UNIQUE,\n\tnickname VARCHAR(40)", 1))
	snap := filepath.Join(dir, "v1.yaml")

	res := execute(t, "", "parse", "-s", "postgresql", oldSQL, "-o", snap)
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	for _, old := range []string{oldSQL, snap} {
		t.Run(filepath.Ext(old), func(t *testing.T) {
			res := execute(t, "", "diff", "-s", "postgresql", old, newSQL)
			require.Equal(t, ExitSuccess, res.code, res.stderr)
			assert.Contains(t, res.stdout, `ALTER TABLE "public"."users" ADD COLUMN "nickname" VARCHAR(40);`)
			assert.Contains(t, res.stderr, "+nickname")
			assert.NotContains(t, res.stderr, "Warning:")
		})
	}
}

func TestDiff_DropWarnsButSucceeds(t *testing.T) {
	dir := t.TempDir()
	oldSQL := writeFile(t, dir, "v1.sql", usersDDL)
	emptySQL := writeFile(t, dir, "v2.sql", "-- everything removed\n")
	out := filepath.Join(dir, "migration.sql")

	res := execute(t, "", "diff", "-s", "postgresql", oldSQL, emptySQL, "-o", out)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Warning:")
	assert.Contains(t, res.stderr, "data loss")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DROP TABLE")
}

func TestIntrospect_SQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.db")

	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = conn.Exec(usersDDL + `
CREATE TABLE schema_migrations (version TEXT PRIMARY KEY);`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	snap := filepath.Join(dir, "app.yaml")
	res := execute(t, "", "introspect", "sqlite://"+path, "-t", "text", "--exclude", "schema_migrations", "--snapshot", snap)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "TABLE users (PK: id)")
	assert.Contains(t, res.stdout, "TABLE posts (PK: id)")
	assert.NotContains(t, res.stdout, "schema_migrations")
	assert.FileExists(t, snap)
}

func TestIntrospect_ConnectFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")
	res := execute(t, "", "introspect", "sqlite://"+missing)
	assert.Equal(t, ExitDBConnect, res.code, res.stderr)

	res = execute(t, "", "introspect", "redis://localhost")
	assert.Equal(t, ExitConfig, res.code, res.stderr)
}

func TestDialects(t *testing.T) {
	res := execute(t, "", "dialects")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	for _, want := range []string{"sqlserver", "mssql", "mongodb", "prisma", "ORM models", ".mmd"} {
		assert.Contains(t, res.stdout, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error kept", ConfigError("bad", nil), ExitConfig},
		{"wrapped exit error", fmt.Errorf("outer: %w", SchemaParseError("x", nil)), ExitSchemaParse},
		{"connect", &db.ConnectError{Dialect: dialect.MySQL, Err: errors.New("refused")}, ExitDBConnect},
		{"unsupported", &schema.UnsupportedDialectError{Kind: schema.KindTarget, Name: "cobol"}, ExitConfig},
		{"validation", fmt.Errorf("emit: %w", &schema.ValidationError{Problems: []string{"dup"}}), ExitValidation},
		{"diff", &schema.DiffError{Side: "new", Err: &schema.ValidationError{Problems: []string{"dup"}}}, ExitValidation},
		{"empty", schema.ErrEmptySchema, ExitSchemaParse},
		{"other", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err).Code)
		})
	}

	assert.Equal(t, "boom", classify(errors.New("boom")).Error())
}
