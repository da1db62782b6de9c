package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemabridge/internal/sqltoken"
)

var (
	ansi     = Grammar{}
	mysqlG   = Grammar{Quoting: sqltoken.Quoting{Backtick: true}}
	sqlsrvG  = Grammar{Quoting: sqltoken.Quoting{Bracket: true}, BatchSeparator: true}
	keepNote = true
)

func parse(t *testing.T, g Grammar, script string) *Result {
	t.Helper()
	return NewParser(g, keepNote, nil).Parse(script)
}

func TestParse_CreateTable(t *testing.T) {
	res := parse(t, ansi, `
CREATE TABLE IF NOT EXISTS public.orders (
    id SERIAL PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    total NUMERIC(10, 2) DEFAULT 0 NOT NULL,
    status VARCHAR(20) DEFAULT 'new'::character varying,
    placed_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
    tags TEXT[],
    CONSTRAINT uq_orders_ref UNIQUE (customer_id, placed_at),
    CHECK (total >= 0)
);`)

	require.Empty(t, res.Skipped)
	require.Len(t, res.Tables, 1)
	tbl := res.Tables[0]

	assert.Equal(t, "orders", tbl.Name)
	assert.Equal(t, "public", tbl.Namespace)
	assert.Equal(t, []string{"id"}, tbl.PrimaryKey)
	require.Len(t, tbl.Columns, 6)

	id := tbl.Columns[0]
	assert.Equal(t, "SERIAL", id.Type)
	assert.True(t, id.PrimaryKey)
	assert.False(t, id.Nullable)

	cust := tbl.Columns[1]
	assert.False(t, cust.Nullable)
	require.NotNil(t, cust.References)
	assert.Equal(t, "customers", cust.References.Table)
	assert.Equal(t, []string{"id"}, cust.References.Columns)
	assert.Equal(t, "CASCADE", cust.References.OnDelete)

	total := tbl.Columns[2]
	assert.Equal(t, "NUMERIC", total.Type)
	assert.Equal(t, []string{"10", "2"}, total.Args)
	require.NotNil(t, total.Default)
	assert.Equal(t, "0", *total.Default)
	assert.False(t, total.Nullable)

	status := tbl.Columns[3]
	require.NotNil(t, status.Default)
	assert.Equal(t, "'new'::character varying", *status.Default)
	assert.True(t, status.Nullable)

	assert.Equal(t, "TIMESTAMP WITH TIME ZONE", tbl.Columns[4].Type)
	assert.Equal(t, "now()", *tbl.Columns[4].Default)
	assert.True(t, tbl.Columns[5].Array)

	assert.Equal(t, [][]string{{"customer_id", "placed_at"}}, tbl.Uniques)
	require.Len(t, tbl.Checks, 1)
	assert.Equal(t, "total >= 0", tbl.Checks[0].Expression)

	require.Len(t, tbl.ForeignKeys, 1)
	assert.Equal(t, []string{"customer_id"}, tbl.ForeignKeys[0].Columns)
}

func TestParse_SQLServerUsers(t *testing.T) {
	res := parse(t, sqlsrvG, `CREATE TABLE [dbo].[Users] (
    [Id] INT IDENTITY(1,1) NOT NULL,
    [Email] NVARCHAR(255) NOT NULL,
    [Bio] NVARCHAR(MAX) NULL,
    [Active] BIT NOT NULL DEFAULT ((1)),
    [CreatedAt] DATETIME2 NOT NULL DEFAULT (GETDATE()),
    CONSTRAINT [PK_Users] PRIMARY KEY CLUSTERED ([Id] ASC)
)
GO
ALTER TABLE [dbo].[Users] ADD CONSTRAINT [UQ_Users_Email] UNIQUE ([Email])
GO`)

	require.Empty(t, res.Skipped)
	require.Len(t, res.Tables, 1)
	tbl := res.Tables[0]
	assert.Equal(t, "Users", tbl.Name)
	assert.Equal(t, "dbo", tbl.Namespace)
	assert.Equal(t, []string{"Id"}, tbl.PrimaryKey)

	id := tbl.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.AutoIncrement)
	assert.True(t, id.PrimaryKey)

	bio := tbl.Column("Bio")
	assert.Equal(t, []string{"MAX"}, bio.Args)
	assert.True(t, bio.Nullable)

	assert.Equal(t, "((1))", *tbl.Column("Active").Default)
	assert.Equal(t, "(GETDATE())", *tbl.Column("CreatedAt").Default)
	assert.True(t, tbl.Column("Email").Unique)
}

func TestParse_MySQL(t *testing.T) {
	res := parse(t, mysqlG, "CREATE TABLE `posts` (\n"+
		"  `id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,\n"+
		"  `state` ENUM('draft','published') NOT NULL DEFAULT 'draft',\n"+
		"  `flag` TINYINT(1) NOT NULL DEFAULT 0 COMMENT 'is featured',\n"+
		"  `updated_at` DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,\n"+
		"  PRIMARY KEY (`id`),\n"+
		"  KEY `idx_state` (`state`)\n"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COMMENT='blog posts';")

	require.Empty(t, res.Skipped)
	tbl := res.Tables[0]
	assert.Equal(t, "blog posts", tbl.Comment)

	id := tbl.Column("id")
	assert.True(t, id.Unsigned)
	assert.True(t, id.AutoIncrement)
	assert.True(t, id.PrimaryKey)

	state := tbl.Column("state")
	assert.Equal(t, "ENUM", state.Type)
	assert.Equal(t, []string{"draft", "published"}, state.EnumValues)
	assert.Equal(t, "'draft'", *state.Default)

	flag := tbl.Column("flag")
	assert.Equal(t, []string{"1"}, flag.Args)
	assert.Equal(t, "is featured", flag.Comment)

	assert.Equal(t, "CURRENT_TIMESTAMP", *tbl.Column("updated_at").Default)
	require.Len(t, tbl.Indexes, 1)
	assert.Equal(t, ParsedIndex{Name: "idx_state", Columns: []string{"state"}}, tbl.Indexes[0])
}

func TestParse_IndexesAlterAndEnums(t *testing.T) {
	res := parse(t, ansi, `
CREATE TYPE mood AS ENUM ('happy', 'sad');
CREATE TABLE users (id UUID PRIMARY KEY, email TEXT, feeling mood);
CREATE TABLE posts (id INT, author_id UUID);
CREATE UNIQUE INDEX idx_users_email ON users (email);
ALTER TABLE posts ADD CONSTRAINT pk_posts PRIMARY KEY (id);
ALTER TABLE posts ADD CONSTRAINT fk_author FOREIGN KEY (author_id) REFERENCES users (id) ON DELETE SET NULL;
ALTER TABLE posts ADD COLUMN title VARCHAR(100) NOT NULL;
COMMENT ON TABLE users IS 'people';
COMMENT ON COLUMN users.email IS 'login';
INSERT INTO users VALUES ('x');
`)

	require.Empty(t, res.Skipped)
	require.Len(t, res.Enums, 1)
	assert.Equal(t, ParsedEnum{Name: "mood", Values: []string{"happy", "sad"}}, res.Enums[0])

	users := res.Table("users")
	require.Len(t, users.Indexes, 1)
	assert.True(t, users.Indexes[0].Unique)
	assert.Equal(t, "people", users.Comment)
	assert.Equal(t, "login", users.Column("email").Comment)
	assert.Equal(t, "MOOD", users.Column("feeling").Type)

	posts := res.Table("posts")
	assert.Equal(t, []string{"id"}, posts.PrimaryKey)
	assert.True(t, posts.Column("id").PrimaryKey)
	require.Len(t, posts.ForeignKeys, 1)
	assert.Equal(t, ParsedForeignKey{
		Name:       "fk_author",
		Columns:    []string{"author_id"},
		RefTable:   "users",
		RefColumns: []string{"id"},
		OnDelete:   "SET NULL",
	}, posts.ForeignKeys[0])
	require.NotNil(t, posts.Column("title"))
	assert.False(t, posts.Column("title").Nullable)
}

func TestParse_SkipsMalformedStatements(t *testing.T) {
	res := parse(t, ansi, `
CREATE TABLE good (id INT PRIMARY KEY);
CREATE TABLE broken (id INT PRIMARY KEY;
CREATE TABLE nothing ();
CREATE INDEX idx ON missing (id);
CREATE TABLE also_good (id INT);`)

	require.Len(t, res.Tables, 2)
	assert.Equal(t, "good", res.Tables[0].Name)
	assert.Equal(t, "also_good", res.Tables[1].Name)

	require.Len(t, res.Skipped, 3)
	assert.Equal(t, 2, res.Skipped[0].Statement)
	assert.Equal(t, 3, res.Skipped[1].Statement)
	assert.Equal(t, 4, res.Skipped[2].Statement)
	assert.Contains(t, res.Skipped[2].Error(), `unknown table "missing"`)
}

func TestParse_SkipsTablesWithBrokenShape(t *testing.T) {
	res := parse(t, ansi, `
CREATE TABLE good (id INT PRIMARY KEY);
CREATE TABLE twice (x INT, X INT);
CREATE TABLE bad_pk (x INT, PRIMARY KEY (y));
CREATE TABLE bad_unique (x INT, CONSTRAINT uq UNIQUE (x, z));
CREATE INDEX idx_good_name ON good (name);
CREATE TABLE bad_fk (x INT, FOREIGN KEY (owner) REFERENCES good (id));`)

	require.Len(t, res.Tables, 1)
	assert.Equal(t, "good", res.Tables[0].Name)
	assert.Empty(t, res.Tables[0].Indexes)

	require.Len(t, res.Skipped, 5)
	wants := []string{
		`table "twice" declares column "X" twice`,
		`table "bad_pk": primary key column "y" does not exist`,
		`table "bad_unique": unique constraint column "z" does not exist`,
		`table "good": index idx_good_name column "name" does not exist`,
		`table "bad_fk": foreign key column "owner" does not exist`,
	}
	for i, want := range wants {
		assert.Equal(t, i+2, res.Skipped[i].Statement)
		assert.Equal(t, want, res.Skipped[i].Message)
	}
}

func TestParse_FailedAlterLeavesTableUntouched(t *testing.T) {
	res := parse(t, ansi, `
CREATE TABLE t (id INT);
ALTER TABLE t ADD COLUMN note TEXT, ADD CONSTRAINT pk_t PRIMARY KEY (nope);
ALTER TABLE t ADD COLUMN id BIGINT;
ALTER TABLE t ADD COLUMN title TEXT, ADD CONSTRAINT uq_t_title UNIQUE (title);`)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 2, res.Skipped[0].Statement)
	assert.Equal(t, 3, res.Skipped[1].Statement)

	tbl := res.Table("t")
	require.NotNil(t, tbl)
	require.Len(t, tbl.Columns, 2)
	assert.Equal(t, "id", tbl.Columns[0].Name)
	assert.Equal(t, "INT", tbl.Columns[0].Type)
	assert.Equal(t, "title", tbl.Columns[1].Name)
	assert.True(t, tbl.Columns[1].Unique)
	assert.Empty(t, tbl.PrimaryKey)
	assert.Nil(t, tbl.Column("note"))
}

func TestParse_DropsCommentsUnlessPreserved(t *testing.T) {
	script := "CREATE TABLE t (id INT COMMENT 'x') COMMENT 'y';"
	res := NewParser(mysqlG, false, nil).Parse(script)
	require.Len(t, res.Tables, 1)
	assert.Empty(t, res.Tables[0].Comment)
	assert.Empty(t, res.Tables[0].Columns[0].Comment)
}

func TestParse_GeneratedIdentity(t *testing.T) {
	res := parse(t, ansi, `CREATE TABLE t (
		id NUMBER GENERATED BY DEFAULT ON NULL AS IDENTITY,
		code VARCHAR2(10 CHAR),
		amount DOUBLE PRECISION
	)`)
	require.Empty(t, res.Skipped)
	tbl := res.Tables[0]
	assert.True(t, tbl.Column("id").AutoIncrement)
	assert.False(t, tbl.Column("id").Nullable)
	assert.Equal(t, []string{"10"}, tbl.Column("code").Args)
	assert.Equal(t, "DOUBLE PRECISION", tbl.Column("amount").Type)
}

func TestParse_DuplicateTableKeepsLater(t *testing.T) {
	res := parse(t, ansi, "CREATE TABLE t (a INT); CREATE TABLE t (b INT);")
	require.Len(t, res.Tables, 1)
	assert.Equal(t, "b", res.Tables[0].Columns[0].Name)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		raw      string
		typ      string
		args     []string
		enum     []string
		unsigned bool
		array    bool
	}{
		{raw: "int(10) unsigned", typ: "INT", args: []string{"10"}, unsigned: true},
		{raw: "varchar(255)", typ: "VARCHAR", args: []string{"255"}},
		{raw: "decimal(10,2)", typ: "DECIMAL", args: []string{"10", "2"}},
		{raw: "enum('draft','published')", typ: "ENUM", enum: []string{"draft", "published"}},
		{raw: "double precision", typ: "DOUBLE PRECISION"},
		{raw: "timestamp with time zone", typ: "TIMESTAMP WITH TIME ZONE"},
		{raw: "text[]", typ: "TEXT", array: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			col, err := ParseType(tt.raw, sqltoken.Quoting{Backtick: true})
			require.NoError(t, err)
			assert.Equal(t, tt.typ, col.Type)
			assert.Equal(t, tt.args, col.Args)
			assert.Equal(t, tt.enum, col.EnumValues)
			assert.Equal(t, tt.unsigned, col.Unsigned)
			assert.Equal(t, tt.array, col.Array)
		})
	}

	_, err := ParseType("", sqltoken.Quoting{})
	assert.Error(t, err)
	_, err = ParseType("int not null", sqltoken.Quoting{})
	assert.Error(t, err)
}
