package sqltoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		quoting Quoting
		batch   bool
		want    []string
	}{
		{
			name:   "simple statements",
			script: "CREATE TABLE a (id INT); CREATE TABLE b (id INT);",
			want:   []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name:   "trailing statement without terminator",
			script: "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT)",
			want:   []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name:   "semicolon in string literal",
			script: "INSERT INTO t VALUES ('a;b'); SELECT 1;",
			want:   []string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"},
		},
		{
			name:   "doubled quote escape",
			script: "SELECT 'it''s; fine'; SELECT 2",
			want:   []string{"SELECT 'it''s; fine'", "SELECT 2"},
		},
		{
			name:   "semicolon in double-quoted identifier",
			script: `CREATE TABLE "a;b" (id INT);`,
			want:   []string{`CREATE TABLE "a;b" (id INT)`},
		},
		{
			name:    "semicolon in bracket identifier",
			script:  "CREATE TABLE [a;b] (id INT); SELECT 1",
			quoting: Quoting{Bracket: true},
			want:    []string{"CREATE TABLE [a;b] (id INT)", "SELECT 1"},
		},
		{
			name:    "semicolon in backtick identifier",
			script:  "CREATE TABLE `a;b` (id INT); SELECT 1",
			quoting: Quoting{Backtick: true},
			want:    []string{"CREATE TABLE `a;b` (id INT)", "SELECT 1"},
		},
		{
			name:    "semicolon in hash comment",
			script:  "# setup; notes\nCREATE TABLE a (id INT PRIMARY KEY);",
			quoting: Quoting{Backtick: true},
			want:    []string{"# setup; notes\nCREATE TABLE a (id INT PRIMARY KEY)"},
		},
		{
			name:   "hash is not a comment without backticks",
			script: "SELECT a #> b; SELECT 2",
			want:   []string{"SELECT a #> b", "SELECT 2"},
		},
		{
			name:   "semicolon in comments",
			script: "-- one; two\nSELECT 1; /* a; b */ SELECT 2;",
			want:   []string{"-- one; two\nSELECT 1", "/* a; b */ SELECT 2"},
		},
		{
			name:   "empty statements dropped",
			script: ";;  ;\n SELECT 1 ;; ",
			want:   []string{"SELECT 1"},
		},
		{
			name:    "GO batch separator",
			script:  "CREATE TABLE a (id INT)\nGO\nCREATE TABLE b (id INT)\ngo\n",
			quoting: Quoting{Bracket: true},
			batch:   true,
			want:    []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name: "empty script",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.script, tt.quoting, tt.batch)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitTopLevel_Parens(t *testing.T) {
	got := SplitTopLevel("id INT, price DECIMAL(10, 2) DEFAULT 0, note VARCHAR(20) DEFAULT 'a,b'", ',', SplitConfig{Parens: true})
	assert.Equal(t, []string{"id INT", "price DECIMAL(10, 2) DEFAULT 0", "note VARCHAR(20) DEFAULT 'a,b'"}, got)

	flat := SplitTopLevel("a(1,2)", ',', SplitConfig{})
	assert.Equal(t, []string{"a(1", "2)"}, flat)
}

func TestSplitTopLevel_ShellComments(t *testing.T) {
	script := "// first; note\ndb.a.drop(); db.b.drop()"
	assert.Equal(t, []string{"// first; note\ndb.a.drop()", "db.b.drop()"},
		SplitTopLevel(script, ';', SplitConfig{ShellComments: true}))
	assert.Equal(t, []string{"// first", "note\ndb.a.drop()", "db.b.drop()"},
		SplitTopLevel(script, ';', SplitConfig{}))
}

func TestTokenize(t *testing.T) {
	toks := Tokenize("CREATE TABLE [dbo].[Users] (Name NVARCHAR(10) DEFAULT N'x''y')", Quoting{Bracket: true})

	var kinds []Kind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}

	assert.Equal(t, []string{"CREATE", "TABLE", "dbo", ".", "Users", "(", "Name", "NVARCHAR", "(", "10", ")", "DEFAULT", "x'y", ")"}, texts)
	assert.Equal(t, QuotedIdent, kinds[2])
	assert.Equal(t, String, kinds[12])
	assert.Equal(t, Number, kinds[9])
}

func TestTokenize_Positions(t *testing.T) {
	input := "a\n  bb 'c'"
	toks := Tokenize(input, Quoting{})
	require.Len(t, toks, 3)

	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 2, toks[1].Pos.Line)
	assert.Equal(t, "bb", input[toks[1].Start:toks[1].End])
	assert.Equal(t, "'c'", input[toks[2].Start:toks[2].End])
}

func TestTokenize_CommentsAndCasts(t *testing.T) {
	toks := Tokenize("DEFAULT 'x'::text -- trailing\n/* block */ NOT NULL", Quoting{})
	var texts []string
	for _, tok := range toks {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"DEFAULT", "x", "::", "text", "NOT", "NULL"}, texts)
}

func TestSplitTokens(t *testing.T) {
	toks := Tokenize("id INT, total DECIMAL(10,2), PRIMARY KEY (id, total)", Quoting{})
	groups := SplitTokens(toks, ",")
	require.Len(t, groups, 3)
	assert.True(t, groups[2][0].Is("primary"))
	assert.Len(t, groups[1], 7)
}

func TestMatchParen(t *testing.T) {
	toks := Tokenize("(a, (b), c) d", Quoting{})
	assert.Equal(t, 8, MatchParen(toks, 0))
	assert.Equal(t, -1, MatchParen(Tokenize("(a", Quoting{}), 0))
}
