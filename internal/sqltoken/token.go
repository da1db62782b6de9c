// Package sqltoken turns DDL scripts into a flat token stream and splits
// scripts into statements without breaking quoted text or comments.
package sqltoken

import (
	"fmt"
	"strings"
)

// Kind identifies the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Illegal
	Ident       // bare identifier or keyword
	QuotedIdent // "x", `x` or [x]
	String      // 'x' or N'x'
	Number
	Punct // single punctuation character or "::"
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Illegal:
		return "ILLEGAL"
	case Ident:
		return "IDENT"
	case QuotedIdent:
		return "QUOTED_IDENT"
	case String:
		return "STRING"
	case Number:
		return "NUMBER"
	case Punct:
		return "PUNCT"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Position is a location in the source text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // byte offset
}

// Token is a lexical token. Text holds the unquoted value for quoted
// identifiers and strings; Start/End delimit the raw source bytes.
type Token struct {
	Kind  Kind
	Text  string
	Pos   Position
	Start int
	End   int
}

// Is reports whether the token is the bare keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether the token is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == Punct && t.Text == p
}

// IsName reports whether the token can name a table, column or constraint.
func (t Token) IsName() bool {
	return t.Kind == Ident || t.Kind == QuotedIdent
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of statement"
	}
	return fmt.Sprintf("%q", t.Text)
}

// Quoting selects which identifier quote styles a dialect recognizes besides
// ANSI double quotes.
type Quoting struct {
	Backtick bool // MySQL `name`
	Bracket  bool // SQL Server [name]
}
