package ddl

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemabridge/internal/sqltoken"
)

// cursor walks a token slice of one statement.
type cursor struct {
	toks []sqltoken.Token
	pos  int
	src  string
}

func newCursor(src string, toks []sqltoken.Token) *cursor {
	return &cursor{toks: toks, src: src}
}

func (c *cursor) done() bool {
	return c.pos >= len(c.toks)
}

func (c *cursor) peek() sqltoken.Token {
	return c.peekAt(0)
}

func (c *cursor) peekAt(n int) sqltoken.Token {
	i := c.pos + n
	if i >= len(c.toks) {
		eof := sqltoken.Token{Kind: sqltoken.EOF}
		if len(c.toks) > 0 {
			last := c.toks[len(c.toks)-1]
			eof.Pos = last.Pos
			eof.Start, eof.End = last.End, last.End
		}
		return eof
	}
	return c.toks[i]
}

func (c *cursor) next() sqltoken.Token {
	tok := c.peek()
	if !c.done() {
		c.pos++
	}
	return tok
}

// accept consumes the keyword sequence kws if the upcoming tokens match it.
func (c *cursor) accept(kws ...string) bool {
	for i, kw := range kws {
		if !c.peekAt(i).Is(kw) {
			return false
		}
	}
	c.pos += len(kws)
	return true
}

// acceptAny consumes one token if it is any of the keywords.
func (c *cursor) acceptAny(kws ...string) (string, bool) {
	tok := c.peek()
	for _, kw := range kws {
		if tok.Is(kw) {
			c.pos++
			return strings.ToUpper(kw), true
		}
	}
	return "", false
}

func (c *cursor) acceptPunct(p string) bool {
	if c.peek().IsPunct(p) {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) expect(kws ...string) *ParseError {
	if c.accept(kws...) {
		return nil
	}
	return c.errorf(c.peek(), errUnexpectedToken, c.peek(), strings.Join(kws, " "))
}

func (c *cursor) expectPunct(p string) *ParseError {
	if c.acceptPunct(p) {
		return nil
	}
	return c.errorf(c.peek(), errUnexpectedToken, c.peek(), fmt.Sprintf("%q", p))
}

// name consumes an identifier.
func (c *cursor) name() (string, *ParseError) {
	tok := c.peek()
	if !tok.IsName() {
		return "", c.errorf(tok, errUnexpectedToken, tok, "identifier")
	}
	c.pos++
	return tok.Text, nil
}

// qualifiedName consumes a dotted name and returns its namespace (the part
// before the last dot, if any) and its final part.
func (c *cursor) qualifiedName() (namespace, name string, err *ParseError) {
	parts := []string{}
	for {
		part, err := c.name()
		if err != nil {
			return "", "", err
		}
		parts = append(parts, part)
		if !c.acceptPunct(".") {
			break
		}
	}
	name = parts[len(parts)-1]
	if len(parts) > 1 {
		namespace = parts[len(parts)-2]
	}
	return namespace, name, nil
}

// parenGroup consumes "( ... )" and returns the tokens between the parens.
func (c *cursor) parenGroup() ([]sqltoken.Token, *ParseError) {
	if !c.peek().IsPunct("(") {
		return nil, c.errorf(c.peek(), errUnexpectedToken, c.peek(), `"("`)
	}
	closeIdx := sqltoken.MatchParen(c.toks, c.pos)
	if closeIdx < 0 {
		return nil, c.errorf(c.peek(), errUnbalanced)
	}
	inner := c.toks[c.pos+1 : closeIdx]
	c.pos = closeIdx + 1
	return inner, nil
}

// nameList consumes "(a, b, c)" and returns the names. Index column
// decorations such as lengths or ASC/DESC are dropped.
func (c *cursor) nameList() ([]string, *ParseError) {
	inner, err := c.parenGroup()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, group := range sqltoken.SplitTokens(inner, ",") {
		if !group[0].IsName() {
			return nil, c.errorf(group[0], errUnexpectedToken, group[0], "column name")
		}
		names = append(names, group[0].Text)
	}
	if len(names) == 0 {
		return nil, c.errorf(c.peek(), "empty column list")
	}
	return names, nil
}

// rawText returns the source text spanning toks.
func (c *cursor) rawText(toks []sqltoken.Token) string {
	if len(toks) == 0 {
		return ""
	}
	return strings.TrimSpace(c.src[toks[0].Start:toks[len(toks)-1].End])
}

func (c *cursor) errorf(tok sqltoken.Token, format string, args ...any) *ParseError {
	return &ParseError{Pos: tok.Pos, Message: fmt.Sprintf(format, args...)}
}
