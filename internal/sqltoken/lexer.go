package sqltoken

import (
	"strings"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	quoting Quoting
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string, q Quoting) *Lexer {
	l := &Lexer{
		input:   input,
		line:    1,
		quoting: q,
	}
	l.readChar()
	return l
}

// Tokenize returns every token of input, excluding the trailing EOF.
func Tokenize(input string, q Quoting) []Token {
	l := NewLexer(input, q)
	var out []Token
	for {
		tok := l.NextToken()
		if tok.Kind == EOF {
			return out
		}
		out = append(out, tok)
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	start := l.pos
	if l.atEOF() {
		return Token{Kind: EOF, Pos: pos, Start: start, End: start}
	}

	var tok Token
	switch {
	case l.ch == '\'':
		tok = Token{Kind: String, Text: l.readQuoted('\'')}
	case (l.ch == 'N' || l.ch == 'n') && l.peekChar() == '\'':
		l.readChar() // skip N prefix
		tok = Token{Kind: String, Text: l.readQuoted('\'')}
	case l.ch == '"':
		tok = Token{Kind: QuotedIdent, Text: l.readQuoted('"')}
	case l.ch == '`' && l.quoting.Backtick:
		tok = Token{Kind: QuotedIdent, Text: l.readQuoted('`')}
	case l.ch == '[' && l.quoting.Bracket:
		tok = Token{Kind: QuotedIdent, Text: l.readQuoted(']')}
	case isLetter(l.ch) || l.ch == '_':
		tok = Token{Kind: Ident, Text: l.readIdentifier()}
	case l.ch == '$' && isLetter(l.peekChar()):
		// document-store operators such as $jsonSchema
		tok = Token{Kind: Ident, Text: l.readIdentifier()}
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		tok = Token{Kind: Number, Text: l.readNumber()}
	case l.ch == ':' && l.peekChar() == ':':
		l.readChar()
		l.readChar()
		tok = Token{Kind: Punct, Text: "::"}
	case l.ch < 0x20 || l.ch >= 0x7f:
		tok = Token{Kind: Illegal, Text: string(l.ch)}
		l.readChar()
	default:
		tok = Token{Kind: Punct, Text: string(l.ch)}
		l.readChar()
	}

	tok.Pos = pos
	tok.Start = start
	tok.End = l.pos
	return tok
}

// skipWhitespaceAndComments skips whitespace, line comments and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}
		if l.ch == '#' && l.quoting.Backtick {
			// MySQL line comment
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '/' {
			// shell-script comment in document-store scripts
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for !l.atEOF() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}
		return
	}
}

// readQuoted reads quoted text up to closeCh. A doubled closing character
// is an escape for one literal closing character.
func (l *Lexer) readQuoted(closeCh byte) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == closeCh {
			if l.peekChar() == closeCh {
				result.WriteByte(closeCh)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	l.readChar()
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' || l.ch == '#' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '-' || l.peekChar() == '+') {
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
