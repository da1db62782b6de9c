package sqltoken

import (
	"strings"
)

// SplitConfig controls SplitTopLevel.
type SplitConfig struct {
	Quoting Quoting
	// Parens keeps separators inside balanced parentheses.
	Parens bool
	// BatchSeparator treats a line holding only GO as a separator (SQL Server).
	BatchSeparator bool
	// ShellComments treats // as a line comment (document-store shell scripts).
	ShellComments bool
}

// SplitStatements splits a SQL script into its top-level statements on ';'.
// Separators inside quoted strings, quoted identifiers and comments are
// ignored; with backtick quoting (MySQL) '#' also starts a line comment. Empty statements are dropped; trailing text without a terminator is
// kept as the final statement.
func SplitStatements(script string, q Quoting, batchSeparator bool) []string {
	return SplitTopLevel(script, ';', SplitConfig{Quoting: q, BatchSeparator: batchSeparator})
}

// SplitTopLevel splits text on sep, honoring quotes, comments and (when
// cfg.Parens is set) parenthesis depth. Parts are trimmed; empty parts are
// dropped.
func SplitTopLevel(text string, sep byte, cfg SplitConfig) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	lineStart := true

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if cfg.BatchSeparator && lineStart {
			if end, ok := batchLine(text, i); ok {
				flush()
				i = end - 1
				lineStart = true
				continue
			}
		}
		lineStart = ch == '\n'

		switch {
		case ch == '\'' || ch == '"' ||
			(ch == '`' && cfg.Quoting.Backtick) ||
			(ch == '[' && cfg.Quoting.Bracket):
			closeCh := ch
			if ch == '[' {
				closeCh = ']'
			}
			end := skipQuoted(text, i, closeCh)
			cur.WriteString(text[i:end])
			i = end - 1
			continue
		case isLineComment(text, i, cfg):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			cur.WriteString(text[i : i+end])
			i += end - 1
			continue
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			stop := len(text)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			cur.WriteString(text[i:stop])
			i = stop - 1
			continue
		case ch == '(' && cfg.Parens:
			depth++
		case ch == ')' && cfg.Parens && depth > 0:
			depth--
		case ch == sep && depth == 0:
			flush()
			continue
		}
		cur.WriteByte(ch)
	}
	flush()
	return parts
}

// isLineComment reports whether a line comment starts at i.
func isLineComment(text string, i int, cfg SplitConfig) bool {
	next := byte(0)
	if i+1 < len(text) {
		next = text[i+1]
	}
	switch text[i] {
	case '-':
		return next == '-'
	case '#':
		return cfg.Quoting.Backtick
	case '/':
		return next == '/' && cfg.ShellComments
	}
	return false
}

// skipQuoted returns the offset just past the quoted run starting at i.
// A doubled closing character does not terminate the run.
func skipQuoted(text string, i int, closeCh byte) int {
	j := i + 1
	for j < len(text) {
		if text[j] == closeCh {
			if j+1 < len(text) && text[j+1] == closeCh {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(text)
}

// batchLine reports whether the line starting at i holds only the GO batch
// separator, returning the offset just past that line.
func batchLine(text string, i int) (int, bool) {
	end := strings.IndexByte(text[i:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += i + 1
	}
	line := strings.TrimSpace(text[i:end])
	return end, strings.EqualFold(line, "GO")
}

// SplitTokens splits a token run on top-level punctuation sep, ignoring
// separators nested in parentheses. Empty groups are dropped.
func SplitTokens(tokens []Token, sep string) [][]Token {
	var groups [][]Token
	depth := 0
	start := 0
	for i, tok := range tokens {
		switch {
		case tok.IsPunct("(") || tok.IsPunct("[") || tok.IsPunct("{"):
			depth++
		case (tok.IsPunct(")") || tok.IsPunct("]") || tok.IsPunct("}")) && depth > 0:
			depth--
		case tok.IsPunct(sep) && depth == 0:
			if i > start {
				groups = append(groups, tokens[start:i])
			}
			start = i + 1
		}
	}
	if start < len(tokens) {
		groups = append(groups, tokens[start:])
	}
	return groups
}

// MatchParen returns the index of the token closing the parenthesis opened at
// tokens[open], or -1 when it is unbalanced.
func MatchParen(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct("("):
			depth++
		case tokens[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
