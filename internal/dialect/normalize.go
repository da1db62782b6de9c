package dialect

import (
	"strings"

	"github.com/tordrt/schemabridge/internal/ddl"
	"github.com/tordrt/schemabridge/internal/schema"
)

// Serial markers produced for auto-increment columns.
const (
	Serial    = "SERIAL"
	BigSerial = "BIGSERIAL"
)

// Normalize applies the normalization pass of d to every column of res.
func Normalize(d Dialect, res *ddl.Result) {
	s := For(d)
	for i := range res.Tables {
		for j := range res.Tables[i].Columns {
			NormalizeColumn(s, &res.Tables[i].Columns[j])
		}
	}
}

// NormalizeColumn normalizes one column with strategy s.
func NormalizeColumn(s Strategy, col *ddl.ParsedColumn) {
	s.NormalizeType(col)

	switch col.Type {
	case "SERIAL", "SMALLSERIAL", "SERIAL4", "SERIAL2":
		col.Type = Serial
		col.AutoIncrement = true
	case "BIGSERIAL", "SERIAL8":
		col.Type = BigSerial
		col.AutoIncrement = true
	}
	if col.AutoIncrement {
		switch col.Type {
		case "BIGINT":
			col.Type = BigSerial
		case "INTEGER", "SMALLINT":
			col.Type = Serial
		}
	}

	if col.Default == nil {
		return
	}
	expr := StripParens(strings.TrimSpace(*col.Default))
	if strings.EqualFold(expr, "NULL") || expr == "" {
		col.Default = nil
		return
	}
	expr = s.NormalizeDefault(expr)
	expr = normalizeBoolean(col.Type, expr)
	col.Default = &expr
}

// StripParens removes parentheses wrapping the whole expression, as in
// SQL Server's ((0)) or (getdate()).
func StripParens(expr string) string {
	for len(expr) >= 2 && expr[0] == '(' && expr[len(expr)-1] == ')' && closingParen(expr) == len(expr)-1 {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	return expr
}

// closingParen returns the index of the paren closing expr[0], skipping
// quoted text.
func closingParen(expr string) int {
	depth := 0
	inQuote := false
	for i := 0; i < len(expr); i++ {
		switch ch := expr[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeBoolean maps boolean literal spellings to true/false.
func normalizeBoolean(typ, expr string) string {
	switch strings.ToUpper(expr) {
	case "TRUE":
		return schema.DefaultTrue
	case "FALSE":
		return schema.DefaultFalse
	}
	if typ != "BOOLEAN" {
		return expr
	}
	switch strings.ToUpper(expr) {
	case "1", "'1'", "B'1'", "'T'", "'Y'":
		return schema.DefaultTrue
	case "0", "'0'", "B'0'", "'F'", "'N'":
		return schema.DefaultFalse
	}
	return expr
}

// callKey reduces a function call spelling to an upper-case key without
// whitespace, so "now( )" and "NOW()" compare equal.
func callKey(expr string) string {
	return strings.ToUpper(strings.Join(strings.Fields(expr), ""))
}

// rewriteDefault maps well-known function spellings onto the shared
// default vocabulary.
func rewriteDefault(expr string, now, uuid map[string]bool) string {
	key := callKey(expr)
	switch {
	case key == "NOW()" || now[key]:
		return schema.DefaultNow
	case key == "UUID()" || uuid[key]:
		return schema.DefaultUUID
	}
	return expr
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// rename replaces the type name when it is one of the keys of m.
func rename(col *ddl.ParsedColumn, m map[string]string) {
	if to, ok := m[col.Type]; ok {
		col.Type = to
	}
}

// argIs reports whether the first type argument equals v.
func argIs(col *ddl.ParsedColumn, v string) bool {
	return len(col.Args) > 0 && col.Args[0] == v
}
