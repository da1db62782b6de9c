package emitter

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// words splits an identifier on underscores, hyphens, spaces and lower-to-upper
// case changes.
func words(name string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

// pascalCase turns a table or column name into an exported type name:
// order_items becomes OrderItems. The result always starts with a letter.
func pascalCase(name string) string {
	// A Caser keeps state, so each call gets its own.
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range words(name) {
		b.WriteString(caser.String(w))
	}
	return identStart(b.String())
}

// camelCase is pascalCase with a lower-case first letter.
func camelCase(name string) string {
	p := pascalCase(name)
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Common initialisms upper-cased in Go field names.
var initialisms = map[string]bool{
	"ID": true, "UUID": true, "URL": true, "URI": true, "API": true,
	"HTTP": true, "IP": true, "JSON": true, "SQL": true, "HTML": true,
}

// goName turns a column name into an exported Go identifier honoring
// initialisms: user_id becomes UserID.
func goName(name string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range words(name) {
		if up := strings.ToUpper(w); initialisms[up] {
			b.WriteString(up)
			continue
		}
		b.WriteString(caser.String(w))
	}
	return identStart(b.String())
}

// fieldName makes a column name usable as a field in languages whose
// identifiers must start with a letter. The original name is kept when it
// already qualifies.
func fieldName(name string) string {
	if isPlainIdent(name) {
		return name
	}
	return camelCase(name)
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' && i > 0 {
			continue
		}
		if !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

func identStart(s string) string {
	if s == "" {
		return "X"
	}
	if r := []rune(s)[0]; !unicode.IsLetter(r) {
		return "X" + s
	}
	return s
}

// claimName returns name, or name with a numeric suffix when taken, and
// records it.
func claimName(used map[string]bool, name string) string {
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	used[candidate] = true
	return candidate
}
