package compiler

import (
	"strings"
	"unicode"
)

// Tokenize splits a raw query on whitespace outside quotes. Single- and
// double-quoted spans stay inside their token with the quotes kept; an
// unterminated quote runs to the end of the input.
func Tokenize(query string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
	)

	flush := func() {
		if tok := strings.TrimSpace(current.String()); tok != "" {
			tokens = append(tokens, tok)
		}
		current.Reset()
	}

	for _, r := range query {
		switch {
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			current.WriteRune(r)
		case quote != 0 && r == quote:
			quote = 0
			current.WriteRune(r)
		case quote == 0 && unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return tokens
}

// unquote drops one leading and one trailing quote character, independently.
func unquote(s string) string {
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}
