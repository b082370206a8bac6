// Package rewrite substitutes obfuscated class tokens into CSS selectors and
// HTML class attributes.
//
// Both rewriters work on lexer tokens rather than on raw text, so class names
// are only ever replaced where the grammar says a class name is: after a '.'
// in a selector, or inside a class attribute value. Everything else in the
// input is copied through byte for byte.
package rewrite

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yacobolo/classhash/internal/registry"
)

// Registry is the part of registry.Registry the rewriters need.
type Registry interface {
	GetOrCreate(token string) string
	IsObfuscated(s string) bool
}

// obfuscate maps token through reg. Tokens that are already obfuscated are
// returned unchanged with ok == false, which keeps re-runs idempotent.
func obfuscate(reg Registry, token string) (string, bool) {
	if token == "" || reg.IsObfuscated(token) || registry.LooksObfuscated(token) {
		return token, false
	}
	v := reg.GetOrCreate(token)
	if v == "" {
		return token, false
	}
	return v, true
}

// unescapeIdent decodes CSS escapes in an identifier: `hover\:bg-red`
// becomes "hover:bg-red" and `\32 xl` becomes "2xl".
func unescapeIdent(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++

		j := i
		for j < len(s) && j-i < 6 && isHex(s[j]) {
			j++
		}
		if j == i {
			// Literal escape; multi-byte runes are copied by later iterations.
			b.WriteByte(s[i])
			continue
		}

		n, _ := strconv.ParseUint(s[i:j], 16, 32)
		r := rune(n)
		if r == 0 || r > utf8.MaxRune || (r >= 0xD800 && r <= 0xDFFF) {
			r = utf8.RuneError
		}
		b.WriteRune(r)

		// One whitespace after a hex escape belongs to the escape.
		if j < len(s) {
			switch s[j] {
			case ' ', '\t', '\n', '\f':
				j++
			case '\r':
				j++
				if j < len(s) && s[j] == '\n' {
					j++
				}
			}
		}
		i = j - 1
	}
	return b.String()
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// IsVariant reports whether token carries a colon-joined variant prefix,
// e.g. "md:hover:flex".
func IsVariant(token string) bool {
	return strings.Contains(token, ":")
}
