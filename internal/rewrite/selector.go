package rewrite

import (
	"bytes"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// SelectorStats summarises one stylesheet rewrite.
type SelectorStats struct {
	Preludes  int // Selector preludes inspected
	Classes   int // Class selectors found
	Variants  int // Of which variant-qualified (hover:..., md:...)
	Rewritten int // Class selectors replaced
}

// SelectorRewriter rewrites class selectors in stylesheet text.
type SelectorRewriter struct {
	reg Registry
	log *zap.Logger
}

// NewSelectorRewriter creates a rewriter registering tokens in reg.
func NewSelectorRewriter(reg Registry, log *zap.Logger) *SelectorRewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &SelectorRewriter{reg: reg, log: log.Named("css")}
}

// cssToken is one lexer token. Concatenating all tokens restores the input.
type cssToken struct {
	tt   css.TokenType
	data []byte
}

// Rewrite replaces every class selector in css with its obfuscated token.
// Declarations, at-rule preludes, pseudo-classes, combinators and attribute
// selectors are left exactly as they were.
func (s *SelectorRewriter) Rewrite(text string) (string, SelectorStats) {
	var stats SelectorStats

	toks := tokenizeCSS(text)
	for _, pre := range preludes(toks) {
		stats.Preludes++
		for _, i := range classIdents(toks, pre) {
			token := unescapeIdent(string(toks[i].data))
			stats.Classes++
			if IsVariant(token) {
				stats.Variants++
			}

			v, ok := obfuscate(s.reg, token)
			if !ok {
				continue
			}
			toks[i].data = []byte(v)
			stats.Rewritten++
			s.log.Debug("Rewrote class selector", zap.String("class", token), zap.String("to", v))
		}
	}

	if stats.Rewritten == 0 {
		return text, stats
	}
	return serializeCSS(toks, len(text)), stats
}

// ClassSelectors returns the unescaped class names used in the selectors of
// css, in order of appearance, duplicates included.
func ClassSelectors(text string) []string {
	toks := tokenizeCSS(text)
	var out []string
	for _, pre := range preludes(toks) {
		for _, i := range classIdents(toks, pre) {
			out = append(out, unescapeIdent(string(toks[i].data)))
		}
	}
	return out
}

func tokenizeCSS(text string) []cssToken {
	l := css.NewLexer(parse.NewInputString(text))
	var toks []cssToken
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			// ErrorToken at EOF is normal
			break
		}
		toks = append(toks, cssToken{tt: tt, data: data})
	}
	return toks
}

func serializeCSS(toks []cssToken, sizeHint int) string {
	var b strings.Builder
	b.Grow(sizeHint)
	for _, t := range toks {
		b.Write(t.data)
	}
	return b.String()
}

// span is a half-open token index range.
type span struct{ from, to int }

// preludes splits the token stream into statements ending at '{', ';' or
// '}' and returns those ending at '{': the selector lists of qualified rules,
// nested rules included. At-rule preludes are dropped except @scope, whose
// arguments are selectors.
func preludes(toks []cssToken) []span {
	var out []span
	start := 0
	for i, t := range toks {
		switch t.tt {
		case css.LeftBraceToken:
			if p := (span{start, i}); isSelectorPrelude(toks, p) {
				out = append(out, p)
			}
			start = i + 1
		case css.SemicolonToken, css.RightBraceToken:
			start = i + 1
		}
	}
	return out
}

func isSelectorPrelude(toks []cssToken, p span) bool {
	for i := p.from; i < p.to; i++ {
		switch toks[i].tt {
		case css.WhitespaceToken, css.CommentToken, css.CDOToken, css.CDCToken:
			continue
		case css.AtKeywordToken:
			return bytes.EqualFold(toks[i].data, []byte("@scope"))
		}
		return true
	}
	return false
}

// classIdents returns the indexes of identifier tokens that directly follow
// a '.' delimiter inside p, ignoring anything within [...] so attribute
// selector values such as [data-x=a.b] are never touched.
func classIdents(toks []cssToken, p span) []int {
	var out []int
	depth := 0
	for i := p.from; i < p.to; i++ {
		switch t := toks[i]; t.tt {
		case css.LeftBracketToken:
			depth++
		case css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.DelimToken:
			if depth == 0 && len(t.data) == 1 && t.data[0] == '.' && i+1 < p.to && toks[i+1].tt == css.IdentToken {
				out = append(out, i+1)
				i++
			}
		}
	}
	return out
}
