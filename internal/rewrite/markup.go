package rewrite

import (
	"bytes"
	"errors"
	stdhtml "html"
	"io"
	"iter"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
	"go.uber.org/zap"
)

// Malformed is a class attribute that could not be rewritten.
type Malformed struct {
	Offset int    // Byte offset of the attribute value
	Line   int    // 1-based
	Column int    // 1-based, in bytes
	Text   string // Source line containing the value
}

// MarkupStats summarises one document rewrite.
type MarkupStats struct {
	Attributes int // class attributes seen
	Tokens     int // Non-empty tokens across all attributes
	Variants   int
	Rewritten  int // Tokens replaced
	Malformed  []Malformed
}

// MarkupRewriter rewrites class attribute values in HTML text.
type MarkupRewriter struct {
	reg Registry
	log *zap.Logger
}

// NewMarkupRewriter creates a rewriter registering tokens in reg.
func NewMarkupRewriter(reg Registry, log *zap.Logger) *MarkupRewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarkupRewriter{reg: reg, log: log.Named("html")}
}

// Rewrite replaces the tokens of every class attribute in doc. Attribute
// values whose tokens are all obfuscated already are left as they are, so
// rewriting rewritten output returns it unchanged.
func (m *MarkupRewriter) Rewrite(doc string) (string, MarkupStats) {
	var (
		stats MarkupStats
		b     strings.Builder
		last  int
	)

	for a := range classAttrs(doc, m.log) {
		stats.Attributes++
		if a.malformed {
			bad := malformedAt(doc, a.start)
			stats.Malformed = append(stats.Malformed, bad)
			m.log.Warn("Malformed class attribute", zap.Int("line", bad.Line), zap.Int("column", bad.Column))
			continue
		}

		fields := strings.Fields(a.value)
		changed := false
		for i, raw := range fields {
			tok := stdhtml.UnescapeString(raw)
			stats.Tokens++
			if IsVariant(tok) {
				stats.Variants++
			}
			if v, ok := obfuscate(m.reg, tok); ok {
				fields[i] = v
				changed = true
				stats.Rewritten++
			}
		}
		if !changed {
			continue
		}

		if b.Len() == 0 {
			b.Grow(len(doc))
		}
		b.WriteString(doc[last:a.start])
		b.WriteString(a.quote)
		b.WriteString(strings.Join(fields, " "))
		b.WriteString(a.quote)
		last = a.end
	}

	if last == 0 {
		return doc, stats
	}
	b.WriteString(doc[last:])
	return b.String(), stats
}

// ClassAttributes returns the entity-decoded values of the well-formed class
// attributes in doc, in document order.
func ClassAttributes(doc string) []string {
	var out []string
	for a := range classAttrs(doc, nil) {
		if !a.malformed {
			out = append(out, stdhtml.UnescapeString(a.value))
		}
	}
	return out
}

// classAttr locates one class attribute value in the document.
type classAttr struct {
	start, end int // doc[start:end] is the raw value, quotes included
	quote      string
	value      string
	malformed  bool
}

var (
	classKey = []byte("class")

	// Attributes inside foreign-content islands (<svg>, <math>) which the
	// HTML lexer returns as a single token.
	islandClassAttr = regexp.MustCompile(`(?i)\sclass\s*=\s*("[^"]*"|'[^']*')`)
)

// classAttrs yields the class attributes of doc in order of appearance.
func classAttrs(doc string, log *zap.Logger) iter.Seq[classAttr] {
	return func(yield func(classAttr) bool) {
		in := parse.NewInputString(doc)
		l := html.NewLexer(in)
		for {
			tt, data := l.Next()
			switch tt {
			case html.ErrorToken:
				if err := l.Err(); err != nil && !errors.Is(err, io.EOF) && log != nil {
					log.Warn("HTML lexer stopped", zap.Error(err))
				}
				return

			case html.AttributeToken:
				if !bytes.Equal(l.AttrKey(), classKey) {
					continue
				}
				val := l.AttrVal()
				if len(val) == 0 {
					continue
				}
				end := in.Offset()
				a, ok := attrAt(doc, end-len(val), end)
				if ok && !yield(a) {
					return
				}

			case html.SVGToken, html.MathToken, html.XMLToken:
				base := in.Offset() - len(data)
				island := doc[base:in.Offset()]
				for _, loc := range islandClassAttr.FindAllStringSubmatchIndex(island, -1) {
					a, ok := attrAt(doc, base+loc[2], base+loc[3])
					if ok && !yield(a) {
						return
					}
				}
			}
		}
	}
}

func attrAt(doc string, start, end int) (classAttr, bool) {
	if start < 0 || end > len(doc) || start >= end {
		return classAttr{}, false
	}
	raw := doc[start:end]
	a := classAttr{start: start, end: end}

	switch q := raw[0]; q {
	case '"', '\'':
		if len(raw) < 2 || raw[len(raw)-1] != q {
			a.malformed = true
			return a, true
		}
		a.quote = raw[:1]
		a.value = raw[1 : len(raw)-1]
		// A stray quote makes the lexer run the value into the next tag.
		a.malformed = spillsIntoMarkup(a.value)
	default:
		a.value = raw
	}
	return a, true
}

// spillsIntoMarkup reports whether v holds a '<' or '>' outside of an
// arbitrary-value bracket such as [&>li].
func spillsIntoMarkup(v string) bool {
	depth := 0
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '<', '>':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func malformedAt(doc string, offset int) Malformed {
	lineStart := strings.LastIndexByte(doc[:offset], '\n') + 1
	lineEnd := strings.IndexByte(doc[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(doc)
	} else {
		lineEnd += offset
	}
	return Malformed{
		Offset: offset,
		Line:   strings.Count(doc[:offset], "\n") + 1,
		Column: offset - lineStart + 1,
		Text:   strings.TrimRight(doc[lineStart:lineEnd], "\r"),
	}
}
