package rewrite

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkupRewriter_Rewrite(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "double quoted",
			html: `<div class="btn primary">x</div>`,
			want: `<div class="oc298c4db od149f47e">x</div>`,
		},
		{
			name: "single quoted",
			html: `<a class='nav active' href="/">home</a>`,
			want: `<a class='o00f5ba74 o69a72e42' href="/">home</a>`,
		},
		{
			name: "unquoted",
			html: `<p class=flex>text</p>`,
			want: `<p class=oe6ae63dd>text</p>`,
		},
		{
			name: "whitespace collapsed",
			html: "<div class=\"  btn\n\tprimary  \"></div>",
			want: `<div class="oc298c4db od149f47e"></div>`,
		},
		{
			name: "uppercase attribute name",
			html: `<DIV CLASS="btn"></DIV>`,
			want: `<DIV CLASS="oc298c4db"></DIV>`,
		},
		{
			name: "spacing around equals",
			html: `<div class = "btn" >`,
			want: `<div class = "oc298c4db" >`,
		},
		{
			name: "variants",
			html: `<div class="hover:bg-red md:flex w-1/2"></div>`,
			want: `<div class="od06e64e9 o24496ba3 o9d87eefb"></div>`,
		},
		{
			name: "other attributes",
			html: `<div data-class="btn" title="btn" aria-label='btn'></div>`,
			want: `<div data-class="btn" title="btn" aria-label='btn'></div>`,
		},
		{
			name: "text content",
			html: `<p>class="btn"</p>`,
			want: `<p>class="btn"</p>`,
		},
		{
			name: "comments and raw text",
			html: `<!-- <div class="btn"> --><script>el.class="btn"</script><style>.btn{}</style>`,
			want: `<!-- <div class="btn"> --><script>el.class="btn"</script><style>.btn{}</style>`,
		},
		{
			name: "empty values",
			html: `<div class=""></div><div class></div><div class="   "></div>`,
			want: `<div class=""></div><div class></div><div class="   "></div>`,
		},
		{
			name: "svg island",
			html: `<p class="icon"></p><svg class="icon" viewBox="0 0 1 1"><path class='b'/></svg>`,
			want: `<p class="o8c8bff4b"></p><svg class="o8c8bff4b" viewBox="0 0 1 1"><path class='oae9ae237'/></svg>`,
		},
		{
			name: "entity in value",
			html: `<ul class="[&amp;>li]:p-4 btn"></ul>`,
			want: `<ul class="o4686e293 oc298c4db"></ul>`,
		},
		{
			name: "numeric entity",
			html: `<p class="a&#38;b"></p>`,
			want: `<p class="odb69c5db"></p>`,
		},
		{
			name: "partly obfuscated",
			html: `<div class="oc298c4db primary"></div>`,
			want: `<div class="oc298c4db od149f47e"></div>`,
		},
		{
			name: "document structure preserved",
			html: "<!DOCTYPE html>\n<html lang=\"en\">\n<body >\n  <main class=\"container\">\n    <h1 class=text-sm>Hi</h1>\n  </main>\n</body>\n</html>\n",
			want: "<!DOCTYPE html>\n<html lang=\"en\">\n<body >\n  <main class=\"o868397a4\">\n    <h1 class=oefb659d5>Hi</h1>\n  </main>\n</body>\n</html>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMarkupRewriter(newTestRegistry(t), nil)
			got, stats := m.Rewrite(tt.html)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, stats.Malformed)
		})
	}
}

func TestMarkupRewriter_Malformed(t *testing.T) {
	doc := "<html>\n<body>\n  <div class=\"btn\">ok</div>\n  <div class=\"primary>broken\n</body>"

	reg := newTestRegistry(t)
	m := NewMarkupRewriter(reg, nil)
	got, stats := m.Rewrite(doc)

	assert.Equal(t, strings.Replace(doc, `class="btn"`, `class="oc298c4db"`, 1), got)
	assert.Equal(t, 2, stats.Attributes)
	assert.Equal(t, 1, stats.Rewritten)
	require.Len(t, stats.Malformed, 1)

	bad := stats.Malformed[0]
	assert.Equal(t, 4, bad.Line)
	assert.Equal(t, 14, bad.Column)
	assert.Equal(t, `  <div class="primary>broken`, bad.Text)

	_, ok := reg.Lookup("primary")
	assert.False(t, ok, "tokens of malformed attributes are not registered")
}

func TestMarkupRewriter_StrayQuote(t *testing.T) {
	doc := "<div class=\"card>\n<p class=\"body\">hi</p>"

	reg := newTestRegistry(t)
	got, stats := NewMarkupRewriter(reg, nil).Rewrite(doc)

	assert.Equal(t, doc, got)
	assert.Zero(t, stats.Rewritten)
	require.Len(t, stats.Malformed, 1)
	assert.Equal(t, 1, stats.Malformed[0].Line)
	assert.Equal(t, 12, stats.Malformed[0].Column)
	assert.Equal(t, `<div class="card>`, stats.Malformed[0].Text)
	assert.Zero(t, reg.Len())
}

func TestMarkupRewriter_BracketsAreNotMarkup(t *testing.T) {
	_, stats := NewMarkupRewriter(newTestRegistry(t), nil).Rewrite(`<ul class="[&>li]:p-4 [&_a>b]:flex"></ul>`)
	assert.Empty(t, stats.Malformed)
	assert.Equal(t, 2, stats.Rewritten)
}

func TestMarkupRewriter_EntitiesMatchSelectors(t *testing.T) {
	reg := newTestRegistry(t)
	html, _ := NewMarkupRewriter(reg, nil).Rewrite(`<ul class="[&amp;>li]:p-4"></ul>`)
	css, _ := NewSelectorRewriter(reg, nil).Rewrite(`.\[\&\>li\]\:p-4>li{margin:0}`)

	assert.Equal(t, []string{"o4686e293"}, ClassAttributes(html))
	assert.Equal(t, []string{"o4686e293"}, ClassSelectors(css))
	_, ok := reg.Lookup("[&amp;>li]:p-4")
	assert.False(t, ok)
}

func TestMarkupRewriter_Idempotent(t *testing.T) {
	doc := `<body class="container"><a class='btn hover:bg-red' href="#">x</a><svg class="icon"></svg></body>`

	m := NewMarkupRewriter(newTestRegistry(t), nil)
	once, stats := m.Rewrite(doc)
	require.Equal(t, 4, stats.Rewritten)

	twice, stats := m.Rewrite(once)
	assert.Equal(t, once, twice)
	assert.Zero(t, stats.Rewritten)
	assert.Equal(t, 4, stats.Tokens)
}

func TestMarkupRewriter_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	token := gen.RegexMatch(`^[a-z]{1,4}(:[a-z]{1,5})?(-[a-z0-9]{1,3})?$`)

	// Property: a second pass over rewritten markup changes nothing.
	properties.Property("idempotent", prop.ForAll(
		func(tokens []string) bool {
			m := NewMarkupRewriter(newTestRegistry(t), nil)
			doc := `<div id="x" class="` + strings.Join(tokens, " ") + `">t</div>`
			once, _ := m.Rewrite(doc)
			twice, _ := m.Rewrite(once)
			return once == twice
		},
		gen.SliceOf(token),
	))

	// Property: the same tokens in CSS and HTML map to the same values.
	properties.Property("consistent with selectors", prop.ForAll(
		func(tokens []string) bool {
			reg := newTestRegistry(t)
			html, _ := NewMarkupRewriter(reg, nil).Rewrite(`<p class="` + strings.Join(tokens, " ") + `"></p>`)

			var css strings.Builder
			for _, tok := range tokens {
				css.WriteString("." + strings.ReplaceAll(tok, ":", `\:`) + "{}")
			}
			out, _ := NewSelectorRewriter(reg, nil).Rewrite(css.String())

			got := ClassAttributes(html)
			if len(tokens) == 0 {
				return len(got) == 1 && got[0] == ""
			}
			return strings.Join(ClassSelectors(out), " ") == got[0]
		},
		gen.SliceOf(token),
	))

	properties.TestingRun(t)
}

func TestClassAttributes(t *testing.T) {
	got := ClassAttributes(`<div class="a b"><svg class='icon'></svg><p class=x title="y"><b class="c&amp;d"><i class="broken`)
	assert.Equal(t, []string{"a b", "icon", "x", "c&d"}, got)
}
