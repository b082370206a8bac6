// Package verify checks that rewritten HTML and CSS agree on obfuscated
// class tokens.
package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yacobolo/classhash/internal/registry"
	"github.com/yacobolo/classhash/internal/rewrite"
	"github.com/yacobolo/classhash/internal/walker"
)

var (
	// DefaultHTML selects rewritten documents.
	DefaultHTML = []string{"**/*.{html,htm}"}
	// DefaultCSS selects rewritten stylesheets.
	DefaultCSS = []string{"**/*.css"}
)

// Config configures a Verifier.
type Config struct {
	HTML    []string // Default DefaultHTML
	CSS     []string // Default DefaultCSS
	Exclude []string
	// Full checks every HTML file against every stylesheet instead of
	// comparing one sample of each.
	Full   bool
	Logger *zap.Logger
}

// Missing lists obfuscated tokens of one HTML file that no stylesheet
// selects. Only reported in full mode.
type Missing struct {
	File   string
	Tokens []string
}

// Report is the outcome of a verification.
type Report struct {
	HTMLFile string // Sampled document, empty if none
	CSSFile  string // Sampled stylesheet, empty if none
	Tokens   int    // Distinct obfuscated tokens in the sampled document
	Matched  int    // Of which selected by the sampled stylesheet

	// Warning is set when both samples are non-empty and no token matched.
	Warning string

	HTMLFiles int // Full mode only
	CSSFiles  int // Full mode only
	Missing   []Missing
}

// OK reports whether verification raised no warning.
func (r Report) OK() bool {
	return r.Warning == ""
}

// Verifier samples an output tree.
type Verifier struct {
	html walker.Matcher
	css  walker.Matcher
	full bool
	log  *zap.Logger
}

// New creates a verifier.
func New(config Config) (*Verifier, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if len(config.HTML) == 0 {
		config.HTML = DefaultHTML
	}
	if len(config.CSS) == 0 {
		config.CSS = DefaultCSS
	}

	html, err := walker.NewMatcher(config.HTML, config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	css, err := walker.NewMatcher(config.CSS, config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return &Verifier{html: html, css: css, full: config.Full, log: config.Logger.Named("verify")}, nil
}

// Verify checks the output tree at root. The error is non-nil only when
// root cannot be read; a failed check is a warning in the report.
func (v *Verifier) Verify(root string) (Report, error) {
	htmlFiles, err := walker.New(v.html, v.log).Collect(root)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}
	cssFiles, err := walker.New(v.css, v.log).Collect(root)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}

	var rep Report
	if index := filepath.Join(root, "index.html"); slices.Contains(htmlFiles, index) {
		rep.HTMLFile = index
	} else if len(htmlFiles) > 0 {
		rep.HTMLFile = htmlFiles[0]
	}
	if len(cssFiles) > 0 {
		rep.CSSFile = cssFiles[0]
	}

	v.sample(&rep)
	if v.full {
		v.checkAll(&rep, htmlFiles, cssFiles)
	}
	return rep, nil
}

func (v *Verifier) sample(rep *Report) {
	if rep.HTMLFile == "" || rep.CSSFile == "" {
		v.log.Info("Nothing to verify", zap.String("html", rep.HTMLFile), zap.String("css", rep.CSSFile))
		return
	}

	doc, err := os.ReadFile(rep.HTMLFile)
	if err != nil {
		v.log.Warn("Cannot read sample document", zap.String("file", rep.HTMLFile), zap.Error(err))
		return
	}
	sheet, err := os.ReadFile(rep.CSSFile)
	if err != nil {
		v.log.Warn("Cannot read sample stylesheet", zap.String("file", rep.CSSFile), zap.Error(err))
		return
	}

	tokens := htmlTokens(string(doc))
	selected := selectorSet(string(sheet))
	rep.Tokens = len(tokens)
	for _, tok := range tokens {
		if selected[tok] {
			rep.Matched++
		}
	}

	if strings.TrimSpace(string(doc)) != "" && strings.TrimSpace(string(sheet)) != "" && rep.Matched == 0 {
		rep.Warning = fmt.Sprintf("no obfuscated class in %s is selected by %s; stylesheet and markup were rewritten with different registries",
			rep.HTMLFile, rep.CSSFile)
		v.log.Warn("Verification found no matching classes",
			zap.String("html", rep.HTMLFile),
			zap.String("css", rep.CSSFile),
			zap.Int("tokens", rep.Tokens),
		)
		return
	}
	v.log.Info("Verified sample", zap.Int("tokens", rep.Tokens), zap.Int("matched", rep.Matched))
}

func (v *Verifier) checkAll(rep *Report, htmlFiles, cssFiles []string) {
	selected := make(map[string]bool)
	for _, f := range cssFiles {
		sheet, err := os.ReadFile(f)
		if err != nil {
			v.log.Warn("Skipping unreadable stylesheet", zap.String("file", f), zap.Error(err))
			continue
		}
		rep.CSSFiles++
		for tok := range selectorSet(string(sheet)) {
			selected[tok] = true
		}
	}

	for _, f := range htmlFiles {
		doc, err := os.ReadFile(f)
		if err != nil {
			v.log.Warn("Skipping unreadable document", zap.String("file", f), zap.Error(err))
			continue
		}
		rep.HTMLFiles++

		var missing []string
		for _, tok := range htmlTokens(string(doc)) {
			if !selected[tok] {
				missing = append(missing, tok)
			}
		}
		if len(missing) > 0 {
			rep.Missing = append(rep.Missing, Missing{File: f, Tokens: missing})
		}
	}
}

// htmlTokens returns the distinct obfuscated tokens used in class
// attributes of doc, sorted.
func htmlTokens(doc string) []string {
	seen := make(map[string]bool)
	for _, value := range rewrite.ClassAttributes(doc) {
		for _, tok := range strings.Fields(value) {
			if registry.LooksObfuscated(tok) {
				seen[tok] = true
			}
		}
	}
	tokens := make([]string, 0, len(seen))
	for tok := range seen {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

func selectorSet(sheet string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range rewrite.ClassSelectors(sheet) {
		set[tok] = true
	}
	return set
}
