// Package scanner seeds a class registry from template sources before the
// build runs.
package scanner

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/yacobolo/classhash/internal/walker"
)

var (
	// DefaultInclude selects markup and component sources.
	DefaultInclude = []string{"**/*.{astro,html,htm,jsx,tsx,vue,svelte,templ}"}
	// DefaultExclude prunes dependency and VCS directories.
	DefaultExclude = []string{"**/node_modules", "**/.git"}
)

// Registry is the part of registry.Registry the scanner needs.
type Registry interface {
	Lookup(token string) (string, bool)
	GetOrCreate(token string) string
}

// Reference is one class attribute value found in a source file.
type Reference struct {
	Value    string // Full attribute value: "btn btn--ghost btn--sm"
	Location Location
}

// Location tracks where a reference was found.
type Location struct {
	File   string
	Line   int
	Column int    // 1-based column of the value
	Text   string // Trimmed content of the line the value starts on
}

// Result tracks scanning statistics.
type Result struct {
	FilesDiscovered int // Files matched by the include globs
	FilesScanned    int // Files actually read
	FilesSkipped    int // Generated or gitignored files
	FilesFailed     int // Files that could not be read
	References      int
	Tokens          int // Non-empty tokens seen, duplicates included
	NewTokens       int // Tokens not in the registry before this scan
}

// Config configures a Scanner.
type Config struct {
	Include []string // Default DefaultInclude
	Exclude []string // Default DefaultExclude
	Logger  *zap.Logger
}

// Scanner extracts class tokens from source files into a registry.
type Scanner struct {
	reg   Registry
	match walker.Matcher
	log   *zap.Logger
}

// New creates a scanner feeding reg.
func New(reg Registry, config Config) (*Scanner, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if len(config.Include) == 0 {
		config.Include = DefaultInclude
	}
	if config.Exclude == nil {
		config.Exclude = DefaultExclude
	}

	match, err := walker.NewMatcher(config.Include, config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("scanner: %w", err)
	}
	return &Scanner{reg: reg, match: match, log: config.Logger.Named("scanner")}, nil
}

// scanPattern represents a regex pattern for finding class attribute values.
type scanPattern struct {
	name  string
	regex *regexp.Regexp
}

var (
	// Ordered from most specific to least specific. The leading anchor keeps
	// data-class=, :class= and similar from matching.
	patterns = []scanPattern{
		{
			name:  "class with string literal in braces",
			regex: regexp.MustCompile(`(?:^|\s)(?:class|className)=\{\s*"([^"]*)"`),
		},
		{
			name:  "class with single-quoted literal in braces",
			regex: regexp.MustCompile(`(?:^|\s)(?:class|className)=\{\s*'([^']*)'`),
		},
		{
			name:  "class attribute with double quotes",
			regex: regexp.MustCompile(`(?:^|\s)(?:class|className)\s*=\s*"([^"]*)"`),
		},
		{
			name:  "class attribute with single quotes",
			regex: regexp.MustCompile(`(?:^|\s)(?:class|className)\s*=\s*'([^']*)'`),
		},
	}

	// templ.Classes and templ.KV take comma-separated arguments
	templClassesMulti = regexp.MustCompile(`templ\.Classes\(([^)]+)\)`)
	templKVMulti      = regexp.MustCompile(`templ\.KV\(([^)]+)\)`)

	// Comment patterns to skip
	commentPattern = regexp.MustCompile(`^\s*//`)
)

// isTemplGenerated checks if a file is a templ-generated Go file.
// Handles both _templ.go and .templ.go suffix variations.
func isTemplGenerated(path string) bool {
	return strings.HasSuffix(path, "_templ.go") ||
		strings.HasSuffix(path, ".templ.go")
}

// loadGitIgnore loads root/.gitignore. A missing file is fine.
func loadGitIgnore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// shouldSkipFile reports whether the file at rel, relative to the scan
// root, is generated or gitignored.
func shouldSkipFile(rel string, gi *ignore.GitIgnore) bool {
	if isTemplGenerated(rel) {
		return true
	}
	return gi != nil && gi.MatchesPath(rel)
}

// Scan walks root and registers every class token found. The error is
// non-nil only when root cannot be read; unreadable files are logged and
// counted in FilesFailed.
func (s *Scanner) Scan(root string) (Result, error) {
	var res Result

	files, err := walker.New(s.match, s.log).Walk(root)
	if err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	gi := loadGitIgnore(root)

	for file := range files {
		res.FilesDiscovered++

		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}
		if shouldSkipFile(filepath.ToSlash(rel), gi) {
			res.FilesSkipped++
			s.log.Debug("Skipping generated or ignored file", zap.String("file", file))
			continue
		}

		refs, err := scanFile(file)
		if err != nil {
			res.FilesFailed++
			s.log.Warn("Skipping unreadable file", zap.String("file", file), zap.Error(err))
			continue
		}
		res.FilesScanned++
		res.References += len(refs)

		for _, ref := range refs {
			for _, tok := range strings.Fields(ref.Value) {
				res.Tokens++
				if _, ok := s.reg.Lookup(tok); !ok {
					res.NewTokens++
				}
				s.reg.GetOrCreate(tok)
			}
		}
	}

	s.log.Info("Scanned sources",
		zap.String("root", root),
		zap.Int("files", res.FilesScanned),
		zap.Int("skipped", res.FilesSkipped),
		zap.Int("tokens", res.Tokens),
		zap.Int("new", res.NewTokens),
	)
	return res, nil
}

// scanFile scans a single file for class references.
func scanFile(filePath string) ([]Reference, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return extractClasses(string(data), filePath), nil
}

// lineIndex maps byte offsets in a file to lines.
type lineIndex struct {
	content string
	starts  []int // Offset of the first byte of each line
}

func newLineIndex(content string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{content: content, starts: starts}
}

// line returns the 0-based line holding offset and that line's text.
func (x lineIndex) line(offset int) (int, string) {
	n := sort.SearchInts(x.starts, offset+1) - 1
	end := len(x.content)
	if n+1 < len(x.starts) {
		end = x.starts[n+1] - 1
	}
	return n, x.content[x.starts[n]:end]
}

// extractClasses extracts all class references from a file's content. Values
// may span lines; each reference is located at the line its value starts on.
func extractClasses(content, file string) []Reference {
	idx := newLineIndex(content)

	var refs []Reference
	loc := func(offset int) (Location, bool) {
		n, text := idx.line(offset)
		if commentPattern.MatchString(text) {
			return Location{}, false
		}
		return Location{
			File:   file,
			Line:   n + 1,
			Column: offset - idx.starts[n] + 1,
			Text:   strings.TrimSpace(text),
		}, true
	}

	for _, m := range templClassesMulti.FindAllStringSubmatchIndex(content, -1) {
		refs = append(refs, parseTemplArguments(content[m[2]:m[3]], m[2], loc)...)
	}
	for _, m := range templKVMulti.FindAllStringSubmatchIndex(content, -1) {
		// For KV, only the first argument is the class name
		if parts := splitTemplArgs(content[m[2]:m[3]]); len(parts) > 0 {
			refs = append(refs, parseTemplArguments(parts[0], m[2], loc)...)
		}
	}

	// A value is claimed by the first pattern that matches it.
	claimed := make(map[int]bool)
	for _, pattern := range patterns {
		for _, m := range pattern.regex.FindAllStringSubmatchIndex(content, -1) {
			if claimed[m[2]] {
				continue
			}
			claimed[m[2]] = true
			if l, ok := loc(m[2]); ok {
				refs = append(refs, Reference{Value: content[m[2]:m[3]], Location: l})
			}
		}
	}

	slices.SortStableFunc(refs, func(a, b Reference) int {
		if c := cmp.Compare(a.Location.Line, b.Location.Line); c != 0 {
			return c
		}
		return cmp.Compare(a.Location.Column, b.Location.Column)
	})
	return refs
}

// parseTemplArguments parses string literal arguments inside templ
// functions. offset is the byte offset of args within the file.
func parseTemplArguments(args string, offset int, loc func(int) (Location, bool)) []Reference {
	var refs []Reference
	pos := 0
	for _, part := range splitTemplArgs(args) {
		start := offset + pos
		pos += len(part) + 1

		trimmed := strings.TrimSpace(part)
		if len(trimmed) < 2 || !strings.HasPrefix(trimmed, `"`) || !strings.HasSuffix(trimmed, `"`) {
			continue
		}
		if l, ok := loc(start + strings.Index(part, trimmed) + 1); ok { // past the quote
			refs = append(refs, Reference{Value: strings.Trim(trimmed, `"`), Location: l})
		}
	}
	return refs
}

// splitTemplArgs splits comma-separated arguments.
// Simple splitter - doesn't handle nested function calls
func splitTemplArgs(s string) []string {
	var parts []string
	var current strings.Builder
	parenDepth := 0

	for _, r := range s {
		switch r {
		case '(':
			parenDepth++
			current.WriteRune(r)
		case ')':
			parenDepth--
			current.WriteRune(r)
		case ',':
			if parenDepth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
