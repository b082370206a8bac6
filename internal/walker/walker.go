// Package walker enumerates files under a root directory.
package walker

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Matcher selects files by doublestar glob patterns evaluated against the
// slash-separated path relative to the walk root.
type Matcher struct {
	include []string
	exclude []string
}

// NewMatcher validates the patterns. An empty include list matches every
// file; exclude patterns also prune directories.
func NewMatcher(include, exclude []string) (Matcher, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return Matcher{}, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return Matcher{include: include, exclude: exclude}, nil
}

// MustMatcher is NewMatcher for patterns known at compile time.
func MustMatcher(include, exclude []string) Matcher {
	m, err := NewMatcher(include, exclude)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether the file at rel should be visited.
func (m Matcher) Match(rel string) bool {
	if m.excluded(rel) {
		return false
	}
	if len(m.include) == 0 {
		return true
	}
	for _, p := range m.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// SkipDir reports whether the directory at rel should not be entered.
func (m Matcher) SkipDir(rel string) bool {
	return m.excluded(rel)
}

// excluded checks rel and each of its parent directories.
func (m Matcher) excluded(rel string) bool {
	if len(m.exclude) == 0 {
		return false
	}
	for p := rel; p != "." && p != "/" && p != ""; p = path.Dir(p) {
		for _, pattern := range m.exclude {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
		}
	}
	return false
}

// Walker walks directory trees, skipping subtrees it cannot read.
type Walker struct {
	match  Matcher
	log    *zap.Logger
	openFS func(root string) fs.FS
}

// New creates a walker yielding files accepted by match.
func New(match Matcher, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{
		match:  match,
		log:    log.Named("walker"),
		openFS: os.DirFS,
	}
}

// Walk returns the matching files under root, in lexical order, as a lazy
// sequence. Each range over the sequence walks the tree afresh.
//
// The error is non-nil only when root itself cannot be read. Unreadable
// subdirectories are logged and skipped; their siblings are still visited.
func (w *Walker) Walk(root string) (iter.Seq[string], error) {
	fsys := w.openFS(root)
	if _, err := fs.ReadDir(fsys, "."); err != nil {
		return nil, fmt.Errorf("read root %s: %w", root, err)
	}

	return func(yield func(string) bool) {
		err := fs.WalkDir(fsys, ".", func(rel string, d fs.DirEntry, err error) error {
			if err != nil {
				w.log.Warn("Skipping unreadable path", zap.String("path", filepath.Join(root, filepath.FromSlash(rel))), zap.Error(err))
				if rel == "." {
					return err
				}
				if d == nil || d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if rel != "." && w.match.SkipDir(rel) {
					return fs.SkipDir
				}
				return nil
			}

			if !w.match.Match(rel) {
				return nil
			}
			if !yield(filepath.Join(root, filepath.FromSlash(rel))) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			w.log.Warn("Walk stopped early", zap.String("root", root), zap.Error(err))
		}
	}, nil
}

// Collect drains a Walk into a slice.
func (w *Walker) Collect(root string) ([]string, error) {
	seq, err := w.Walk(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for f := range seq {
		files = append(files, f)
	}
	return files, nil
}
