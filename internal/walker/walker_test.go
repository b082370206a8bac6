package walker

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedFS fails to list one directory, like a permission-denied subtree.
type lockedFS struct {
	fstest.MapFS
	locked string
}

func (f lockedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.locked {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadDir(name)
}

func newFSWalker(t *testing.T, fsys fs.FS, match Matcher) *Walker {
	t.Helper()
	w := New(match, nil)
	w.openFS = func(string) fs.FS { return fsys }
	return w
}

func TestWalk_SkipsUnreadableSubtree(t *testing.T) {
	fsys := lockedFS{
		MapFS: fstest.MapFS{
			"a/index.html":      {Data: []byte("a")},
			"b/secret.html":     {Data: []byte("b")},
			"c/about.html":      {Data: []byte("c")},
			"c/deep/page.html":  {Data: []byte("c")},
			"c/deep/style.css":  {Data: []byte("c")},
			"root.html":         {Data: []byte("r")},
			"assets/app.min.js": {Data: []byte("js")},
		},
		locked: "b",
	}

	w := newFSWalker(t, fsys, MustMatcher([]string{"**/*.html"}, nil))
	files, err := w.Collect("site")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("site", "a", "index.html"),
		filepath.Join("site", "c", "about.html"),
		filepath.Join("site", "c", "deep", "page.html"),
		filepath.Join("site", "root.html"),
	}, files)
}

func TestWalk_UnreadableRoot(t *testing.T) {
	w := New(Matcher{}, nil)
	_, err := w.Walk(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestWalk_Restartable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.css"), []byte("."), 0o644))

	w := New(MustMatcher([]string{"**/*.css"}, nil), nil)
	seq, err := w.Walk(dir)
	require.NoError(t, err)

	var first, second []string
	for f := range seq {
		first = append(first, f)
	}

	// Files added between ranges are seen by the next range.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.css"), []byte("."), 0o644))
	for f := range seq {
		second = append(second, f)
	}

	assert.Equal(t, []string{filepath.Join(dir, "one.css")}, first)
	assert.Equal(t, []string{filepath.Join(dir, "one.css"), filepath.Join(dir, "two.css")}, second)
}

func TestWalk_EarlyBreak(t *testing.T) {
	fsys := fstest.MapFS{
		"a.html": {Data: []byte("a")},
		"b.html": {Data: []byte("b")},
		"c.html": {Data: []byte("c")},
	}
	w := newFSWalker(t, fsys, Matcher{})
	seq, err := w.Walk("out")
	require.NoError(t, err)

	var got []string
	for f := range seq {
		got = append(got, f)
		break
	}
	assert.Equal(t, []string{filepath.Join("out", "a.html")}, got)
}

func TestMatcher(t *testing.T) {
	m := MustMatcher(
		[]string{"**/*.{astro,html,jsx}"},
		[]string{"**/node_modules", "**/*.min.html"},
	)

	tests := []struct {
		path string
		want bool
	}{
		{"index.html", true},
		{"src/pages/about.astro", true},
		{"src/components/Button.jsx", true},
		{"src/styles/site.css", false},
		{"vendor.min.html", false},
		{"node_modules/pkg/index.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}

	assert.True(t, m.SkipDir("node_modules"))
	assert.True(t, m.SkipDir("packages/ui/node_modules"))
	assert.False(t, m.SkipDir("src"))
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher([]string{"[unclosed"}, nil)
	require.Error(t, err)
}

func TestWalk_PrunesExcludedDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		"src/index.astro":                {Data: []byte("x")},
		"node_modules/lib/readme.astro":  {Data: []byte("x")},
		"src/node_modules/x/local.astro": {Data: []byte("x")},
	}
	w := newFSWalker(t, fsys, MustMatcher([]string{"**/*.astro"}, []string{"**/node_modules"}))

	files, err := w.Collect("proj")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("proj", "src", "index.astro")}, files)
}
