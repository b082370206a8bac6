package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dist", MapFileName)

	src := newTestRegistry(t)
	for _, tok := range []string{"btn", "primary", "hover:bg-red"} {
		src.GetOrCreate(tok)
	}
	require.NoError(t, src.Persist(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]string
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, src.Snapshot(), onDisk)
	assert.Contains(t, string(data), "\n  \"btn\": \"oc298c4db\"", "map should be indented for humans")

	dst := newTestRegistry(t)
	res, err := dst.Load(path)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Added: 3}, res)
	assert.Equal(t, src.Snapshot(), dst.Snapshot())
}

func TestPersist_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t)
	r.GetOrCreate("btn")

	require.NoError(t, r.Persist(filepath.Join(dir, MapFileName)))
	require.NoError(t, r.Persist(filepath.Join(dir, MapFileName)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, MapFileName, entries[0].Name())
}

func TestLoad_SkipsStaleEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MapFileName)

	other, err := New(Config{Salt: "old-salt"})
	require.NoError(t, err)
	other.GetOrCreate("btn")
	require.NoError(t, other.Persist(path))

	r := newTestRegistry(t)
	res, err := r.Load(path)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Stale: 1}, res)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "oc298c4db", r.GetOrCreate("btn"))
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file"},
		{name: "empty file", content: ptr("")},
		{name: "not json", content: ptr("{btn: o1")},
		{name: "wrong shape", content: ptr(`["btn"]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}

			r := newTestRegistry(t)
			r.GetOrCreate("btn")

			_, err := r.Load(path)
			require.Error(t, err)
			assert.Equal(t, 1, r.Len(), "existing state survives a failed load")
		})
	}
}

func TestPersist_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	r := newTestRegistry(t)
	r.GetOrCreate("btn")

	err := r.Persist(filepath.Join(blocker, "sub", MapFileName))
	require.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func ptr(s string) *string { return &s }
