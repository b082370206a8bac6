package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MapFileName is the persisted map written under the output root.
const MapFileName = "obfuscation-map.json"

// Persist writes the full registry as an indented JSON object to path.
// The file is replaced atomically. Failures are logged and returned; the
// registry itself is unaffected.
func (r *Registry) Persist(path string) (err error) {
	defer func() {
		if err != nil {
			r.log.Error("Unable to save obfuscation map", zap.String("path", path), zap.Error(err))
		}
	}()

	data, err := json.MarshalIndent(r.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create map directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".obfuscation-map-*.json")
	if err != nil {
		return fmt.Errorf("create temp map: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return multierr.Append(fmt.Errorf("write map: %w", err), tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close map: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod map: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename map: %w", err)
	}

	r.log.Info("Saved obfuscation map", zap.String("path", path), zap.Int("entries", r.Len()))
	return nil
}

// LoadResult describes what Load did with a persisted map.
type LoadResult struct {
	Added int // Entries merged into the registry
	Stale int // Entries skipped because the current salt disagrees
}

// Load hydrates the registry from a map written by Persist. Entries whose
// value differs from what the current salt derives are skipped as stale, so
// a map from a different salt can never break determinism. Failures are
// logged and returned; the registry keeps whatever it already had.
func (r *Registry) Load(path string) (LoadResult, error) {
	var res LoadResult

	// #nosec G304 - path comes from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("Unable to read obfuscation map", zap.String("path", path), zap.Error(err))
		return res, fmt.Errorf("read map: %w", err)
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		r.log.Warn("Unable to decode obfuscation map", zap.String("path", path), zap.Error(err))
		return res, fmt.Errorf("decode map %s: %w", path, err)
	}

	fresh := make(map[string]string, len(m))
	for token, v := range m {
		if v != r.Derive(token) {
			res.Stale++
			continue
		}
		fresh[token] = v
	}
	res.Added = r.Merge(fresh)

	if res.Stale > 0 {
		r.log.Warn("Skipped stale map entries (salt mismatch)", zap.String("path", path), zap.Int("stale", res.Stale))
	}
	r.log.Info("Loaded obfuscation map", zap.String("path", path), zap.Int("added", res.Added))
	return res, nil
}
