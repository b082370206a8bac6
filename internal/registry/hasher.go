package registry

import (
	"crypto/md5" // #nosec G501 - obfuscation, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"
)

const (
	// Prefix guarantees every obfuscated token starts with a letter.
	Prefix = "o"
	// DigestLen is the number of hex characters kept from the digest.
	DigestLen = 8
	// DefaultHash is used when Config.Hash is empty.
	DefaultHash = "md5"
	// DefaultSalt is used when no salt is configured. It is not a secret.
	DefaultSalt = "monorepo-salt"
)

// ErrUnknownHash is returned by New when the configured hash primitive is
// not available. It is a fatal configuration error.
var ErrUnknownHash = errors.New("unknown hash algorithm")

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha256": sha256.New,
}

// Hashes returns the names of the supported hash algorithms.
func Hashes() []string {
	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupHash(name string) (func() hash.Hash, error) {
	if name == "" {
		name = DefaultHash
	}
	h, ok := hashes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownHash, name, strings.Join(Hashes(), ", "))
	}
	return h, nil
}

// derive computes Prefix + hex8(hash(token + "-" + salt)).
func derive(newHash func() hash.Hash, token, salt string) string {
	h := newHash()
	_, _ = io.WriteString(h, token+"-"+salt)
	sum := h.Sum(nil)
	return Prefix + hex.EncodeToString(sum[:DigestLen/2])
}

// fingerprint identifies a salt without storing it.
func fingerprint(salt string) string {
	sum := sha256.Sum256([]byte(salt))
	return hex.EncodeToString(sum[:8])
}

// LooksObfuscated reports whether s has the shape of an obfuscated token:
// Prefix followed by DigestLen lowercase hex characters.
func LooksObfuscated(s string) bool {
	if len(s) != len(Prefix)+DigestLen || !strings.HasPrefix(s, Prefix) {
		return false
	}
	for _, c := range s[len(Prefix):] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
