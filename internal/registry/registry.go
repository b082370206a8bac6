// Package registry holds the class token mapping shared by every stage of a
// build: raw class token to obfuscated token, deterministic for a given salt.
//
// A Registry is append-only. Entries are never removed or changed once
// created, and GetOrCreate is a pure function of (token, salt), so two
// registries built with the same salt always agree on every token they both
// know. That property is what lets separate processes exchange growth
// through a Mailbox without coordination.
package registry

import (
	"hash"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Config configures a Registry.
type Config struct {
	Salt   string      // Mixed into every digest; DefaultSalt when empty
	Hash   string      // "md5" (default) or "sha256"
	Logger *zap.Logger // Optional; nop when nil
}

// Collision records two distinct raw tokens that produced the same
// obfuscated token. Collisions are reported, never resolved.
type Collision struct {
	Value  string // Shared obfuscated token
	First  string // Token that claimed Value first
	Second string // Token that collided with it
}

// Registry maps raw class tokens to obfuscated tokens.
//
// It is not safe for concurrent use; each stage owns it exclusively while it
// runs.
type Registry struct {
	salt       string
	newHash    func() hash.Hash
	entries    map[string]string // token -> obfuscated
	owners     map[string]string // obfuscated -> first token
	collisions []Collision
	log        *zap.Logger
}

// New creates an empty registry. It fails only when the hash primitive is
// unknown.
func New(config Config) (*Registry, error) {
	newHash, err := lookupHash(config.Hash)
	if err != nil {
		return nil, err
	}

	salt := config.Salt
	if salt == "" {
		salt = DefaultSalt
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Registry{
		salt:    salt,
		newHash: newHash,
		entries: make(map[string]string),
		owners:  make(map[string]string),
		log:     log.Named("registry"),
	}, nil
}

// Lookup returns the obfuscated token for token without creating one.
func (r *Registry) Lookup(token string) (string, bool) {
	v, ok := r.entries[token]
	return v, ok
}

// GetOrCreate returns the obfuscated token for token, registering it first
// if needed. Empty or whitespace-only tokens yield "" and create nothing.
func (r *Registry) GetOrCreate(token string) string {
	if strings.TrimSpace(token) == "" {
		return ""
	}
	if v, ok := r.entries[token]; ok {
		return v
	}

	v := derive(r.newHash, token, r.salt)
	r.store(token, v)
	return v
}

// Derive computes the obfuscated token for token without registering it.
func (r *Registry) Derive(token string) string {
	return derive(r.newHash, token, r.salt)
}

// Merge adds every entry of other that is absent locally. Existing entries
// are never overwritten. It returns the number of entries added.
func (r *Registry) Merge(other map[string]string) int {
	// Sorted so collision reports do not depend on map iteration order.
	tokens := make([]string, 0, len(other))
	for token := range other {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	added := 0
	for _, token := range tokens {
		v := other[token]
		if strings.TrimSpace(token) == "" || v == "" {
			continue
		}
		if _, ok := r.entries[token]; ok {
			continue
		}
		r.store(token, v)
		added++
	}
	return added
}

func (r *Registry) store(token, v string) {
	if owner, ok := r.owners[v]; ok && owner != token {
		r.collisions = append(r.collisions, Collision{Value: v, First: owner, Second: token})
		r.log.Warn("Obfuscated token collision",
			zap.String("value", v),
			zap.String("first", owner),
			zap.String("second", token))
	} else if !ok {
		r.owners[v] = token
	}
	r.entries[token] = v
}

// Snapshot returns an independent copy of all entries.
func (r *Registry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

// Tokens returns the registered raw tokens in sorted order.
func (r *Registry) Tokens() []string {
	tokens := make([]string, 0, len(r.entries))
	for k := range r.entries {
		tokens = append(tokens, k)
	}
	sort.Strings(tokens)
	return tokens
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.entries)
}

// IsObfuscated reports whether s is a value this registry handed out.
func (r *Registry) IsObfuscated(s string) bool {
	_, ok := r.owners[s]
	return ok
}

// Collisions returns the collisions observed so far.
func (r *Registry) Collisions() []Collision {
	return append([]Collision(nil), r.collisions...)
}

// Fingerprint identifies the salt in use without revealing it.
func (r *Registry) Fingerprint() string {
	return fingerprint(r.salt)
}
