package registry

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(Config{Salt: "test-salt"})
	require.NoError(t, err)
	return r
}

func TestGetOrCreate_LiteralValue(t *testing.T) {
	r := newTestRegistry(t)

	// "o" + md5("container-test-salt")[:8]
	require.Equal(t, "o868397a4", r.GetOrCreate("container"))
}

func TestGetOrCreate(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "plain utility", token: "btn", want: "oc298c4db"},
		{name: "short prefix", token: "p-1", want: "ocfe8f013"},
		{name: "longer sibling", token: "p-10", want: "off84fb65"},
		{name: "variant qualified", token: "hover:bg-red", want: "od06e64e9"},
		{name: "empty", token: "", want: ""},
		{name: "whitespace only", token: " \t\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			require.Equal(t, tt.want, r.GetOrCreate(tt.token))
			if tt.want == "" {
				assert.Equal(t, 0, r.Len(), "blank tokens must not create entries")
			}
		})
	}
}

func TestGetOrCreate_AcrossRegistries(t *testing.T) {
	a := newTestRegistry(t)
	b := newTestRegistry(t)

	// Different registration order, same answers.
	tokens := []string{"btn", "primary", "md:flex", "p-10", "p-1"}
	for _, tok := range tokens {
		a.GetOrCreate(tok)
	}
	for i := len(tokens) - 1; i >= 0; i-- {
		b.GetOrCreate(tokens[i])
	}

	if diff := cmp.Diff(a.Snapshot(), b.Snapshot()); diff != "" {
		t.Fatalf("registries disagree (-a +b):\n%s", diff)
	}
}

func TestGetOrCreate_SaltChangesOutput(t *testing.T) {
	a := newTestRegistry(t)
	b, err := New(Config{Salt: "other-salt"})
	require.NoError(t, err)

	assert.NotEqual(t, a.GetOrCreate("btn"), b.GetOrCreate("btn"))
}

func TestNew_DefaultSalt(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)
	b, err := New(Config{Salt: DefaultSalt})
	require.NoError(t, err)

	assert.Equal(t, b.GetOrCreate("btn"), a.GetOrCreate("btn"))
	assert.Equal(t, b.Fingerprint(), a.Fingerprint())
}

func TestNew_UnknownHash(t *testing.T) {
	_, err := New(Config{Salt: "x", Hash: "crc32"})
	require.ErrorIs(t, err, ErrUnknownHash)
}

func TestNew_SHA256(t *testing.T) {
	r, err := New(Config{Salt: "test-salt", Hash: "SHA256"})
	require.NoError(t, err)

	v := r.GetOrCreate("container")
	assert.True(t, LooksObfuscated(v), "got %q", v)
	assert.NotEqual(t, "o868397a4", v)
}

func TestLookup(t *testing.T) {
	r := newTestRegistry(t)

	_, ok := r.Lookup("btn")
	require.False(t, ok)
	assert.Equal(t, 0, r.Len(), "Lookup must not register")

	v := r.GetOrCreate("btn")
	got, ok := r.Lookup("btn")
	require.True(t, ok)
	assert.Equal(t, v, got)
}

func TestMerge_FirstWriterWins(t *testing.T) {
	r := newTestRegistry(t)
	btn := r.GetOrCreate("btn")

	added := r.Merge(map[string]string{
		"btn":     "oxxxxxxxx",
		"primary": "o11111111",
		"":        "o22222222",
		"card":    "",
	})

	require.Equal(t, 1, added)
	got, _ := r.Lookup("btn")
	assert.Equal(t, btn, got, "existing entries are never overwritten")
	got, _ = r.Lookup("primary")
	assert.Equal(t, "o11111111", got)
	assert.Equal(t, 2, r.Len())
}

func TestSnapshot_IsIndependent(t *testing.T) {
	r := newTestRegistry(t)
	r.GetOrCreate("btn")

	snap := r.Snapshot()
	snap["btn"] = "changed"
	snap["new"] = "added"

	got, _ := r.Lookup("btn")
	assert.Equal(t, "oc298c4db", got)
	assert.Equal(t, 1, r.Len())
}

func TestTokens_Sorted(t *testing.T) {
	r := newTestRegistry(t)
	for _, tok := range []string{"z-10", "btn", "md:flex"} {
		r.GetOrCreate(tok)
	}
	assert.Equal(t, []string{"btn", "md:flex", "z-10"}, r.Tokens())
}

func TestIsObfuscated(t *testing.T) {
	r := newTestRegistry(t)
	v := r.GetOrCreate("btn")

	assert.True(t, r.IsObfuscated(v))
	assert.False(t, r.IsObfuscated("btn"))
	assert.False(t, r.IsObfuscated("o00000000"))
}

func TestCollisions_Reported(t *testing.T) {
	r := newTestRegistry(t)

	// A genuine 32-bit collision under "test-salt".
	a := r.GetOrCreate("dark:pl-67")
	b := r.GetOrCreate("p-1/3")

	require.Equal(t, "o28f97d24", a)
	require.Equal(t, a, b, "collisions are accepted, not resolved")
	require.Equal(t, []Collision{{Value: "o28f97d24", First: "dark:pl-67", Second: "p-1/3"}}, r.Collisions())

	// Asking again is not a new collision.
	r.GetOrCreate("p-1/3")
	assert.Len(t, r.Collisions(), 1)
}

func TestUniqueness_Fixture(t *testing.T) {
	r := newTestRegistry(t)
	tokens := fixtureTokens()
	require.Len(t, tokens, 10608)

	seen := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		v := r.GetOrCreate(tok)
		if prev, ok := seen[v]; ok {
			t.Fatalf("collision: %q and %q both map to %q", prev, tok, v)
		}
		seen[v] = tok
	}
	assert.Empty(t, r.Collisions())
}

// fixtureTokens is a utility-class corpus known to be collision free under
// "test-salt".
func fixtureTokens() []string {
	prefixes := []string{"p", "px", "py", "m", "mx", "my", "w", "h", "gap", "text", "bg", "rounded", "border", "opacity", "z", "top", "left"}
	variants := []string{"", "hover:", "focus:", "sm:", "md:", "lg:"}
	var values []string
	for i := 0; i <= 96; i++ {
		values = append(values, fmt.Sprint(i))
	}
	values = append(values, "px", "auto", "full", "screen", "1/2", "1/3", "2/3")

	var tokens []string
	for _, v := range variants {
		for _, p := range prefixes {
			for _, x := range values {
				tokens = append(tokens, v+p+"-"+x)
			}
		}
	}
	return tokens
}

func TestLooksObfuscated(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"o868397a4", true},
		{"o00000000", true},
		{"o868397A4", false},
		{"x868397a4", false},
		{"o868397a", false},
		{"o868397a45", false},
		{"btn", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksObfuscated(tt.in))
		})
	}
}
