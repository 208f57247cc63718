// pkg/session/jar_test.go
package session

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/websession/pkg/engine"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJarSetCookiesAndMatch(t *testing.T) {
	jar := NewJar()
	site := mustParse(t, "https://www.example.com/account")

	jar.SetCookies(site, []*http.Cookie{
		{Name: "sid", Value: "abc"},
		{Name: "wide", Value: "1", Domain: ".example.com"},
		{Name: "scoped", Value: "2", Path: "/admin"},
	})

	t.Run("request on the same host sees host and parent-domain cookies", func(t *testing.T) {
		got := jar.Cookies(mustParse(t, "https://www.example.com/"))
		require.Len(t, got, 2)
		// Sorted by name.
		assert.Equal(t, "sid", got[0].Name)
		assert.Equal(t, "wide", got[1].Name)
	})

	t.Run("sibling subdomain sees only the dot-prefixed cookie", func(t *testing.T) {
		got := jar.Cookies(mustParse(t, "https://api.example.com/"))
		require.Len(t, got, 1)
		assert.Equal(t, "wide", got[0].Name)
	})

	t.Run("unrelated host sees nothing", func(t *testing.T) {
		assert.Empty(t, jar.Cookies(mustParse(t, "https://example.org/")))
	})

	t.Run("path scoping", func(t *testing.T) {
		got := jar.Cookies(mustParse(t, "https://www.example.com/admin/users"))
		require.Len(t, got, 3)

		got = jar.Cookies(mustParse(t, "https://www.example.com/public"))
		for _, c := range got {
			assert.NotEqual(t, "scoped", c.Name)
		}
	})
}

func TestJarRejectsForeignDomainWrites(t *testing.T) {
	testCases := []struct {
		name     string
		origin   string
		cookie   *http.Cookie
		accepted bool
	}{
		{
			name:     "response may scope to its own host",
			origin:   "https://www.example.com/",
			cookie:   &http.Cookie{Name: "sid", Value: "v", Domain: "www.example.com"},
			accepted: true,
		},
		{
			name:     "response may scope to a parent domain",
			origin:   "https://www.example.com/",
			cookie:   &http.Cookie{Name: "sid", Value: "v", Domain: ".example.com"},
			accepted: true,
		},
		{
			name:     "unrelated domain is dropped",
			origin:   "https://evil.com/",
			cookie:   &http.Cookie{Name: "fixation", Value: "attacker", Domain: ".victim.com"},
			accepted: false,
		},
		{
			name:     "sibling subdomain is dropped",
			origin:   "https://a.example.com/",
			cookie:   &http.Cookie{Name: "sid", Value: "v", Domain: "b.example.com"},
			accepted: false,
		},
		{
			name:     "bare public suffix is dropped",
			origin:   "https://evil.com/",
			cookie:   &http.Cookie{Name: "wide", Value: "v", Domain: "com"},
			accepted: false,
		},
		{
			name:     "multi-label public suffix is dropped",
			origin:   "https://shop.example.co.uk/",
			cookie:   &http.Cookie{Name: "wide", Value: "v", Domain: "co.uk"},
			accepted: false,
		},
		{
			name:     "IP host takes host-only cookies",
			origin:   "http://192.168.1.10/",
			cookie:   &http.Cookie{Name: "sid", Value: "v"},
			accepted: true,
		},
		{
			name:     "IP host rejects a domain attribute",
			origin:   "http://192.168.1.10/",
			cookie:   &http.Cookie{Name: "sid", Value: "v", Domain: ".168.1.10"},
			accepted: false,
		},
		{
			name:     "dotless host may name itself",
			origin:   "http://localhost/",
			cookie:   &http.Cookie{Name: "sid", Value: "v", Domain: "localhost"},
			accepted: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			jar := NewJar()
			jar.SetCookies(mustParse(t, tc.origin), []*http.Cookie{tc.cookie})
			if tc.accepted {
				assert.Len(t, jar.All(), 1)
			} else {
				assert.Empty(t, jar.All())
			}
		})
	}
}

func TestJarForeignWriteNeverServed(t *testing.T) {
	// The end-to-end shape of a fixation attempt: a response from one site
	// naming another site's domain must not influence requests to that site.
	jar := NewJar()
	jar.SetCookies(mustParse(t, "https://evil.com/"), []*http.Cookie{
		{Name: "session_fixation", Value: "attacker", Domain: ".victim.com"},
		{Name: "wide", Value: "attacker", Domain: "com"},
	})

	assert.Empty(t, jar.Cookies(mustParse(t, "https://victim.com/login")))
	assert.Empty(t, jar.Cookies(mustParse(t, "https://bank.com/")))
	assert.Empty(t, jar.Domains())
}

func TestJarDeletionAndExpiry(t *testing.T) {
	jar := NewJar()
	site := mustParse(t, "https://example.com/")

	jar.SetCookies(site, []*http.Cookie{{Name: "sid", Value: "abc"}})
	require.Len(t, jar.All(), 1)

	t.Run("negative max-age deletes", func(t *testing.T) {
		jar.SetCookies(site, []*http.Cookie{{Name: "sid", MaxAge: -1}})
		assert.Empty(t, jar.All())
	})

	t.Run("already-expired cookie is never stored", func(t *testing.T) {
		jar.SetCookies(site, []*http.Cookie{
			{Name: "old", Value: "x", Expires: time.Now().Add(-time.Hour)},
		})
		assert.Empty(t, jar.All())
	})

	t.Run("live expiry is honored on read", func(t *testing.T) {
		jar.Set(engine.Cookie{
			Name: "soon", Value: "y", Domain: "example.com",
			Expires: time.Now().Add(10 * time.Millisecond),
		})
		require.True(t, jar.HasDomain(".example.com"))
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, jar.All())
	})
}

func TestJarMergeLastWriteWins(t *testing.T) {
	jar := NewJar()

	// Two entries for the same cookie name on the same domain, different paths.
	jar.Set(engine.Cookie{Name: "sid", Value: "http-side", Domain: "example.com", Path: "/a"})
	jar.Set(engine.Cookie{Name: "sid", Value: "http-side", Domain: "example.com", Path: "/b"})
	require.Len(t, jar.All(), 2)

	// A merge keyed on (name, domain) collapses both.
	jar.Merge(engine.Cookie{Name: "sid", Value: "engine-side", Domain: ".example.com"})

	all := jar.All()
	require.Len(t, all, 1)
	assert.Equal(t, "engine-side", all[0].Value)
	assert.Equal(t, "/", all[0].Path)

	// A different domain is untouched by the merge.
	jar.Set(engine.Cookie{Name: "sid", Value: "other", Domain: "example.org"})
	jar.Merge(engine.Cookie{Name: "sid", Value: "engine-2", Domain: "example.com"})
	assert.Len(t, jar.All(), 2)
}

func TestJarTransferRoundTrip(t *testing.T) {
	// Cookies placed in the jar survive an All -> Merge cycle, which is the
	// shape of a push-then-pull transfer when the far side changes nothing.
	jar := NewJar()
	seed := []engine.Cookie{
		{Name: "a", Value: "1", Domain: ".example.com", Path: "/"},
		{Name: "b", Value: "2", Domain: ".example.org", Path: "/"},
		{Name: "c", Value: "3", Domain: "localhost", Path: "/"},
	}
	for _, c := range seed {
		jar.Set(c)
	}

	back := NewJar()
	for _, c := range jar.All() {
		back.Merge(c)
	}

	if diff := cmp.Diff(jar.All(), back.All()); diff != "" {
		t.Errorf("round-trip changed the jar (-want +got):\n%s", diff)
	}
}

func TestJarDomains(t *testing.T) {
	jar := NewJar()
	jar.Set(engine.Cookie{Name: "a", Value: "1", Domain: "example.com"})
	jar.Set(engine.Cookie{Name: "b", Value: "2", Domain: ".example.com"})
	jar.Set(engine.Cookie{Name: "c", Value: "3", Domain: "192.168.1.10"})

	assert.Equal(t, []string{".example.com", "192.168.1.10"}, jar.Domains())

	assert.True(t, jar.HasDomain(".example.com"))
	assert.True(t, jar.HasDomain("192.168.1.10"))
	assert.False(t, jar.HasDomain("example.com"), "lookups use the dot-prefixed form")
	assert.False(t, jar.HasDomain(".example.org"))
}
