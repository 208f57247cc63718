// pkg/session/jar.go
package session

import (
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/xkilldash9x/websession/pkg/engine"
)

// Jar is the session's cookie custodian. It implements http.CookieJar for the
// HTTP client, and on top of that supports what the engine transfer needs and
// the standard library jar cannot do: enumerating every stored cookie and
// listing the domains present.
//
// Entries are keyed by (name, domain, path), with domains held in the
// dot-prefixed form shared with the engine's store. Only the fields the
// shared Cookie model carries are tracked; Secure/HttpOnly attributes are
// deliberately not part of the transfer contract.
type Jar struct {
	mu      sync.Mutex
	entries map[jarKey]engine.Cookie
}

type jarKey struct {
	name   string
	domain string
	path   string
}

// NewJar creates an empty jar.
func NewJar() *Jar {
	return &Jar{entries: make(map[jarKey]engine.Cookie)}
}

// SetCookies implements http.CookieJar. Called by the HTTP client for every
// response carrying Set-Cookie headers.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := u.Hostname()

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		domain, ok := setCookieDomain(c.Domain, host)
		if !ok {
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		key := jarKey{name: c.Name, domain: domain, path: path}

		// MaxAge < 0 is an explicit delete; an already-elapsed Expires too.
		var expires time.Time
		switch {
		case c.MaxAge < 0:
			delete(j.entries, key)
			continue
		case c.MaxAge > 0:
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		default:
			expires = c.Expires
		}
		if !expires.IsZero() && expires.Before(time.Now()) {
			delete(j.entries, key)
			continue
		}

		j.entries[key] = engine.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    path,
			Domain:  domain,
			Expires: expires,
		}
	}
}

// Cookies implements http.CookieJar, returning the cookies applicable to a
// request for u. Expired entries are pruned as they are encountered.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	host := u.Hostname()
	path := u.Path
	if path == "" {
		path = "/"
	}
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	var out []*http.Cookie
	for key, c := range j.entries {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			delete(j.entries, key)
			continue
		}
		if !domainMatch(host, c.Domain) || !pathMatch(path, c.Path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}

	// Deterministic order keeps the Cookie header stable across requests.
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Set stores a cookie directly, replacing any entry with the same
// (name, domain, path).
func (j *Jar) Set(c engine.Cookie) {
	if c.Path == "" {
		c.Path = "/"
	}
	c.Domain = canonicalDomain(c.Domain, c.Domain)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[jarKey{name: c.Name, domain: c.Domain, path: c.Path}] = c
}

// Merge stores a cookie keyed by (name, domain) only: any existing entry with
// that name and domain is replaced regardless of path. Last write wins. This
// is the merge rule for cookies pulled back from the engine.
func (j *Jar) Merge(c engine.Cookie) {
	if c.Path == "" {
		c.Path = "/"
	}
	c.Domain = canonicalDomain(c.Domain, c.Domain)

	j.mu.Lock()
	defer j.mu.Unlock()
	for key := range j.entries {
		if key.name == c.Name && key.domain == c.Domain {
			delete(j.entries, key)
		}
	}
	j.entries[jarKey{name: c.Name, domain: c.Domain, path: c.Path}] = c
}

// All returns every live cookie in the jar.
func (j *Jar) All() []engine.Cookie {
	now := time.Now()

	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]engine.Cookie, 0, len(j.entries))
	for key, c := range j.entries {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			delete(j.entries, key)
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Domain != out[b].Domain {
			return out[a].Domain < out[b].Domain
		}
		return out[a].Name < out[b].Name
	})
	return out
}

// Domains lists the distinct domains present in the jar, dot-prefixed form.
func (j *Jar) Domains() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	seen := make(map[string]struct{})
	for key := range j.entries {
		seen[key.domain] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// HasDomain reports whether the jar holds any cookie for exactly domain
// (compare in the dot-prefixed form, e.g. ".example.com").
func (j *Jar) HasDomain(domain string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for key := range j.entries {
		if key.domain == domain {
			return true
		}
	}
	return false
}

// setCookieDomain validates the Domain attribute of a received Set-Cookie
// against the responding host and returns the canonical stored form. The jar
// is the session's authentication store, so a response may only scope a
// cookie to its own host or a parent of it, and never to a bare public
// suffix; anything else is dropped, the same way the standard jar drops it.
func setCookieDomain(domain, host string) (string, bool) {
	host = strings.ToLower(host)
	d := strings.ToLower(strings.TrimPrefix(domain, "."))
	if d == "" {
		return canonicalDomain("", host), true
	}

	// An IP host can only receive host-only cookies.
	if net.ParseIP(host) != nil {
		if d == host {
			return d, true
		}
		return "", false
	}

	// A domain that is itself a public suffix ("com", "co.uk") would match
	// every site under it. Allowed only when the host IS that suffix, which
	// covers intranet-style hosts like "localhost".
	if ps, _ := publicsuffix.PublicSuffix(d); ps == d && host != d {
		return "", false
	}

	if host != d && !strings.HasSuffix(host, "."+d) {
		return "", false
	}
	return canonicalDomain(d, host), true
}

// canonicalDomain normalizes a cookie domain into the shared dot-prefixed
// form. An empty domain falls back to the request host. IP addresses and
// dotless hosts (localhost) stay bare: a dot prefix only makes sense for
// registrable domains.
func canonicalDomain(domain, host string) string {
	d := strings.ToLower(strings.TrimPrefix(domain, "."))
	if d == "" {
		d = strings.ToLower(host)
	}
	if d == "" {
		return ""
	}
	if net.ParseIP(d) != nil || !strings.Contains(d, ".") {
		return d
	}
	return "." + d
}

// domainMatch reports whether a request host matches a stored cookie domain:
// exact match, or the host is a subdomain of a dot-prefixed domain.
func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	d := strings.TrimPrefix(domain, ".")
	return host == d || strings.HasSuffix(host, "."+d)
}

// pathMatch implements prefix path scoping, "/" matching everything.
func pathMatch(reqPath, cookiePath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	return strings.HasPrefix(reqPath, cookiePath)
}
