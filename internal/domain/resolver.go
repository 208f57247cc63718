// internal/domain/resolver.go
package domain

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Resolve returns the registered (eTLD+1) domain of rawURL.
//
// Both cookie jars key their entries on the registered domain, so this is the
// unit the session compares when deciding whether the engine must realign
// before a cookie write. We use the Public Suffix List to extract it; this
// correctly handles domains like 'example.co.uk'. Don't roll your own domain
// parser.
//
// If no registered domain can be extracted (a bare IP, an exotic TLD like
// .onion that the PSL treats as a private suffix), fall back to the bare host:
// strip the scheme, then trim at the first ':' (port) and '/' (path). Input
// that does not even look like an address is returned unchanged. Resolve never
// fails; callers rely on always getting a usable string back.
func Resolve(rawURL string) string {
	if host := hostname(rawURL); host != "" {
		// An IP address is its own "domain". The PSL's wildcard rule would
		// otherwise happily split the last two octets off as an eTLD+1.
		if net.ParseIP(host) != nil {
			return host
		}
		if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			return d
		}
		return host
	}
	return rawURL
}

// hostname extracts the bare host from rawURL without requiring a valid URL.
func hostname(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}

	// Structural fallback for strings url.Parse rejects or parses without a
	// host (e.g. a missing scheme).
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	rest, _, _ = strings.Cut(rest, "/")
	rest, _, _ = strings.Cut(rest, ":")
	return strings.TrimSpace(rest)
}
