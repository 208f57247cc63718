// pkg/engine/cookie.go
package engine

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Cookie is the single representation shared by the HTTP jar and the engine's
// cookie store. The two stores must round-trip it losslessly, so it carries
// only the fields both sides understand. Domain uses the dot-prefixed form
// both jars agree on (".example.com"); a zero Expires means a session cookie.
type Cookie struct {
	Name    string
	Value   string
	Path    string
	Domain  string
	Expires time.Time
}

// AddCookie writes a single cookie into the engine's store.
//
// The engine refuses cookies for a domain other than the currently loaded
// one; callers (the session's push operation) are responsible for navigating
// to the cookie's domain first.
func (h *Handle) AddCookie(ctx context.Context, c Cookie) error {
	return h.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		params := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path)
		if !c.Expires.IsZero() {
			expires := cdp.TimeSinceEpoch(c.Expires)
			params = params.WithExpires(&expires)
		}
		return params.Do(cctx)
	}))
}

// Cookies reads every cookie currently held by the engine, session-internal
// ones included.
func (h *Handle) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := h.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(cctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			cookie.Expires = time.Unix(sec, nsec)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}
