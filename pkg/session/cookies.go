// pkg/session/cookies.go
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/websession/internal/domain"
)

// PushCookiesToEngine copies the session's cookies into the engine's store
// and leaves the engine navigated at targetURL. An empty targetURL means the
// last URL fetched over HTTP.
//
// The engine only accepts cookie writes for the domain it currently has
// loaded. So the order here matters: if the jar holds a cookie for the
// target's registered domain and the engine is sitting on a different one,
// the engine first navigates to the bare target domain, then every jar
// cookie is written, then the engine navigates to the real target. When the
// jar has no cookie for the target domain, no alignment navigation happens
// even if the engine is elsewhere; writes for foreign domains may then be
// refused by the engine and surface as errors.
func (s *Session) PushCookiesToEngine(ctx context.Context, targetURL string) error {
	if targetURL == "" {
		targetURL = s.lastURL
	}
	if targetURL == "" {
		return fmt.Errorf("no target URL: pass one or issue an HTTP request first")
	}

	eng, err := s.Engine(ctx)
	if err != nil {
		return err
	}

	current, err := eng.CurrentURL(ctx)
	if err != nil {
		return err
	}
	engineDomain := domain.Resolve(current)
	targetDomain := domain.Resolve(targetURL)

	if s.jar.HasDomain("."+targetDomain) && engineDomain != targetDomain {
		s.logger.Debug("Aligning engine domain before cookie transfer.",
			zap.String("engine_domain", engineDomain),
			zap.String("target_domain", targetDomain))
		if err := eng.Navigate(ctx, "http://"+targetDomain); err != nil {
			return err
		}
	}

	cookies := s.jar.All()
	for _, c := range cookies {
		if err := eng.AddCookie(ctx, c); err != nil {
			// Not transactional: cookies written before this one stay in the
			// engine's store.
			return fmt.Errorf("transferring cookie %q for %q: %w", c.Name, c.Domain, err)
		}
	}
	s.logger.Debug("Cookies pushed to engine.", zap.Int("count", len(cookies)))

	return eng.Navigate(ctx, targetURL)
}

// PullCookiesFromEngine merges every cookie currently held by the engine into
// the session's jar, keyed by (name, domain), last write wins.
func (s *Session) PullCookiesFromEngine(ctx context.Context) error {
	eng, err := s.Engine(ctx)
	if err != nil {
		return err
	}
	cookies, err := eng.Cookies(ctx)
	if err != nil {
		return err
	}
	for _, c := range cookies {
		s.jar.Merge(c)
	}
	s.logger.Debug("Cookies pulled from engine.", zap.Int("count", len(cookies)))
	return nil
}
