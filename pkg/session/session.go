// pkg/session/session.go

// Package session provides the dual-mode web session: a stateful HTTP client
// and a lazily-started browser engine presented as one logical session, with
// cookie transfer between the two.
//
// The lightweight HTTP mode handles everything that does not need script
// execution. When a page requires JavaScript, the caller pushes the session's
// cookies into the engine, drives the browser directly, and pulls the
// engine's cookies back to resume HTTP mode with the same authentication
// state.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/websession/internal/netclient"
	"github.com/xkilldash9x/websession/pkg/engine"
)

// Config is the session construction surface.
type Config struct {
	// EngineExecPath is the browser executable for browser mode. Empty lets
	// the engine locate one itself.
	EngineExecPath string
	// EngineKind selects the engine variant; validated on first engine use.
	EngineKind engine.Kind
	// DefaultTimeout bounds the engine's explicit waits.
	DefaultTimeout time.Duration
	// RequestTimeout bounds each HTTP request end to end.
	RequestTimeout time.Duration
	// Headers seeds the session headers applied to every HTTP request and
	// transferred once at engine start.
	Headers map[string]string
	// Proxies maps a scheme ("http", "https") to a proxy URI, applied to the
	// HTTP client immediately and to the engine at its one-time start.
	Proxies map[string]string
	// InsecureSkipVerify disables TLS verification on the HTTP client.
	InsecureSkipVerify bool
}

// Session is the dual-mode facade. A Session instance is owned by a single
// goroutine; none of its mutable state (headers, last URL) is locked.
type Session struct {
	cfg    Config
	logger *zap.Logger

	client  *http.Client
	jar     *Jar
	headers map[string]string

	engine  *engine.Handle
	lastURL string

	closeOnce sync.Once
}

// New creates a session. The HTTP side is ready immediately; the browser
// engine is not started until the first browser-mode access.
func New(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EngineKind == "" {
		cfg.EngineKind = engine.KindChromeHeadless
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = netclient.DefaultRequestTimeout
	}

	jar := NewJar()
	transport := netclient.NewTransport(&netclient.Config{
		Proxies:            cfg.Proxies,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ForceHTTP2:         true,
		Logger:             logger,
	})

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	s := &Session{
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", uuid.New().String())),
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.RequestTimeout,
		},
		jar:     jar,
		headers: headers,
	}
	s.logger.Debug("Session created.", zap.String("engine_kind", string(cfg.EngineKind)))
	return s
}

// Jar exposes the session's cookie jar.
func (s *Session) Jar() *Jar { return s.jar }

// LastURL returns the final (post-redirect) URL of the most recent HTTP
// request, or "" when none has been issued.
func (s *Session) LastURL() string { return s.lastURL }

// SetHeader sets a session header applied to every subsequent HTTP request.
// Headers present before the engine's first start are also transferred to it.
func (s *Session) SetHeader(key, value string) { s.headers[key] = value }

// DelHeader removes a session header.
func (s *Session) DelHeader(key string) { delete(s.headers, key) }

// Engine returns the browser engine handle, creating and starting it on
// first access. Headers and proxy configuration are baked into the engine at
// this point and never re-transferred. An unrecognized engine kind surfaces
// as engine.ErrInvalidArgument before any process is spawned.
func (s *Session) Engine(ctx context.Context) (*engine.Handle, error) {
	if s.engine == nil {
		headers := make(map[string]string, len(s.headers))
		for k, v := range s.headers {
			headers[k] = v
		}
		s.engine = engine.New(engine.Config{
			ExecPath:       s.cfg.EngineExecPath,
			Kind:           s.cfg.EngineKind,
			DefaultTimeout: s.cfg.DefaultTimeout,
			Headers:        headers,
			ProxyURL:       s.engineProxy(),
		}, s.logger)
	}
	if err := s.engine.Start(ctx); err != nil {
		return nil, err
	}
	return s.engine, nil
}

// engineProxy picks the proxy the engine should use: https takes precedence
// over http, matching the HTTP client's behavior for secure traffic.
func (s *Session) engineProxy() string {
	if p := s.cfg.Proxies["https"]; p != "" {
		return p
	}
	return s.cfg.Proxies["http"]
}

// -- HTTP verbs --
//
// Every verb funnels through do: session headers applied, final URL recorded,
// body wrapped. Any verb added to this surface must follow the same contract.

// Get issues a GET request.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	return s.do(ctx, http.MethodGet, rawURL, "", nil)
}

// Post issues a POST request with the given body.
func (s *Session) Post(ctx context.Context, rawURL, contentType string, body io.Reader) (*Response, error) {
	return s.do(ctx, http.MethodPost, rawURL, contentType, body)
}

// PostForm issues a POST request with URL-encoded form data.
func (s *Session) PostForm(ctx context.Context, rawURL string, data url.Values) (*Response, error) {
	return s.do(ctx, http.MethodPost, rawURL, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
}

// Put issues a PUT request with the given body.
func (s *Session) Put(ctx context.Context, rawURL, contentType string, body io.Reader) (*Response, error) {
	return s.do(ctx, http.MethodPut, rawURL, contentType, body)
}

// Delete issues a DELETE request.
func (s *Session) Delete(ctx context.Context, rawURL string) (*Response, error) {
	return s.do(ctx, http.MethodDelete, rawURL, "", nil)
}

func (s *Session) do(ctx context.Context, method, rawURL, contentType string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, rawURL, err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}

	wrapped, err := newResponse(resp)
	if err != nil {
		return nil, err
	}

	// Track the final URL after redirects; it is the default target for the
	// next cookie push.
	s.lastURL = resp.Request.URL.String()
	s.logger.Debug("HTTP request completed.",
		zap.String("method", method),
		zap.String("url", s.lastURL),
		zap.Int("status", resp.StatusCode))
	return wrapped, nil
}

// Close tears the session down: the engine process (if one was started) and
// the HTTP client's idle connections. The session is not usable afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.engine != nil {
			s.engine.Shutdown()
		}
		s.client.CloseIdleConnections()
		s.logger.Debug("Session closed.")
	})
}
