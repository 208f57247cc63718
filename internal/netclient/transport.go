// internal/netclient/transport.go

// Package netclient builds the HTTP transport the session's lightweight mode
// rides on: tuned dialer, connection pool, per-scheme proxy selection, and
// HTTP/2 support.
package netclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Defaults for the TCP/TLS/HTTP layers. Pool sizes are modest: a session
// drives one logical browsing flow, not a scanning fan-out.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout        = 30 * time.Second

	DefaultMaxIdleConns        = 20
	DefaultMaxIdleConnsPerHost = 4
	DefaultIdleConnTimeout     = 90 * time.Second
)

// Config holds the transport-level knobs the session exposes.
type Config struct {
	// Proxies maps a request scheme ("http", "https") to a proxy URI,
	// mirroring the session's proxy configuration. Empty means direct
	// (environment proxies still apply).
	Proxies map[string]string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// ForceHTTP2 upgrades the transport to negotiate h2.
	ForceHTTP2 bool

	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration

	Logger *zap.Logger
}

// NewTransport builds an *http.Transport from cfg, falling back to the
// package defaults for any zero field.
func NewTransport(cfg *Config) *http.Transport {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("netclient")

	tlsHandshake := cfg.TLSHandshakeTimeout
	if tlsHandshake <= 0 {
		tlsHandshake = DefaultTLSHandshakeTimeout
	}
	respHeader := cfg.ResponseHeaderTimeout
	if respHeader <= 0 {
		respHeader = DefaultResponseHeaderTimeout
	}
	idle := cfg.IdleConnTimeout
	if idle <= 0 {
		idle = DefaultIdleConnTimeout
	}

	dialer := &net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAliveInterval,
	}

	transport := &http.Transport{
		Proxy:                 proxyFunc(cfg.Proxies, logger),
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: respHeader,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       idle,
	}

	if cfg.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			// h1 still works; note it and carry on.
			logger.Warn("Could not enable HTTP/2 on transport.", zap.Error(err))
		}
	}

	return transport
}

// proxyFunc selects a proxy per request scheme from the session's proxy
// mapping, deferring to the environment when the mapping has no entry.
func proxyFunc(proxies map[string]string, logger *zap.Logger) func(*http.Request) (*url.URL, error) {
	if len(proxies) == 0 {
		return http.ProxyFromEnvironment
	}
	parsed := make(map[string]*url.URL, len(proxies))
	for scheme, raw := range proxies {
		u, err := url.Parse(raw)
		if err != nil {
			logger.Warn("Ignoring unparseable proxy URI.", zap.String("scheme", scheme), zap.Error(err))
			continue
		}
		parsed[scheme] = u
	}
	return func(req *http.Request) (*url.URL, error) {
		if u, ok := parsed[req.URL.Scheme]; ok {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}
}
