// internal/probe/transport.go
package probe

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Transport defaults. Probes make few, short-lived calls, so the pool stays small.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second

	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 30 * time.Second
)

// TransportConfig holds the transport-level settings of a Probe.
type TransportConfig struct {
	IgnoreTLSErrors bool
	// Proxy routes every call through this URL when set.
	Proxy string
	// HTTP2 negotiates h2 over TLS when the server offers it.
	HTTP2 bool

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

func (c TransportConfig) withDefaults() TransportConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = DefaultTLSHandshakeTimeout
	}
	if c.ResponseHeaderTimeout <= 0 {
		c.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}
	return c
}

// newTransport builds the http.Transport every probe call goes through.
func newTransport(cfg TransportConfig, logger *zap.Logger) (*http.Transport, error) {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: DefaultKeepAliveInterval}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig(cfg),
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ForceAttemptHTTP2:     cfg.HTTP2,
	}

	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q", cfg.Proxy)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else {
		transport.TLSClientConfig.NextProtos = []string{"http/1.1"}
	}
	return transport, nil
}

func tlsConfig(cfg TransportConfig) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.IgnoreTLSErrors,
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}
}
