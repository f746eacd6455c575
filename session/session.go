// Package session implements the HTTP session manager of spec.md §4.J: one
// shared connection pool per process, a curl-style DNS override resolver,
// and a token-bucket outbound rate limit. Grounded on the teacher's
// tokenBucketLimiter (agent/rate_limiter_token_bucket.go) for the rate
// limiting shape.
package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the §4.J tunables. Package config applies an `ARGO_PROXY_*`
// environment override to each connection, timeout and DNS field;
// RequestsPerSecond and Burst have no environment override.
type Config struct {
	TotalConnections   int
	ConnectionsPerHost int
	KeepAliveTimeout   time.Duration
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	TotalTimeout       time.Duration
	DNSCacheTTL        time.Duration

	// RequestsPerSecond/Burst bound the outbound rate to Argo; zero disables
	// limiting.
	RequestsPerSecond float64
	Burst             int
}

func DefaultConfig() Config {
	return Config{
		TotalConnections:   100,
		ConnectionsPerHost: 10,
		KeepAliveTimeout:   90 * time.Second,
		ConnectTimeout:     10 * time.Second,
		ReadTimeout:        60 * time.Second,
		TotalTimeout:       120 * time.Second,
		DNSCacheTTL:        5 * time.Minute,
	}
}

// Session is the process-wide HTTP client plus its rate limiter. It is the
// sole point of outbound network configuration (spec.md §4.J); every
// upstream call (Argo requests, image fetches) goes through it.
type Session struct {
	client  *http.Client
	limiter *rate.Limiter
	dns     *DNSOverride
}

// New builds a Session. dns may be nil to use the default resolver only.
func New(cfg Config, dns *DNSOverride) *Session {
	if dns == nil {
		dns = NewDNSOverride(nil)
	}

	transport := &http.Transport{
		MaxConnsPerHost:     cfg.ConnectionsPerHost,
		MaxIdleConns:        cfg.TotalConnections,
		MaxIdleConnsPerHost: cfg.ConnectionsPerHost,
		IdleConnTimeout:     cfg.KeepAliveTimeout,
		DialContext:         dns.DialContext(cfg.ConnectTimeout),
		TLSClientConfig:     &tls.Config{},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Session{
		client:  &http.Client{Transport: transport, Timeout: cfg.TotalTimeout},
		limiter: limiter,
		dns:     dns,
	}
}

// Do issues req, first blocking on the outbound rate limiter (if any) and
// respecting ctx cancellation — one of spec.md §5's suspension points.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("session: rate limit wait: %w", err)
		}
	}
	return s.client.Do(req)
}

// Client exposes the underlying *http.Client for callers (e.g. the image
// pipeline's httptest-based tests) that need it directly.
func (s *Session) Client() *http.Client { return s.client }

// DNSOverride mirrors curl --resolve: a {host:port -> ip} table consulted
// before falling back to the system resolver (spec.md §4.J). This lets the
// proxy dial a local endpoint while preserving the TLS SNI hostname for
// tunnelled upstream deployments.
type DNSOverride struct {
	mu    sync.RWMutex
	table map[string]string // "host:port" -> ip
}

func NewDNSOverride(entries map[string]string) *DNSOverride {
	table := make(map[string]string, len(entries))
	for k, v := range entries {
		table[strings.ToLower(k)] = v
	}
	return &DNSOverride{table: table}
}

// Set adds or replaces one override entry, e.g. Set("api.openai.com:443",
// "127.0.0.1").
func (d *DNSOverride) Set(hostport, ip string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table[strings.ToLower(hostport)] = ip
}

func (d *DNSOverride) lookup(hostport string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ip, ok := d.table[strings.ToLower(hostport)]
	return ip, ok
}

// DialContext returns a net.Dialer.DialContext-compatible function that
// consults the override table first, then falls back to the default
// resolver. The SNI hostname used for TLS is unaffected — only the dialled
// address changes.
func (d *DNSOverride) DialContext(connectTimeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if ip, ok := d.lookup(addr); ok {
			_, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			addr = net.JoinHostPort(ip, port)
		}
		return dialer.DialContext(ctx, network, addr)
	}
}
