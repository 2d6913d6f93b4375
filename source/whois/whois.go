// Package whois implements the last-resort availability source over the
// WHOIS protocol (TCP port 43). Response parsing is a deliberately small
// set of "no match" heuristics shared by the major registries; full
// vendor-specific parsing belongs to registrar sources, not here.
package whois

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// Name is the source identifier used in cache keys and breaker names.
const Name = "whois"

// defaultServers maps TLDs to their registry WHOIS hosts.
var defaultServers = map[string]string{
	"com": "whois.verisign-grs.com",
	"net": "whois.verisign-grs.com",
	"org": "whois.publicinterestregistry.org",
	"io":  "whois.nic.io",
	"dev": "whois.nic.google",
	"app": "whois.nic.google",
}

// availablePatterns are the registry phrasings that mean "unregistered".
// Matched case-insensitively against the raw response.
var availablePatterns = []string{
	"no match for",
	"not found",
	"no data found",
	"no entries found",
	"domain not found",
	"is available for registration",
	"status: free",
}

// Dialer matches net.Dialer.DialContext, injectable for tests.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Config tunes the WHOIS source. Zero values fall back to defaults.
type Config struct {
	// Servers overrides the per-TLD WHOIS host table. Entries may carry an
	// explicit port; port 43 is assumed otherwise.
	Servers map[string]string

	// Timeout bounds one query end to end. Default 10s.
	Timeout time.Duration

	// Dial overrides the connection factory, used by tests.
	Dial Dialer
}

// Source queries registry WHOIS servers.
type Source struct {
	servers map[string]string
	timeout time.Duration
	dial    Dialer
}

// New creates a WHOIS source.
func New(cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	servers := cfg.Servers
	if servers == nil {
		servers = defaultServers
	}
	dial := cfg.Dial
	if dial == nil {
		d := &net.Dialer{}
		dial = d.DialContext
	}
	return &Source{servers: servers, timeout: cfg.Timeout, dial: dial}
}

func (s *Source) Name() string { return Name }

func (s *Source) Kind() source.Kind { return source.KindProtocol }

func (s *Source) Supports(tld string) bool {
	_, ok := s.servers[tld]
	return ok
}

func (s *Source) Search(ctx context.Context, domain, tld string) (*source.Record, error) {
	host, ok := s.servers[tld]
	if !ok {
		return nil, source.NewUnsupported(Name, tld)
	}
	if !strings.Contains(host, ":") {
		host += ":43"
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dial(ctx, "tcp", host)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, source.NewTimeout(Name, err)
		}
		return nil, source.NewUpstreamError(Name, 0, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	fqdn := domain + "." + tld
	if _, err := fmt.Fprintf(conn, "%s\r\n", fqdn); err != nil {
		return nil, source.NewUpstreamError(Name, 0, err)
	}

	// Registry responses are small; the cap guards against a misbehaving
	// server streaming forever.
	raw, err := io.ReadAll(io.LimitReader(conn, 1<<16))
	if err != nil {
		if isTimeout(err) {
			return nil, source.NewTimeout(Name, err)
		}
		return nil, source.NewUpstreamError(Name, 0, err)
	}
	if len(raw) == 0 {
		return nil, source.NewUpstreamError(Name, 0, fmt.Errorf("empty response from %s", host))
	}

	return &source.Record{
		Domain:    domain,
		TLD:       tld,
		Available: isAvailable(string(raw)),
		Source:    Name,
		CheckedAt: time.Now(),
	}, nil
}

func isAvailable(response string) bool {
	lower := strings.ToLower(response)
	for _, pattern := range availablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
