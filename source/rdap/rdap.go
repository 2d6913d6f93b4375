// Package rdap implements a registry-protocol availability source over
// RDAP (RFC 9082). RDAP answers availability only: a 404 from the registry
// means the domain is unregistered, a 200 means it is taken. No pricing.
package rdap

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// Name is the source identifier used in cache keys and breaker names.
const Name = "rdap"

// defaultBaseURLs maps TLDs to their registry RDAP endpoints. The set is
// deliberately small; unlisted TLDs are unsupported and fall through to
// WHOIS.
var defaultBaseURLs = map[string]string{
	"com": "https://rdap.verisign.com/com/v1",
	"net": "https://rdap.verisign.com/net/v1",
	"org": "https://rdap.publicinterestregistry.org/rdap",
	"io":  "https://rdap.nic.io",
	"dev": "https://pubapi.registry.google/rdap",
	"app": "https://pubapi.registry.google/rdap",
}

// Config tunes the RDAP source. Zero values fall back to defaults.
type Config struct {
	// BaseURLs overrides the per-TLD endpoint table.
	BaseURLs map[string]string

	// Timeout bounds one HTTP request. Default 10s.
	Timeout time.Duration

	// RequestsPerSecond is the politeness rate toward the registries.
	// Default 2.
	RequestsPerSecond float64

	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

// Source queries registry RDAP endpoints.
type Source struct {
	client  *http.Client
	baseURL map[string]string
	limiter *rate.Limiter
}

// New creates an RDAP source.
func New(cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	urls := cfg.BaseURLs
	if urls == nil {
		urls = defaultBaseURLs
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Source{
		client:  client,
		baseURL: urls,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

func (s *Source) Name() string { return Name }

func (s *Source) Kind() source.Kind { return source.KindProtocol }

func (s *Source) Supports(tld string) bool {
	_, ok := s.baseURL[tld]
	return ok
}

func (s *Source) Search(ctx context.Context, domain, tld string) (*source.Record, error) {
	base, ok := s.baseURL[tld]
	if !ok {
		return nil, source.NewUnsupported(Name, tld)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, source.NewTimeout(Name, err)
	}

	url := fmt.Sprintf("%s/domain/%s.%s", base, domain, tld)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, source.NewUpstreamError(Name, 0, err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := s.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, source.NewTimeout(Name, err)
		}
		return nil, source.NewUpstreamError(Name, 0, err)
	}
	defer resp.Body.Close()
	// Drain so the connection is reusable; the body content is irrelevant
	// for availability.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return s.record(domain, tld, true), nil
	case resp.StatusCode == http.StatusOK:
		return s.record(domain, tld, false), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, source.NewRateLimited(Name, parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, source.NewAuthError(Name, fmt.Errorf("status %d from %s", resp.StatusCode, base))
	default:
		return nil, source.NewUpstreamError(Name, resp.StatusCode,
			fmt.Errorf("unexpected status from %s", base))
	}
}

func (s *Source) record(domain, tld string, available bool) *source.Record {
	return &source.Record{
		Domain:    domain,
		TLD:       tld,
		Available: available,
		Source:    Name,
		CheckedAt: time.Now(),
	}
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
// The HTTP-date form is rare on RDAP endpoints and is treated as no hint.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
