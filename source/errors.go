package source

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// Reason classifies why a lookup failed.
type Reason int

const (
	// ReasonAuth is an authentication/authorization failure, which is a
	// configuration problem and never retryable.
	ReasonAuth Reason = iota
	// ReasonRateLimited means the upstream throttled us, optionally with a
	// server-provided retry-after.
	ReasonRateLimited
	// ReasonUpstream is an upstream protocol/HTTP failure. Retryable is set
	// for the 5xx class, clear for the 4xx class.
	ReasonUpstream
	// ReasonTimeout means the call lost the timeout race.
	ReasonTimeout
	// ReasonUnsupported means the source cannot answer for this TLD.
	ReasonUnsupported
)

func (r Reason) String() string {
	switch r {
	case ReasonAuth:
		return "auth_failed"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonUpstream:
		return "upstream_error"
	case ReasonTimeout:
		return "timeout"
	case ReasonUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// LookupError is the uniform failure every source returns. It carries
// enough structure for the orchestrator to decide between retrying,
// counting toward the circuit breaker, and advancing to the next source.
type LookupError struct {
	Reason     Reason
	Source     string
	StatusCode int
	Retryable  bool
	RetryAfter time.Duration
	Err        error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and the matching classification sentinel so
// errors.Is works against either.
func (e *LookupError) Unwrap() []error {
	chain := make([]error, 0, 2)
	if s := e.sentinel(); s != nil {
		chain = append(chain, s)
	}
	if e.Err != nil {
		chain = append(chain, e.Err)
	}
	return chain
}

func (e *LookupError) sentinel() error {
	switch e.Reason {
	case ReasonAuth:
		return errors.ErrAuthenticationFailed
	case ReasonRateLimited:
		return errors.ErrRateLimited
	case ReasonTimeout:
		return errors.ErrCallTimeout
	case ReasonUnsupported:
		return errors.ErrUnsupportedTLD
	case ReasonUpstream:
		if e.Retryable {
			return errors.ErrUpstreamUnavailable
		}
	}
	return nil
}

// RetryAfterHint exposes the server-provided retry-after to the retry loop.
func (e *LookupError) RetryAfterHint() (time.Duration, bool) {
	if e.Reason == ReasonRateLimited && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// IsRetryable reports whether the failure is worth another attempt against
// the same source.
func (e *LookupError) IsRetryable() bool {
	switch e.Reason {
	case ReasonRateLimited, ReasonTimeout:
		return true
	case ReasonUpstream:
		return e.Retryable
	default:
		return false
	}
}

// CountsForBreaker reports whether a failure indicates upstream ill health.
// Only the timeout and 5xx classes drive the circuit breaker: rate limiting
// is working-as-intended throttling and caller mistakes are our fault.
func CountsForBreaker(err error) bool {
	var le *LookupError
	if stderrors.As(err, &le) {
		switch le.Reason {
		case ReasonTimeout:
			return true
		case ReasonUpstream:
			return le.Retryable
		default:
			return false
		}
	}
	return stderrors.Is(err, errors.ErrUpstreamUnavailable) ||
		stderrors.Is(err, errors.ErrCallTimeout)
}

// NewAuthError reports a credential problem talking to name.
func NewAuthError(name string, err error) *LookupError {
	return &LookupError{Reason: ReasonAuth, Source: name, Err: err}
}

// NewRateLimited reports upstream throttling. retryAfter may be zero when
// the server gave no hint.
func NewRateLimited(name string, retryAfter time.Duration) *LookupError {
	return &LookupError{
		Reason:     ReasonRateLimited,
		Source:     name,
		StatusCode: 429,
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

// NewUpstreamError reports a protocol/HTTP failure. Status 5xx and 0
// (transport failure) are retryable, 4xx is not.
func NewUpstreamError(name string, status int, err error) *LookupError {
	return &LookupError{
		Reason:     ReasonUpstream,
		Source:     name,
		StatusCode: status,
		Retryable:  status == 0 || status >= 500,
		Err:        err,
	}
}

// NewTimeout reports a lost timeout race.
func NewTimeout(name string, err error) *LookupError {
	return &LookupError{Reason: ReasonTimeout, Source: name, Retryable: true, Err: err}
}

// NewUnsupported reports that name cannot answer for tld.
func NewUnsupported(name, tld string) *LookupError {
	return &LookupError{
		Reason: ReasonUnsupported,
		Source: name,
		Err:    fmt.Errorf("tld %q not supported", tld),
	}
}
