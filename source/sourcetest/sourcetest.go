// Package sourcetest provides a scripted fake source for tests. Each Search
// call consumes the next scripted step; the last step repeats once the
// script is exhausted.
package sourcetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// Step is one scripted Search outcome.
type Step struct {
	Record *source.Record
	Err    error
	// Delay is applied before the outcome is returned, honoring ctx.
	Delay time.Duration
}

// Available is a shorthand step returning an available record tagged with
// the fake's name.
func Available() Step {
	return Step{Record: &source.Record{Available: true}}
}

// Taken is a shorthand step returning a taken record.
func Taken() Step {
	return Step{Record: &source.Record{Available: false}}
}

// Fail is a shorthand step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Fake is a scripted source.Source implementation.
type Fake struct {
	name           string
	kind           source.Kind
	tlds           map[string]bool // nil means all TLDs
	detectsPremium bool
	quote          *source.Quote
	quoteErr       error

	mu    sync.Mutex
	steps []Step
	calls int
}

// New creates a fake that plays the given steps in order.
func New(name string, kind source.Kind, steps ...Step) *Fake {
	return &Fake{name: name, kind: kind, steps: steps}
}

// WithTLDs restricts Supports to the given TLDs.
func (f *Fake) WithTLDs(tlds ...string) *Fake {
	f.tlds = make(map[string]bool, len(tlds))
	for _, tld := range tlds {
		f.tlds[tld] = true
	}
	return f
}

// WithPremiumDetection marks the fake as natively premium-aware.
func (f *Fake) WithPremiumDetection() *Fake {
	f.detectsPremium = true
	return f
}

// WithQuote makes the fake answer pricing-quote calls.
func (f *Fake) WithQuote(q *source.Quote, err error) *Fake {
	f.quote = q
	f.quoteErr = err
	return f
}

func (f *Fake) Name() string      { return f.name }
func (f *Fake) Kind() source.Kind { return f.kind }

func (f *Fake) Supports(tld string) bool {
	if f.tlds == nil {
		return true
	}
	return f.tlds[tld]
}

func (f *Fake) DetectsPremium() bool { return f.detectsPremium }

// Calls returns how many Search calls the fake has served.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) Search(ctx context.Context, domain, tld string) (*source.Record, error) {
	f.mu.Lock()
	if len(f.steps) == 0 {
		f.mu.Unlock()
		return nil, source.NewUpstreamError(f.name, 0, errors.New("no scripted steps"))
	}
	idx := f.calls
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	step := f.steps[idx]
	f.calls++
	f.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, source.NewTimeout(f.name, ctx.Err())
		case <-timer.C:
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}

	rec := *step.Record
	rec.Domain = domain
	rec.TLD = tld
	rec.Source = f.name
	rec.CheckedAt = time.Now()
	return &rec, nil
}

// Quote implements source.QuoteFetcher when configured via WithQuote.
func (f *Fake) Quote(ctx context.Context, domain, tld string) (*source.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	if f.quote == nil {
		return nil, source.NewUnsupported(f.name, tld)
	}
	q := *f.quote
	return &q, nil
}
