package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/breaker"
	"github.com/dorukardahan/domain-search-mcp-sub000/config"
	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
	"github.com/dorukardahan/domain-search-mcp-sub000/limiter"
	"github.com/dorukardahan/domain-search-mcp-sub000/metric"
	"github.com/dorukardahan/domain-search-mcp-sub000/pkg/cache"
	"github.com/dorukardahan/domain-search-mcp-sub000/pkg/retry"
	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// SkipPolicy decides, after one source fails, whether the remaining
// registrar sources should be skipped for this query. Protocol fallbacks
// are never skipped; they are the reason the chain exists.
type SkipPolicy func(failed source.Source, err error) bool

// DefaultSkipPolicy skips the remaining registrar APIs after a registrar
// fails non-retryably: a hard vendor-side rejection (bad TLD, account
// problem) is unlikely to succeed at the next vendor, while protocol
// fallbacks answer from the registry itself. A tripped circuit does not
// trigger the skip; it says nothing about the other registrars.
func DefaultSkipPolicy(failed source.Source, err error) bool {
	if failed.Kind() != source.KindRegistrar {
		return false
	}
	if stderrors.Is(err, errors.ErrCircuitOpen) {
		return false
	}
	var le *source.LookupError
	if stderrors.As(err, &le) {
		return !le.IsRetryable()
	}
	return !errors.IsRetryable(err)
}

// ResolveOptions carries per-query hints.
type ResolveOptions struct {
	// Preferred lists source names to try first, ahead of the configured
	// order. Unknown names are ignored.
	Preferred []string

	// Budget is the pricing-quote budget this query draws from. Nil gives
	// the query its own budget from the configured default.
	Budget *Budget
}

// Orchestrator resolves domain queries against an ordered list of sources,
// composing the cache, rate limiters, circuit breakers and retry policy
// into one fallback chain with bounded latency.
type Orchestrator struct {
	cfg      *config.Config
	sources  *source.Registry
	breakers *breaker.Registry
	buckets  *limiter.Registry
	hosts    *limiter.Keyed
	pricing  *limiter.Adaptive
	cache    *cache.TTLLRU[*source.Record]
	retryCfg retry.Config

	signal source.Source
	quotes source.QuoteFetcher
	skip   SkipPolicy

	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithSignalSource installs the best-effort aftermarket/auction signal
// source. It runs outside the priority chain and never delays it.
func WithSignalSource(s source.Source) Option {
	return func(o *Orchestrator) { o.signal = s }
}

// WithQuoteFetcher installs the secondary pricing-quote collaborator.
func WithQuoteFetcher(q source.QuoteFetcher) Option {
	return func(o *Orchestrator) { o.quotes = q }
}

// WithSkipPolicy overrides the registrar skip rule.
func WithSkipPolicy(p SkipPolicy) Option {
	return func(o *Orchestrator) { o.skip = p }
}

// New builds an orchestrator from the config and the registered sources.
// The caller owns the metrics registry; pass nil to run without metrics.
func New(cfg *config.Config, sources *source.Registry, registry *metric.MetricsRegistry, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("config is required"), "Orchestrator", "New", "dependency check")
	}
	if sources == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("source registry is required"), "Orchestrator", "New", "dependency check")
	}

	o := &Orchestrator{
		cfg:     cfg,
		sources: sources,
		buckets: limiter.NewRegistry(),
		hosts:   limiter.NewKeyed(cfg.Resolver.PerHostConcurrency),
		skip:    DefaultSkipPolicy,
		logger:  slog.Default(),
		retryCfg: retry.Config{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.BaseDelay.Duration,
			MaxDelay:     cfg.Retry.MaxDelay.Duration,
			Multiplier:   2.0,
			AddJitter:    true,
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	if registry != nil {
		o.metrics = registry.CoreMetrics()
	}

	var breakerOpts []breaker.Option
	breakerOpts = append(breakerOpts, breaker.WithLogger(o.logger))
	if o.metrics != nil {
		breakerOpts = append(breakerOpts, breaker.WithStateChange(func(name string, _, to breaker.State) {
			o.metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			o.metrics.BreakerTransitionsTotal.WithLabelValues(name, to.String()).Inc()
		}))
	}
	o.breakers = breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		FailureWindow:    cfg.Breaker.FailureWindow.Duration,
		ResetTimeout:     cfg.Breaker.ResetTimeout.Duration,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		CountsFailure:    source.CountsForBreaker,
	}, breakerOpts...)

	var cacheOpts []cache.Option[*source.Record]
	if registry != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics[*source.Record](registry, "results"))
	}
	results, err := cache.New[*source.Record](
		cfg.Cache.Capacity,
		cfg.Cache.TakenTTL.Duration,
		cfg.Cache.SweepInterval.Duration,
		cacheOpts...)
	if err != nil {
		return nil, err
	}
	o.cache = results

	pricing, err := limiter.NewAdaptive("pricing", limiter.AdaptiveConfig{
		MinConcurrency:     1,
		MaxConcurrency:     cfg.Resolver.PerHostConcurrency * 2,
		InitialConcurrency: cfg.Resolver.PerHostConcurrency,
	})
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		pricing.OnLimitChange(func(name string, limit int) {
			o.metrics.AdaptiveConcurrencyLimit.WithLabelValues(name).Set(float64(limit))
		})
	}
	o.pricing = pricing

	return o, nil
}

// Start launches background loops (cache sweep runs from construction; the
// adaptive pricing limiter's evaluation ticker starts here).
func (o *Orchestrator) Start() {
	o.pricing.Start()
}

// Close stops background loops and releases the cache.
func (o *Orchestrator) Close() error {
	o.pricing.Stop()
	return o.cache.Close()
}

// Breakers exposes the breaker registry for health reporting.
func (o *Orchestrator) Breakers() *breaker.Registry { return o.breakers }

// CacheStats exposes result-cache statistics for health reporting.
func (o *Orchestrator) CacheStats() *cache.Statistics { return o.cache.Stats() }

// RateLimiters exposes the per-source token bucket registry for health
// reporting.
func (o *Orchestrator) RateLimiters() *limiter.Registry { return o.buckets }

// ResolveSingle resolves one domain against the priority-ordered source
// chain. Cache hits bypass all limiters and breakers. On total exhaustion
// the returned error names every source attempted.
func (o *Orchestrator) ResolveSingle(ctx context.Context, domain, tld string, opts *ResolveOptions) (*source.Record, error) {
	start := time.Now()

	domain = strings.ToLower(strings.TrimSpace(domain))
	tld = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tld, ".")))
	if err := ValidateQuery(domain, tld); err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &ResolveOptions{}
	}
	budget := opts.Budget
	if budget == nil {
		budget = NewBudget(o.cfg.Resolver.QuoteBudget)
	}

	list := o.priorityList(tld, opts.Preferred)
	if len(list) == 0 {
		return nil, errors.Coded(errors.ErrorInvalid, "unsupported_tld",
			fmt.Errorf("resolve %s.%s: %w", domain, tld, errors.ErrUnsupportedTLD),
			"no configured source supports this TLD; add a registrar or protocol source for it")
	}

	// Cache probe across the priority order; hits bypass everything else.
	for _, s := range list {
		if rec, ok := o.cache.Get(cacheKey(s.Name(), domain, tld)); ok {
			hit := *rec
			hit.FromCache = true
			o.countLookup(hit.Source, "cache_hit", start)
			return &hit, nil
		}
	}

	// The signal lookup runs alongside the chain; its result is merged
	// post-hoc if ready, and its failure is swallowed.
	var signalCh chan *source.Record
	if o.signal != nil && o.signal.Supports(tld) {
		signalCh = make(chan *source.Record, 1)
		go func() {
			sig, err := o.signal.Search(ctx, domain, tld)
			if err != nil {
				o.logger.Debug("signal lookup failed",
					"source", o.signal.Name(), "domain", domain, "tld", tld, "error", err)
				signalCh <- nil
				return
			}
			signalCh <- sig
		}()
	}

	var (
		rec            *source.Record
		winner         source.Source
		attempted      []string
		skipRegistrars bool
	)
	for _, s := range list {
		if skipRegistrars && s.Kind() == source.KindRegistrar {
			attempted = append(attempted, s.Name())
			o.logger.Debug("registrar skipped by policy", "source", s.Name(), "domain", domain, "tld", tld)
			continue
		}

		r, err := o.attempt(ctx, s, domain, tld)
		if err == nil {
			rec, winner = r, s
			break
		}

		attempted = append(attempted, s.Name())
		if o.metrics != nil {
			o.metrics.SourceErrorsTotal.WithLabelValues(s.Name(), sourceErrorCode(err)).Inc()
		}
		o.logger.Warn("source attempt failed",
			"source", s.Name(), "domain", domain, "tld", tld, "error", err)

		if ctx.Err() != nil {
			o.countLookup(s.Name(), "error", start)
			return nil, errors.WrapTransient(ctx.Err(), "Orchestrator", "ResolveSingle", "query context")
		}
		if o.skip(s, err) {
			skipRegistrars = true
		}
	}

	if rec == nil {
		o.countLookup("none", "error", start)
		return nil, exhaustionError(domain, tld, attempted)
	}

	o.enrich(ctx, rec, winner, budget, signalCh)

	ttl := o.cfg.Cache.TakenTTL.Duration
	outcome := "taken"
	if rec.Available {
		ttl = o.cfg.Cache.AvailableTTL.Duration
		outcome = "available"
	}
	cached := *rec
	_ = o.cache.SetWithTTL(cacheKey(winner.Name(), domain, tld), &cached, ttl)

	o.countLookup(winner.Name(), outcome, start)
	return rec, nil
}

// attempt calls one source through its token bucket, per-host concurrency
// bound, circuit breaker and retry loop.
func (o *Orchestrator) attempt(ctx context.Context, s source.Source, domain, tld string) (*source.Record, error) {
	name := s.Name()

	bucket := o.buckets.Bucket(name, o.cfg.SourceRPM(name))
	br := o.breakers.Get(name)
	sem := o.hosts.Get(name)

	return retry.DoWithResult(ctx, o.retryCfg, func() (*source.Record, error) {
		// Every physical attempt consumes a token so retries stay inside
		// the source's pacing, not just the first try.
		waitStart := time.Now()
		if err := bucket.Wait(ctx); err != nil {
			return nil, retry.NonRetryable(
				errors.WrapTransient(err, "Orchestrator", "attempt", "rate limit wait"))
		}
		if o.metrics != nil {
			o.metrics.RateLimitWaitSeconds.WithLabelValues(name).Observe(time.Since(waitStart).Seconds())
		}

		rec, err := limiter.RunResult(ctx, sem, func() (*source.Record, error) {
			return breaker.Do(ctx, br, func(ctx context.Context) (*source.Record, error) {
				return o.callWithTimeout(ctx, s, domain, tld)
			})
		})
		if err != nil {
			// Circuit-open and hard failures must not burn retry budget;
			// advancing to the next source is the orchestrator's job.
			if !retryableAttempt(err) {
				return nil, retry.NonRetryable(err)
			}
			return nil, err
		}
		return rec, nil
	})
}

// callWithTimeout races the source call against the per-call timeout. The
// loser's eventual result is discarded via the buffered channel; it never
// mutates shared state.
func (o *Orchestrator) callWithTimeout(ctx context.Context, s source.Source, domain, tld string) (*source.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Resolver.CallTimeout.Duration)
	defer cancel()

	type outcome struct {
		rec *source.Record
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		rec, err := s.Search(ctx, domain, tld)
		ch <- outcome{rec, err}
	}()

	select {
	case <-ctx.Done():
		return nil, source.NewTimeout(s.Name(), ctx.Err())
	case out := <-ch:
		return out.rec, out.err
	}
}

// priorityList builds the source order for one query: preferred hints
// first, then the configured registrar order, then protocol fallbacks,
// all filtered to sources that support the TLD. Signal sources never join
// the chain.
func (o *Orchestrator) priorityList(tld string, preferred []string) []source.Source {
	var list []source.Source
	seen := make(map[string]bool)

	add := func(s source.Source) {
		if s == nil || seen[s.Name()] || s.Kind() == source.KindSignal || !s.Supports(tld) {
			return
		}
		seen[s.Name()] = true
		list = append(list, s)
	}

	for _, name := range preferred {
		if s, ok := o.sources.Get(name); ok {
			add(s)
		}
	}
	for _, name := range o.cfg.Registrars {
		if s, ok := o.sources.Get(name); ok && s.Kind() == source.KindRegistrar {
			add(s)
		}
	}
	for _, s := range o.sources.OfKind(source.KindRegistrar) {
		add(s)
	}
	for _, s := range o.sources.OfKind(source.KindProtocol) {
		add(s)
	}
	return list
}

func (o *Orchestrator) countLookup(sourceName, outcome string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.LookupsTotal.WithLabelValues(sourceName, outcome).Inc()
	o.metrics.LookupDuration.WithLabelValues(sourceName).Observe(time.Since(start).Seconds())
}

func retryableAttempt(err error) bool {
	if stderrors.Is(err, errors.ErrCircuitOpen) {
		return false
	}
	var le *source.LookupError
	if stderrors.As(err, &le) {
		return le.IsRetryable()
	}
	return errors.IsRetryable(err)
}

// sourceErrorCode maps a failed attempt to a low-cardinality metric label.
func sourceErrorCode(err error) string {
	var le *source.LookupError
	if stderrors.As(err, &le) {
		return le.Reason.String()
	}
	if stderrors.Is(err, errors.ErrCircuitOpen) {
		return "circuit_open"
	}
	return errors.CodeOf(err)
}

func cacheKey(sourceName, domain, tld string) string {
	return sourceName + ":" + domain + "." + tld
}

func exhaustionError(domain, tld string, attempted []string) error {
	names := strings.Join(attempted, ", ")
	if names == "" {
		names = "none"
	}
	return errors.Coded(errors.ErrorFatal, "exhausted",
		fmt.Errorf("resolve %s.%s: attempted sources [%s]: %w", domain, tld, names, errors.ErrNoSourceAvailable),
		"every source failed or was skipped; check upstream status before retrying")
}

var (
	domainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	tldRe    = regexp.MustCompile(`^[a-z]{2,24}$`)
)

// ValidateQuery rejects malformed input before any upstream call is made.
func ValidateQuery(domain, tld string) error {
	if !domainRe.MatchString(domain) {
		return errors.Coded(errors.ErrorInvalid, "invalid_domain",
			fmt.Errorf("%w: %q", errors.ErrInvalidDomain, domain),
			"domain labels are 1-63 characters of a-z, 0-9 and inner hyphens")
	}
	if !tldRe.MatchString(tld) {
		return errors.Coded(errors.ErrorInvalid, "invalid_domain",
			fmt.Errorf("%w: tld %q", errors.ErrInvalidDomain, tld),
			"TLD must be 2-24 ASCII letters")
	}
	return nil
}

func breakerStateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateClosed:
		return 0
	case breaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
