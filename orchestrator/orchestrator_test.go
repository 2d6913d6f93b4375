package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorukardahan/domain-search-mcp-sub000/config"
	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
	"github.com/dorukardahan/domain-search-mcp-sub000/source"
	"github.com/dorukardahan/domain-search-mcp-sub000/source/rdap"
	"github.com/dorukardahan/domain-search-mcp-sub000/source/sourcetest"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Retry = config.RetryConfig{
		MaxAttempts: 1,
		BaseDelay:   config.Duration{Duration: time.Millisecond},
		MaxDelay:    config.Duration{Duration: 5 * time.Millisecond},
	}
	cfg.Resolver.CallTimeout = config.Duration{Duration: time.Second}
	cfg.Cache.SweepInterval = config.Duration{} // no background sweep in tests
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, reg *source.Registry, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	o, err := New(cfg, reg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func register(t *testing.T, reg *source.Registry, sources ...source.Source) {
	t.Helper()
	for _, s := range sources {
		require.NoError(t, reg.Register(s))
	}
}

func TestResolveSingleFallbackOrder(t *testing.T) {
	a := sourcetest.New("a", source.KindRegistrar, sourcetest.Fail(source.NewUpstreamError("a", 503, nil)))
	b := sourcetest.New("b", source.KindProtocol, sourcetest.Fail(source.NewUpstreamError("b", 404, nil)))
	c := sourcetest.New("c", source.KindProtocol, sourcetest.Available())

	reg := source.NewRegistry()
	register(t, reg, a, b, c)

	o := newTestOrchestrator(t, testConfig(), reg)

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.Equal(t, "c", rec.Source)
	assert.True(t, rec.Available)
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, 1, c.Calls())
}

func TestResolveSingleExhaustionNamesSources(t *testing.T) {
	a := sourcetest.New("a", source.KindProtocol, sourcetest.Fail(source.NewUpstreamError("a", 503, nil)))
	b := sourcetest.New("b", source.KindProtocol, sourcetest.Fail(source.NewUpstreamError("b", 404, nil)))

	reg := source.NewRegistry()
	register(t, reg, a, b)

	o := newTestOrchestrator(t, testConfig(), reg)

	_, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoSourceAvailable)
	assert.Equal(t, "exhausted", errors.CodeOf(err))
	assert.False(t, errors.IsRetryable(err))
	assert.NotEmpty(t, errors.SuggestionOf(err))
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestResolveSingleSkipPolicy(t *testing.T) {
	// A hard vendor rejection from the first registrar skips the second
	// registrar but still reaches the protocol fallback.
	first := sourcetest.New("first", source.KindRegistrar, sourcetest.Fail(source.NewUpstreamError("first", 400, nil)))
	second := sourcetest.New("second", source.KindRegistrar, sourcetest.Available())
	proto := sourcetest.New("proto", source.KindProtocol, sourcetest.Available())

	cfg := testConfig()
	cfg.Registrars = []string{"first", "second"}

	reg := source.NewRegistry()
	register(t, reg, first, second, proto)

	o := newTestOrchestrator(t, cfg, reg)

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.Equal(t, "proto", rec.Source)
	assert.Equal(t, 0, second.Calls(), "second registrar must be skipped")
}

func TestResolveSingleRetryableDoesNotSkip(t *testing.T) {
	first := sourcetest.New("first", source.KindRegistrar, sourcetest.Fail(source.NewUpstreamError("first", 503, nil)))
	second := sourcetest.New("second", source.KindRegistrar, sourcetest.Available())

	cfg := testConfig()
	cfg.Registrars = []string{"first", "second"}

	reg := source.NewRegistry()
	register(t, reg, first, second)

	o := newTestOrchestrator(t, cfg, reg)

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", rec.Source)
}

func TestResolveSinglePreferredFirst(t *testing.T) {
	def := sourcetest.New("default", source.KindRegistrar, sourcetest.Available())
	pref := sourcetest.New("preferred", source.KindRegistrar, sourcetest.Available())

	cfg := testConfig()
	cfg.Registrars = []string{"default", "preferred"}

	reg := source.NewRegistry()
	register(t, reg, def, pref)

	o := newTestOrchestrator(t, cfg, reg)

	rec, err := o.ResolveSingle(context.Background(), "example", "com", &ResolveOptions{
		Preferred: []string{"preferred", "not-registered"},
	})
	require.NoError(t, err)
	assert.Equal(t, "preferred", rec.Source)
	assert.Equal(t, 0, def.Calls())
}

func TestResolveSingleCacheHit(t *testing.T) {
	s := sourcetest.New("s", source.KindProtocol, sourcetest.Available())
	reg := source.NewRegistry()
	register(t, reg, s)

	o := newTestOrchestrator(t, testConfig(), reg)

	first, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Available, second.Available)
	assert.Equal(t, 1, s.Calls(), "cache hit must bypass the source")
}

func TestResolveSingleInvalidInput(t *testing.T) {
	reg := source.NewRegistry()
	register(t, reg, sourcetest.New("s", source.KindProtocol, sourcetest.Available()))
	o := newTestOrchestrator(t, testConfig(), reg)

	for _, bad := range []string{"", "bad_domain", "-leading", "trailing-", "has space"} {
		_, err := o.ResolveSingle(context.Background(), bad, "com", nil)
		assert.ErrorIs(t, err, errors.ErrInvalidDomain, "domain %q", bad)
		assert.Equal(t, "invalid_domain", errors.CodeOf(err))
	}

	_, err := o.ResolveSingle(context.Background(), "example", "c0m", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidDomain)
}

func TestResolveSingleNormalizesInput(t *testing.T) {
	s := sourcetest.New("s", source.KindProtocol, sourcetest.Available())
	reg := source.NewRegistry()
	register(t, reg, s)
	o := newTestOrchestrator(t, testConfig(), reg)

	rec, err := o.ResolveSingle(context.Background(), "  EXAMPLE ", ".COM", nil)
	require.NoError(t, err)
	assert.Equal(t, "example", rec.Domain)
	assert.Equal(t, "com", rec.TLD)
}

func TestResolveSingleUnsupportedTLD(t *testing.T) {
	s := sourcetest.New("s", source.KindProtocol, sourcetest.Available()).WithTLDs("com")
	reg := source.NewRegistry()
	register(t, reg, s)
	o := newTestOrchestrator(t, testConfig(), reg)

	_, err := o.ResolveSingle(context.Background(), "example", "xyz", nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedTLD)
	assert.Equal(t, "unsupported_tld", errors.CodeOf(err))
}

func TestResolveSingleSignalMerge(t *testing.T) {
	// Taken domain from a source without native premium detection: the
	// aftermarket signal merges in once it has resolved.
	primary := sourcetest.New("primary", source.KindRegistrar,
		sourcetest.Step{Record: &source.Record{Available: false}, Delay: 100 * time.Millisecond})
	price := 950.0
	signal := sourcetest.New("auctions", source.KindSignal,
		sourcetest.Step{Record: &source.Record{Aftermarket: true, AftermarketPrice: &price}})

	reg := source.NewRegistry()
	register(t, reg, primary)

	o := newTestOrchestrator(t, testConfig(), reg, WithSignalSource(signal))

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.False(t, rec.Available)
	assert.True(t, rec.Aftermarket)
	require.NotNil(t, rec.AftermarketPrice)
	assert.Equal(t, 950.0, *rec.AftermarketPrice)
}

func TestResolveSingleSignalNeverDelays(t *testing.T) {
	primary := sourcetest.New("primary", source.KindRegistrar, sourcetest.Taken())
	slowSignal := sourcetest.New("auctions", source.KindSignal,
		sourcetest.Step{Record: &source.Record{Aftermarket: true}, Delay: 10 * time.Second})

	reg := source.NewRegistry()
	register(t, reg, primary)

	o := newTestOrchestrator(t, testConfig(), reg, WithSignalSource(slowSignal))

	start := time.Now()
	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, rec.Aftermarket, "unresolved signal must not block or merge")
}

func TestResolveSingleSignalSkippedWhenNativeDetection(t *testing.T) {
	primary := sourcetest.New("primary", source.KindRegistrar,
		sourcetest.Step{Record: &source.Record{Available: false, Premium: true}, Delay: 50 * time.Millisecond}).
		WithPremiumDetection()
	signal := sourcetest.New("auctions", source.KindSignal,
		sourcetest.Step{Record: &source.Record{Aftermarket: true}})

	reg := source.NewRegistry()
	register(t, reg, primary)

	o := newTestOrchestrator(t, testConfig(), reg, WithSignalSource(signal))

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.False(t, rec.Aftermarket, "native premium detection wins over the signal")
}

func TestResolveSingleQuoteGatedByBudget(t *testing.T) {
	s := sourcetest.New("s", source.KindRegistrar, sourcetest.Available())
	price := 12.99
	quotes := sourcetest.New("quotes", source.KindRegistrar).
		WithQuote(&source.Quote{FirstYearPrice: &price, Currency: "USD"}, nil)

	reg := source.NewRegistry()
	register(t, reg, s)

	o := newTestOrchestrator(t, testConfig(), reg, WithQuoteFetcher(quotes))

	spent := NewBudget(0)
	rec, err := o.ResolveSingle(context.Background(), "example", "com", &ResolveOptions{Budget: spent})
	require.NoError(t, err)
	assert.False(t, rec.HasPricing(), "spent budget must deny the quote")

	funded := NewBudget(1)
	rec, err = o.ResolveSingle(context.Background(), "other", "com", &ResolveOptions{Budget: funded})
	require.NoError(t, err)
	require.True(t, rec.HasPricing())
	assert.Equal(t, 12.99, *rec.FirstYearPrice)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, 0, funded.Remaining())
}

func TestRDAPScenarioTwoTLDs(t *testing.T) {
	// No registrar APIs configured, RDAP answers "not found" for both TLDs:
	// two available results sourced from rdap, served from cache afterward.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	rdapSource := rdap.New(rdap.Config{
		BaseURLs:          map[string]string{"com": srv.URL, "io": srv.URL},
		RequestsPerSecond: 1000,
		HTTPClient:        srv.Client(),
	})

	reg := source.NewRegistry()
	require.NoError(t, reg.Register(rdapSource))

	o := newTestOrchestrator(t, testConfig(), reg)

	for _, tld := range []string{"com", "io"} {
		rec, err := o.ResolveSingle(context.Background(), "example", tld, nil)
		require.NoError(t, err, "tld %s", tld)
		assert.True(t, rec.Available)
		assert.Equal(t, "rdap", rec.Source)
		assert.False(t, rec.FromCache)
	}

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.True(t, rec.FromCache)
	assert.Equal(t, "rdap", rec.Source)
}

func TestRetriesConsumeRateLimitTokens(t *testing.T) {
	s := sourcetest.New("s", source.KindProtocol,
		sourcetest.Fail(source.NewUpstreamError("s", 503, nil)),
		sourcetest.Fail(source.NewUpstreamError("s", 503, nil)),
		sourcetest.Available(),
	)
	reg := source.NewRegistry()
	register(t, reg, s)

	cfg := testConfig()
	cfg.Retry.MaxAttempts = 3
	cfg.Sources = map[string]config.SourceConfig{"s": {RequestsPerMinute: 600}}

	o := newTestOrchestrator(t, cfg, reg)

	rec, err := o.ResolveSingle(context.Background(), "example", "com", nil)
	require.NoError(t, err)
	assert.True(t, rec.Available)
	require.Equal(t, 3, s.Calls())

	// Two retries plus the final success are three physical requests, so
	// three tokens leave the bucket, not one.
	bucket, ok := o.RateLimiters().Lookup("s")
	require.True(t, ok)
	assert.InDelta(t, 597.0, bucket.Tokens(), 0.5)
}

func TestResolveBatchPartialResults(t *testing.T) {
	s := sourcetest.New("s", source.KindProtocol,
		sourcetest.Available(),
		sourcetest.Fail(source.NewUpstreamError("s", 400, nil)),
		sourcetest.Available(),
	)
	reg := source.NewRegistry()
	register(t, reg, s)

	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, reg)

	results := o.ResolveBatch(context.Background(), []string{"one", "two", "three"}, "com", 1)
	require.Len(t, results, 3)

	// Concurrency 1 preserves script order: one ok, two failed, three ok.
	assert.Equal(t, "one", results[0].Domain)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, errors.ErrNoSourceAvailable)
	assert.NoError(t, results[2].Err)
	assert.NotNil(t, results[2].Record)
}

func TestResolveBatchCancellationBackfillsResults(t *testing.T) {
	slow := sourcetest.New("s", source.KindProtocol,
		sourcetest.Step{Record: &source.Record{Available: true}, Delay: 200 * time.Millisecond})
	reg := source.NewRegistry()
	register(t, reg, slow)

	o := newTestOrchestrator(t, testConfig(), reg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	domains := []string{"one", "two", "three", "four"}
	results := o.ResolveBatch(ctx, domains, "com", 1)
	require.Len(t, results, 4)

	// Items abandoned in the queue on cancellation must come back as
	// errors, never as empty successes.
	for i, res := range results {
		assert.Equal(t, domains[i], res.Domain, "result %d must keep its domain", i)
		if res.Record == nil {
			assert.Error(t, res.Err, "result %d has no record so it must carry an error", i)
		} else {
			assert.NoError(t, res.Err)
		}
	}
	assert.Error(t, results[3].Err, "the tail of a cancelled batch cannot succeed")
	assert.ErrorIs(t, results[3].Err, context.Canceled)
}

func TestResolveBatchBudgetUnderParallelism(t *testing.T) {
	s := sourcetest.New("s", source.KindRegistrar, sourcetest.Available())
	price := 9.99
	quotes := sourcetest.New("quotes", source.KindRegistrar).
		WithQuote(&source.Quote{FirstYearPrice: &price, Currency: "USD"}, nil)

	reg := source.NewRegistry()
	register(t, reg, s)

	cfg := testConfig()
	cfg.Resolver.QuoteBudget = 2
	cfg.Sources = map[string]config.SourceConfig{"s": {RequestsPerMinute: 600}}

	o := newTestOrchestrator(t, cfg, reg, WithQuoteFetcher(quotes))

	domains := make([]string, 10)
	for i := range domains {
		domains[i] = "domain" + string(rune('a'+i))
	}

	results := o.ResolveBatch(context.Background(), domains, "com", 10)
	require.Len(t, results, 10)

	priced := 0
	for _, res := range results {
		require.NoError(t, res.Err)
		if res.Record.HasPricing() {
			priced++
		}
	}
	assert.Equal(t, 2, priced, "budget of 2 must cap quotes under 10-way parallelism")
}

func TestResolveBatchEmpty(t *testing.T) {
	reg := source.NewRegistry()
	register(t, reg, sourcetest.New("s", source.KindProtocol, sourcetest.Available()))
	o := newTestOrchestrator(t, testConfig(), reg)

	assert.Nil(t, o.ResolveBatch(context.Background(), nil, "com", 4))
}

func TestQualityScore(t *testing.T) {
	price := 9.99
	full := &source.Record{
		FirstYearPrice: &price,
		Currency:       "USD",
		Registrar:      "porkbun",
		Premium:        true,
		PremiumReason:  "registry tier",
	}
	assert.Equal(t, 100, qualityScore(full, source.KindRegistrar))

	bare := &source.Record{Available: true}
	assert.Equal(t, 55, qualityScore(bare, source.KindProtocol))
}

func TestInferPremiumReason(t *testing.T) {
	first, renewal := 200.0, 15.0
	rec := &source.Record{Premium: true, FirstYearPrice: &first, RenewalPrice: &renewal}
	assert.Equal(t, "first-year price well above renewal", inferPremiumReason(rec))

	listed := &source.Record{Premium: true, Aftermarket: true}
	assert.Equal(t, "listed on the aftermarket", inferPremiumReason(listed))

	plain := &source.Record{Premium: true}
	assert.Equal(t, "flagged premium by source", inferPremiumReason(plain))
}
