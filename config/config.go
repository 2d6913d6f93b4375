package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// Duration wraps time.Duration so JSON configs can say "30s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts either a duration string ("30s") or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	case float64:
		d.Duration = time.Duration(value)
		return nil
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
}

// MarshalJSON emits the string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// SourceConfig is the per-source tuning block.
type SourceConfig struct {
	// RequestsPerMinute sizes the source's token bucket.
	RequestsPerMinute int `json:"requestsPerMinute"`
}

// BreakerConfig tunes the circuit breakers guarding upstream sources.
type BreakerConfig struct {
	FailureThreshold int      `json:"failureThreshold"`
	FailureWindow    Duration `json:"failureWindow"`
	ResetTimeout     Duration `json:"resetTimeout"`
	SuccessThreshold int      `json:"successThreshold"`
}

// CacheConfig tunes the result cache. Available domains get a shorter TTL
// than taken ones since availability is more likely to change.
type CacheConfig struct {
	Capacity      int      `json:"capacity"`
	AvailableTTL  Duration `json:"availableTTL"`
	TakenTTL      Duration `json:"takenTTL"`
	SweepInterval Duration `json:"sweepInterval"`
}

// RetryConfig tunes per-source retry behavior.
type RetryConfig struct {
	MaxAttempts int      `json:"maxAttempts"`
	BaseDelay   Duration `json:"baseDelay"`
	MaxDelay    Duration `json:"maxDelay"`
}

// ResolverConfig tunes the orchestrator itself.
type ResolverConfig struct {
	// CallTimeout bounds one upstream search call.
	CallTimeout Duration `json:"callTimeout"`

	// PerHostConcurrency bounds parallel calls per upstream host.
	PerHostConcurrency int `json:"perHostConcurrency"`

	// BatchConcurrency is the default worker count for bulk lookups.
	BatchConcurrency int `json:"batchConcurrency"`

	// QuoteBudget caps secondary pricing calls per batch; 0 disables
	// quotes, -1 means unlimited.
	QuoteBudget int `json:"quoteBudget"`
}

// Config is the complete application configuration.
type Config struct {
	// Registrars is the default registrar fallback order.
	Registrars []string `json:"registrars"`

	// Sources holds per-source tuning keyed by source name.
	Sources map[string]SourceConfig `json:"sources"`

	Breaker  BreakerConfig  `json:"breaker"`
	Cache    CacheConfig    `json:"cache"`
	Retry    RetryConfig    `json:"retry"`
	Resolver ResolverConfig `json:"resolver"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel"`
}

// Default returns a config with production defaults.
func Default() *Config {
	return &Config{
		Sources: map[string]SourceConfig{
			"rdap":  {RequestsPerMinute: 120},
			"whois": {RequestsPerMinute: 60},
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			FailureWindow:    Duration{60 * time.Second},
			ResetTimeout:     Duration{30 * time.Second},
			SuccessThreshold: 2,
		},
		Cache: CacheConfig{
			Capacity:      10000,
			AvailableTTL:  Duration{5 * time.Minute},
			TakenTTL:      Duration{time.Hour},
			SweepInterval: Duration{60 * time.Second},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   Duration{200 * time.Millisecond},
			MaxDelay:    Duration{5 * time.Second},
		},
		Resolver: ResolverConfig{
			CallTimeout:        Duration{10 * time.Second},
			PerHostConcurrency: 4,
			BatchConcurrency:   8,
			QuoteBudget:        5,
		},
		LogLevel: "info",
	}
}

// Load reads a JSON config file, layers it over the defaults, applies
// environment overrides and validates the result. An empty path returns the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Config", "Load", "config file read")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "config file parse")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays DOMAINSEARCH_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOMAINSEARCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DOMAINSEARCH_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Capacity = n
		}
	}
	if v := os.Getenv("DOMAINSEARCH_QUOTE_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Resolver.QuoteBudget = n
		}
	}
	if v := os.Getenv("DOMAINSEARCH_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Resolver.CallTimeout = Duration{d}
		}
	}
}

// Validate checks the config for values that would misbehave at runtime.
func (c *Config) Validate() error {
	fail := func(msg string) error {
		return errors.WrapInvalid(fmt.Errorf("%s", msg), "Config", "Validate", "config validation")
	}

	if c.Cache.Capacity <= 0 {
		return fail("cache.capacity must be positive")
	}
	if c.Cache.AvailableTTL.Duration <= 0 || c.Cache.TakenTTL.Duration <= 0 {
		return fail("cache TTLs must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fail("retry.maxAttempts must be positive")
	}
	if c.Retry.BaseDelay.Duration <= 0 {
		return fail("retry.baseDelay must be positive")
	}
	if c.Resolver.CallTimeout.Duration <= 0 {
		return fail("resolver.callTimeout must be positive")
	}
	if c.Resolver.PerHostConcurrency <= 0 {
		return fail("resolver.perHostConcurrency must be positive")
	}
	if c.Resolver.QuoteBudget < -1 {
		return fail("resolver.quoteBudget must be >= -1")
	}
	for name, src := range c.Sources {
		if src.RequestsPerMinute <= 0 {
			return fail(fmt.Sprintf("sources.%s.requestsPerMinute must be positive", name))
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fail(fmt.Sprintf("unknown logLevel %q", c.LogLevel))
	}
	return nil
}

// SourceRPM returns the configured requests-per-minute for a source,
// falling back to a conservative default for unconfigured sources.
func (c *Config) SourceRPM(name string) int {
	if src, ok := c.Sources[name]; ok {
		return src.RequestsPerMinute
	}
	return 30
}
