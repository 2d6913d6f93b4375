package limiter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// Sample is one completed call observed by an adaptive limiter.
type Sample struct {
	At      time.Time
	Success bool
	Latency time.Duration
}

// AdaptiveConfig tunes the feedback loop of an Adaptive limiter.
type AdaptiveConfig struct {
	MinConcurrency     int
	MaxConcurrency     int
	InitialConcurrency int

	// EvalInterval is how often the bound is re-evaluated.
	EvalInterval time.Duration

	// MinSamples gates adjustment: no change fires until the window holds
	// at least this many samples. One bad sample must not collapse the
	// bound; only the aggregate matters.
	MinSamples int

	// ErrorThreshold is the error rate over the window beyond which the
	// bound shrinks.
	ErrorThreshold float64

	// LatencyThreshold is the percentile latency beyond which the bound
	// shrinks.
	LatencyThreshold time.Duration

	// LatencyPercentile selects which percentile is compared against
	// LatencyThreshold. Defaults to 0.95.
	LatencyPercentile float64

	// Step is how many permits each adjustment adds or removes.
	Step int

	// WindowSize bounds how many samples are retained between evaluations.
	WindowSize int
}

func (cfg *AdaptiveConfig) withDefaults() {
	if cfg.MinConcurrency <= 0 {
		cfg.MinConcurrency = 1
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 20
	}
	if cfg.InitialConcurrency <= 0 {
		cfg.InitialConcurrency = cfg.MinConcurrency
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = 10 * time.Second
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 10
	}
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = 0.3
	}
	if cfg.LatencyThreshold <= 0 {
		cfg.LatencyThreshold = 5 * time.Second
	}
	if cfg.LatencyPercentile <= 0 || cfg.LatencyPercentile > 1 {
		cfg.LatencyPercentile = 0.95
	}
	if cfg.Step <= 0 {
		cfg.Step = 1
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 200
	}
}

// Adaptive wraps a Concurrency semaphore with a control loop that grows or
// shrinks the bound from a rolling window of recent call outcomes. Sustained
// degradation (error rate or tail latency over threshold) sheds load down to
// MinConcurrency; a healthy window grows the bound toward MaxConcurrency.
type Adaptive struct {
	name string
	cfg  AdaptiveConfig
	sem  *Concurrency

	mu      sync.Mutex
	samples []Sample

	// onLimitChange, if set, observes every bound adjustment.
	onLimitChange func(name string, limit int)

	// Evaluation ticker lifecycle
	lifecycleMu sync.Mutex
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewAdaptive creates an adaptive limiter. The evaluation ticker is not
// running until Start is called, so tests can drive Evaluate directly.
func NewAdaptive(name string, cfg AdaptiveConfig) (*Adaptive, error) {
	cfg.withDefaults()
	if cfg.MinConcurrency > cfg.MaxConcurrency {
		return nil, errors.WrapInvalid(
			fmt.Errorf("min concurrency %d exceeds max %d", cfg.MinConcurrency, cfg.MaxConcurrency),
			"Adaptive", "NewAdaptive", "bounds validation")
	}
	if cfg.InitialConcurrency < cfg.MinConcurrency || cfg.InitialConcurrency > cfg.MaxConcurrency {
		return nil, errors.WrapInvalid(
			fmt.Errorf("initial concurrency %d outside [%d, %d]",
				cfg.InitialConcurrency, cfg.MinConcurrency, cfg.MaxConcurrency),
			"Adaptive", "NewAdaptive", "bounds validation")
	}

	sem, err := NewConcurrency(cfg.InitialConcurrency)
	if err != nil {
		return nil, err
	}

	return &Adaptive{
		name: name,
		cfg:  cfg,
		sem:  sem,
	}, nil
}

// OnLimitChange registers an observer for bound adjustments, used to export
// the bound as a gauge. Must be called before Start.
func (a *Adaptive) OnLimitChange(fn func(name string, limit int)) {
	a.onLimitChange = fn
}

// Name returns the limiter's identifier.
func (a *Adaptive) Name() string { return a.name }

// Limit returns the current concurrency bound.
func (a *Adaptive) Limit() int { return a.sem.Limit() }

// Run executes fn under a permit and feeds the outcome into the sample
// window. The permit is always released, even when fn fails.
func (a *Adaptive) Run(ctx context.Context, fn func() error) error {
	return a.sem.Run(ctx, func() error {
		start := time.Now()
		err := fn()
		a.record(Sample{At: time.Now(), Success: err == nil, Latency: time.Since(start)})
		return err
	})
}

// record appends a sample, dropping the oldest past the window bound.
func (a *Adaptive) record(s Sample) {
	a.mu.Lock()
	a.samples = append(a.samples, s)
	if len(a.samples) > a.cfg.WindowSize {
		a.samples = a.samples[len(a.samples)-a.cfg.WindowSize:]
	}
	a.mu.Unlock()
}

// Evaluate runs one adjustment tick: when the window holds enough samples,
// the bound shrinks on sustained degradation and grows otherwise. The window
// is consumed so each tick judges fresh data.
func (a *Adaptive) Evaluate() {
	a.mu.Lock()
	if len(a.samples) < a.cfg.MinSamples {
		a.mu.Unlock()
		return
	}
	window := a.samples
	a.samples = nil
	a.mu.Unlock()

	failures := 0
	latencies := make([]time.Duration, len(window))
	for i, s := range window {
		if !s.Success {
			failures++
		}
		latencies[i] = s.Latency
	}
	errorRate := float64(failures) / float64(len(window))

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	idx := int(float64(len(latencies)-1) * a.cfg.LatencyPercentile)
	pLatency := latencies[idx]

	current := a.sem.Limit()
	next := current
	if errorRate > a.cfg.ErrorThreshold || pLatency > a.cfg.LatencyThreshold {
		next = current - a.cfg.Step
		if next < a.cfg.MinConcurrency {
			next = a.cfg.MinConcurrency
		}
	} else {
		next = current + a.cfg.Step
		if next > a.cfg.MaxConcurrency {
			next = a.cfg.MaxConcurrency
		}
	}

	if next != current {
		a.sem.SetLimit(next)
		if a.onLimitChange != nil {
			a.onLimitChange(a.name, next)
		}
	}
}

// Start launches the evaluation ticker. Idempotent.
func (a *Adaptive) Start() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	if a.stopCh != nil {
		return
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(a.cfg.EvalInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.Evaluate()
			}
		}
	}(a.stopCh, a.doneCh)
}

// Stop halts the evaluation ticker and waits for it to exit. Idempotent.
func (a *Adaptive) Stop() {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil
	a.doneCh = nil
}
