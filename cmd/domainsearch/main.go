// Package main implements the domainsearch command line tool. It checks
// domain-name availability and pricing across registrar and protocol
// sources, with caching, rate limiting, and circuit breaking handled by
// the orchestrator package.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/common/expfmt"

	"github.com/dorukardahan/domain-search-mcp-sub000/config"
	"github.com/dorukardahan/domain-search-mcp-sub000/health"
	"github.com/dorukardahan/domain-search-mcp-sub000/metric"
	"github.com/dorukardahan/domain-search-mcp-sub000/orchestrator"
	"github.com/dorukardahan/domain-search-mcp-sub000/source"
	"github.com/dorukardahan/domain-search-mcp-sub000/source/rdap"
	"github.com/dorukardahan/domain-search-mcp-sub000/source/whois"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "domainsearch"
)

// Exit codes: 0 all lookups succeeded, 1 at least one lookup failed,
// 2 configuration or usage error.
const (
	exitOK     = 0
	exitLookup = 1
	exitConfig = 2
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitConfig)
		}
	}()

	os.Exit(run())
}

func run() int {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		_, _ = fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", os.Args[0])
		return exitConfig
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return exitOK
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return exitOK
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: loading configuration: %v\n", appName, err)
		return exitConfig
	}
	if cliCfg.LogLevel != "" {
		cfg.LogLevel = cliCfg.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: invalid configuration: %v\n", appName, err)
		return exitConfig
	}

	logger := setupLogger(cfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return exitOK
	}

	logger.Info("Starting domain search",
		"names", len(cliCfg.Names),
		"tlds", cliCfg.TLDs,
		"config_path", cliCfg.ConfigPath)

	metrics := metric.NewMetricsRegistry()
	orch, err := buildOrchestrator(cfg, metrics, logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitConfig
	}
	orch.Start()
	defer func() {
		if cerr := orch.Close(); cerr != nil {
			logger.Warn("Shutdown incomplete", "error", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cliCfg.Timeout)
	defer cancel()

	results := resolveAll(ctx, orch, cliCfg)

	if err := printResults(os.Stdout, results, cliCfg.Output); err != nil {
		logger.Error("Writing results failed", "error", err)
		return exitLookup
	}

	reportHealth(logger, orch)

	if cliCfg.ShowMetrics {
		if err := dumpMetrics(os.Stderr, metrics); err != nil {
			logger.Warn("Dumping metrics failed", "error", err)
		}
	}

	for _, r := range results {
		if r.Err != nil {
			return exitLookup
		}
	}
	return exitOK
}

// buildOrchestrator wires the lookup sources and the resolver together.
func buildOrchestrator(cfg *config.Config, metrics *metric.MetricsRegistry, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	sources := source.NewRegistry()
	if err := sources.Register(rdap.New(rdap.Config{
		Timeout: cfg.Resolver.CallTimeout.Duration,
	})); err != nil {
		return nil, fmt.Errorf("registering rdap source: %w", err)
	}
	if err := sources.Register(whois.New(whois.Config{
		Timeout: cfg.Resolver.CallTimeout.Duration,
	})); err != nil {
		return nil, fmt.Errorf("registering whois source: %w", err)
	}

	orch, err := orchestrator.New(cfg, sources, metrics,
		orchestrator.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}
	return orch, nil
}

// resolveAll runs one batch per TLD and flattens the results in query order.
func resolveAll(ctx context.Context, orch *orchestrator.Orchestrator, cliCfg *CLIConfig) []orchestrator.BatchResult {
	results := make([]orchestrator.BatchResult, 0, len(cliCfg.Names)*len(cliCfg.TLDs))
	for _, tld := range cliCfg.TLDs {
		batch := orch.ResolveBatch(ctx, cliCfg.Names, tld, cliCfg.Concurrency)
		results = append(results, batch...)
	}
	return results
}

// reportHealth logs an aggregate health summary after the run. Open
// breakers or a cold cache are normal early on; this is informational.
func reportHealth(logger *slog.Logger, orch *orchestrator.Orchestrator) {
	monitor := health.NewMonitor()
	monitor.Update("breakers", health.FromBreakers(orch.Breakers().States()))
	monitor.Update("cache", health.FromCache(orch.CacheStats()))
	monitor.Update("limiters", health.FromLimiters(orch.RateLimiters()))

	agg := monitor.AggregateHealth(appName)
	logger.Debug("Run health summary",
		"status", agg.Status,
		"message", agg.Message,
		"components", monitor.Count())
}

// dumpMetrics writes the gathered Prometheus metrics in text exposition
// format. There is no HTTP listener; this is the only way metrics leave
// the process.
func dumpMetrics(w io.Writer, metrics *metric.MetricsRegistry) error {
	families, err := metrics.PrometheusRegistry().Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
