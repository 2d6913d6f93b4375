package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	TLDs        []string
	LogLevel    string
	LogFormat   string
	Output      string
	Concurrency int
	Timeout     time.Duration
	ShowMetrics bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
	Names       []string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	var tlds string

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("DOMAINSEARCH_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: DOMAINSEARCH_CONFIG)")

	flag.StringVar(&tlds, "tlds",
		getEnv("DOMAINSEARCH_TLDS", "com"),
		"Comma-separated TLDs to check (env: DOMAINSEARCH_TLDS)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("DOMAINSEARCH_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error; empty defers to config (env: DOMAINSEARCH_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("DOMAINSEARCH_LOG_FORMAT", "text"),
		"Log format: json, text (env: DOMAINSEARCH_LOG_FORMAT)")

	flag.StringVar(&cfg.Output, "output",
		getEnv("DOMAINSEARCH_OUTPUT", "table"),
		"Output format: table, json (env: DOMAINSEARCH_OUTPUT)")

	flag.IntVar(&cfg.Concurrency, "concurrency", 0,
		"Batch concurrency, 0 defers to config")

	flag.DurationVar(&cfg.Timeout, "timeout",
		getEnvDuration("DOMAINSEARCH_TIMEOUT", 2*time.Minute),
		"Overall deadline for the run (env: DOMAINSEARCH_TIMEOUT)")

	flag.BoolVar(&cfg.ShowMetrics, "show-metrics", false,
		"Dump Prometheus metrics to stderr after the run")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	for _, tld := range strings.Split(tlds, ",") {
		tld = strings.TrimSpace(tld)
		if tld != "" {
			cfg.TLDs = append(cfg.TLDs, tld)
		}
	}
	cfg.Names = flag.Args()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"", "debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	validOutputs := []string{"table", "json"}
	if !contains(validOutputs, cfg.Output) {
		return fmt.Errorf("invalid output format: %s", cfg.Output)
	}

	if cfg.Concurrency < 0 {
		return fmt.Errorf("invalid concurrency: %d", cfg.Concurrency)
	}

	if len(cfg.TLDs) == 0 {
		return fmt.Errorf("at least one TLD is required")
	}

	if !cfg.Validate && len(cfg.Names) == 0 {
		return fmt.Errorf("at least one domain name is required")
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Domain Availability and Pricing Lookup

Usage: %s [options] <name> [name...]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Check a single name against .com
  %s example

  # Check several names against multiple TLDs
  %s --tlds=com,io,dev example mycoolstartup

  # JSON output with custom config
  %s --config=/etc/domainsearch/config.json --output=json example

  # Validate configuration only
  %s --config=config.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
