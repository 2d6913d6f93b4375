// Package config loads and validates the application configuration: a JSON
// file layered over defaults, with DOMAINSEARCH_* environment overrides.
// The core components receive these values as injected parameters; nothing
// in this package is consulted at lookup time.
package config
