// Package domainsearch provides a resilient lookup core for domain-name
// availability and pricing.
//
// A single query ("is example.com available, and what does it cost?") fans
// out across registrar APIs and open protocols (RDAP, WHOIS), each of which
// rate-limits aggressively, fails in bursts, and returns partial data. The
// packages here wrap that messy upstream surface in a predictable pipeline.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          Orchestrator               │  priority fallback,
//	│  (resolve, batch, quote budgets)    │  enrichment, caching
//	└─────────────────────────────────────┘
//	           ↓ guards every call with
//	┌─────────────────────────────────────┐
//	│   Limiters + Circuit Breakers       │  token buckets, per-host
//	│  (limiter, breaker, pkg/retry)      │  concurrency, retries
//	└─────────────────────────────────────┘
//	           ↓ calls
//	┌─────────────────────────────────────┐
//	│          Sources                    │  rdap, whois, registrar
//	│   (source, source/rdap, ...)        │  adapters
//	└─────────────────────────────────────┘
//
// # Packages
//
// Resolution core:
//   - orchestrator: priority-ordered source fallback, batch lookups,
//     quote budgets, result enrichment
//   - source: the Source interface, result Record, classified lookup
//     errors; source/rdap and source/whois are the built-in adapters
//
// Resilience:
//   - limiter: token buckets, fixed and keyed concurrency limiters, and
//     an adaptive limiter that tunes itself from observed latency/errors
//   - breaker: per-source circuit breakers with single-probe half-open
//   - pkg/retry: exponential backoff with jitter and retry-after hints
//
// Infrastructure:
//   - pkg/cache: TTL-aware LRU result cache
//   - pkg/worker: bounded worker pool for batch lookups
//   - config: JSON configuration with environment overrides
//   - errors: classified errors (transient, fatal, invalid)
//   - metric: Prometheus metrics
//   - health: component health tracking and aggregation
//
// # Binary
//
// cmd/domainsearch is the CLI entry point:
//
//	domainsearch --tlds=com,io,dev example mycoolstartup
package domainsearch
