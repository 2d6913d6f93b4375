// Package orchestrator composes the resilience primitives (result cache,
// token buckets, per-host concurrency bounds, circuit breakers, retry with
// backoff) into a single fallback chain that resolves domain availability
// queries against an ordered list of sources.
//
// One query flows: cache probe, priority-list construction (preferred hints,
// configured registrars, protocol fallbacks), sequential source attempts
// under rate/concurrency/breaker guards with per-call timeouts, first
// success wins, enrichment (quality score, premium inference, aftermarket
// signal merge, budget-gated pricing quote), cache write with an
// outcome-dependent TTL. A total exhaustion error names every source that
// was attempted.
package orchestrator
