// Package breaker implements per-source circuit breakers. A breaker trips
// after repeated upstream failures inside a sliding window, rejects calls
// while open, and probes the upstream after a reset timeout before closing
// again. Caller mistakes never count toward tripping; only errors that
// indicate upstream ill health do.
package breaker
