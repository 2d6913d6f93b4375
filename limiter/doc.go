// Package limiter provides the rate and concurrency controls used when
// talking to upstream domain sources: a token bucket for per-source request
// pacing, a FIFO concurrency semaphore, a keyed variant that isolates
// sources from each other, and an adaptive limiter that resizes its bound
// from observed error rates and tail latency.
package limiter
