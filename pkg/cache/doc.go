// Package cache implements the result cache for domain lookups: a generic
// TTL cache with LRU eviction under a hard capacity bound.
//
// # Semantics
//
// Expiry is lazy: Get never returns an entry whose TTL has passed; the read
// that discovers a stale entry deletes it. A background sweep (disabled with
// sweepInterval <= 0) additionally prunes expired entries between reads so
// memory stays bounded even for keys that are never read again.
//
// Eviction under capacity pressure is true LRU: the entry with the oldest
// access time goes first, not the oldest insertion. Overwriting an existing
// key never evicts.
//
// # Usage
//
//	results, err := cache.New[*source.Record](10_000, 15*time.Minute, time.Minute)
//	if err != nil { ... }
//	defer results.Close()
//
//	_ = results.SetWithTTL("example.com:rdap", rec, 5*time.Minute)
//	rec, ok := results.Get("example.com:rdap")
//
// The cache never reports errors on the read path; absence is a normal
// return value. Statistics are always collected and can additionally be
// exported as Prometheus metrics via WithMetrics.
package cache
