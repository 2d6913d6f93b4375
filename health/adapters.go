package health

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dorukardahan/domain-search-mcp-sub000/breaker"
	"github.com/dorukardahan/domain-search-mcp-sub000/limiter"
	"github.com/dorukardahan/domain-search-mcp-sub000/pkg/cache"
)

// FromBreakers builds a health status from circuit breaker states. All
// breakers closed is healthy. Any open breaker degrades the component:
// lookups still work through the remaining sources, but capacity is reduced.
func FromBreakers(states map[string]breaker.State) Status {
	var open []string
	for name, state := range states {
		if state == breaker.StateOpen {
			open = append(open, name)
		}
	}

	if len(open) == 0 {
		status := NewHealthy("breakers", fmt.Sprintf("all %d breakers closed", len(states)))
		return status.WithMetrics(&Metrics{OpenBreakers: 0})
	}

	sort.Strings(open)
	status := NewDegraded("breakers", fmt.Sprintf("open breakers: %s", strings.Join(open, ", ")))
	return status.WithMetrics(&Metrics{OpenBreakers: len(open)})
}

// FromLimiters builds a health status from the per-source rate limiter
// registry. Rate limiters slow callers rather than fail them, so this is
// always healthy; it exists so the health view names every active limiter.
func FromLimiters(reg *limiter.Registry) Status {
	names := reg.Names()
	sort.Strings(names)
	if len(names) == 0 {
		return NewHealthy("limiters", "no rate limiters active")
	}
	return NewHealthy("limiters", fmt.Sprintf("rate limiters: %s", strings.Join(names, ", ")))
}

// FromCache builds a health status from result cache statistics. The cache
// cannot fail in a way that degrades lookups, so the status is always
// healthy; the value is in the attached metrics.
func FromCache(stats *cache.Statistics) Status {
	status := NewHealthy("cache", fmt.Sprintf("%d entries cached", stats.CurrentSize()))
	return status.WithMetrics(&Metrics{
		CacheEntries: stats.CurrentSize(),
		CacheHitRate: stats.HitRatio(),
		Uptime:       stats.Uptime(),
	})
}
