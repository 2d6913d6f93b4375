// Package metric provides a Prometheus metrics registry for the
// domain-search core.
//
// A MetricsRegistry owns a private prometheus.Registry pre-populated with the
// core lookup metrics (lookups, source errors, breaker state, limiter bounds)
// plus Go runtime collectors. Components register their own metrics through
// the MetricsRegistrar interface under a "component.metric" key, which guards
// against duplicate registration with a classified error instead of a panic.
//
// The registry is created once at the construction root and injected into
// components; there is no package-level default registry.
package metric
