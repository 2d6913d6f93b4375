// Package health provides component health tracking and aggregation.
//
// Components report a Status (healthy, degraded, or unhealthy) to a Monitor,
// which aggregates them into a single system-level view. Adapters build
// statuses from the resolver's circuit breakers and result cache so the CLI
// can surface a health summary without each component knowing about the
// health model.
package health
