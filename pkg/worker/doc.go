// Package worker provides a generic bounded worker pool used by batch
// domain lookups to cap parallelism and collect per-item results
// independent of dispatch order.
package worker
