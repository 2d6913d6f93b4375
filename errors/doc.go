// Package errors provides classified errors for the domain-search core.
//
// Errors are classified into three handling classes:
//
//   - Transient: temporary upstream trouble (rate limits, timeouts, 5xx);
//     safe to retry with backoff or to recover from by advancing to the
//     next source.
//   - Invalid: bad input or an unsupported request; rejected before any
//     upstream call and never retried.
//   - Fatal: configuration or authentication problems that no amount of
//     retrying will fix.
//
// Errors surfaced to callers are built with Coded and carry a stable
// machine-readable code plus a human-readable suggested next action:
//
//	err := errors.Coded(errors.ErrorFatal, "exhausted",
//		errors.ErrNoSourceAvailable,
//		"every source failed; check upstream status and API credentials")
//
// The IsTransient / IsInvalid / IsFatal predicates understand both
// ClassifiedError values and the package's sentinel errors, so wrapped
// errors classify correctly through errors.Is / errors.As chains.
package errors
