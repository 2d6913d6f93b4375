// Package retry implements exponential backoff with jitter for transient
// upstream failures.
//
// The attempt loop understands two escape hatches beyond plain backoff:
//
//   - Errors wrapped with NonRetryable short-circuit the loop immediately.
//   - Errors implementing RetryAfterHinter (rate-limit responses carrying an
//     explicit retry-after) have their delay honored verbatim in place of the
//     backoff schedule, unless the requested wait exceeds Config.MaxRetryAfter,
//     in which case the loop aborts with a RetryAfterExceededError so the
//     caller can fall through to another source rather than block.
//
// Typical use:
//
//	rec, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*Record, error) {
//		return src.Search(ctx, domain, tld)
//	})
package retry
