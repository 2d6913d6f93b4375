package orchestrator

import (
	"context"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
	"github.com/dorukardahan/domain-search-mcp-sub000/pkg/worker"
	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// BatchResult is one item of a bulk lookup. Exactly one of Record and Err
// is set.
type BatchResult struct {
	Domain string
	Record *source.Record
	Err    error
}

type batchItem struct {
	idx    int
	domain string
}

// ResolveBatch resolves many domains against one TLD through a bounded
// worker pool. Per-item failures land in the item's Err; the batch as a
// whole never fails. Results come back in input order regardless of
// completion order, and the whole batch shares one pricing budget.
func (o *Orchestrator) ResolveBatch(ctx context.Context, domains []string, tld string, concurrency int) []BatchResult {
	if len(domains) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = o.cfg.Resolver.BatchConcurrency
	}

	budget := NewBudget(o.cfg.Resolver.QuoteBudget)
	results := make([]BatchResult, len(domains))

	// Each worker writes only its own index; no collection lock needed.
	pool := worker.NewPool(concurrency, len(domains), func(ctx context.Context, item batchItem) error {
		rec, err := o.ResolveSingle(ctx, item.domain, tld, &ResolveOptions{Budget: budget})
		results[item.idx] = BatchResult{Domain: item.domain, Record: rec, Err: err}
		if o.metrics != nil {
			outcome := "ok"
			if err != nil {
				outcome = "failed"
			}
			o.metrics.BatchItemsTotal.WithLabelValues(outcome).Inc()
		}
		return err
	})

	if err := pool.Start(ctx); err != nil {
		for i, domain := range domains {
			results[i] = BatchResult{Domain: domain, Err: err}
		}
		return results
	}
	for i, domain := range domains {
		if err := pool.Submit(batchItem{idx: i, domain: domain}); err != nil {
			results[i] = BatchResult{Domain: domain, Err: err}
		}
	}

	// Drain: the per-item call timeouts bound how long this can take.
	deadline := time.Duration(len(domains))*o.cfg.Resolver.CallTimeout.Duration + time.Minute
	drainErr := pool.Stop(deadline)
	if drainErr != nil {
		o.logger.Warn("batch pool drain timed out", "tld", tld, "batch", budget.ID(), "error", drainErr)
	}

	// Workers exit on context cancellation without draining the queue, so
	// queued items can come back untouched. Backfill them with an error;
	// an unprocessed item must never look like an empty success.
	for i := range results {
		if results[i].Record == nil && results[i].Err == nil {
			cause := ctx.Err()
			if cause == nil {
				cause = drainErr
			}
			if cause == nil {
				cause = worker.ErrStopTimeout
			}
			results[i] = BatchResult{
				Domain: domains[i],
				Err:    errors.WrapTransient(cause, "Orchestrator", "ResolveBatch", "batch item"),
			}
		}
	}
	return results
}
