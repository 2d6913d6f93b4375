package orchestrator

import (
	"context"

	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// enrich fills in the derived fields on a fresh record: premium-reason
// inference, the aftermarket signal merge, the budget-gated pricing quote
// and the quality score. It mutates rec in place before the cache write.
func (o *Orchestrator) enrich(ctx context.Context, rec *source.Record, from source.Source, budget *Budget, signalCh <-chan *source.Record) {
	if rec.Premium && rec.PremiumReason == "" {
		rec.PremiumReason = inferPremiumReason(rec)
	}

	// The aftermarket signal only matters for taken domains, and only when
	// the primary source has no native premium/auction detection. The merge
	// is strictly non-blocking: if the signal has not resolved yet, the
	// primary result ships without it.
	if !rec.Available && signalCh != nil && !source.DetectsPremium(from) {
		select {
		case sig := <-signalCh:
			if sig != nil {
				rec.Aftermarket = sig.Aftermarket
				rec.AftermarketPrice = sig.AftermarketPrice
				if sig.Premium && !rec.Premium {
					rec.Premium = true
					rec.PremiumReason = sig.PremiumReason
				}
			}
		default:
		}
	}

	// A pricing quote is only worth a budget unit for an available domain
	// that came back without pricing (protocol sources never carry any).
	if rec.Available && o.quotes != nil && !rec.HasPricing() {
		if budget.Take() {
			err := o.pricing.Run(ctx, func() error {
				q, err := o.quotes.Quote(ctx, rec.Domain, rec.TLD)
				if err != nil {
					return err
				}
				q.Apply(rec)
				return nil
			})
			if err != nil {
				// Quotes are best-effort; the availability answer stands.
				o.logger.Debug("pricing quote failed",
					"domain", rec.Domain, "tld", rec.TLD, "batch", budget.ID(), "error", err)
			}
		} else {
			if o.metrics != nil {
				o.metrics.QuoteBudgetDeniedTotal.Inc()
			}
			o.logger.Debug("pricing quote skipped, batch budget spent",
				"domain", rec.Domain, "tld", rec.TLD, "batch", budget.ID())
		}
	}

	rec.QualityScore = qualityScore(rec, from.Kind())
}

// inferPremiumReason names why a record is premium when the source flagged
// it without saying why.
func inferPremiumReason(rec *source.Record) string {
	if rec.FirstYearPrice != nil && rec.RenewalPrice != nil && *rec.RenewalPrice > 0 &&
		*rec.FirstYearPrice >= 2**rec.RenewalPrice {
		return "first-year price well above renewal"
	}
	if rec.Aftermarket {
		return "listed on the aftermarket"
	}
	return "flagged premium by source"
}

// qualityScore is a 0-100 heuristic of how complete and trustworthy a
// record is. Registrar answers score above protocol answers because they
// carry pricing and vendor-verified availability.
func qualityScore(rec *source.Record, kind source.Kind) int {
	score := 50
	switch kind {
	case source.KindRegistrar:
		score = 70
	case source.KindProtocol:
		score = 55
	case source.KindSignal:
		score = 40
	}

	if rec.HasPricing() {
		score += 15
	}
	if rec.Currency != "" {
		score += 5
	}
	if rec.Registrar != "" {
		score += 5
	}
	if rec.Premium && rec.PremiumReason != "" {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}
