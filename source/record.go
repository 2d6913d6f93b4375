package source

import "time"

// Record is the uniform answer every source produces for one domain lookup,
// regardless of which vendor produced it. Price fields are nil when the
// source does not report pricing.
type Record struct {
	Domain    string `json:"domain"`
	TLD       string `json:"tld"`
	Available bool   `json:"available"`

	Premium       bool   `json:"premium"`
	PremiumReason string `json:"premiumReason,omitempty"`

	FirstYearPrice *float64 `json:"firstYearPrice,omitempty"`
	RenewalPrice   *float64 `json:"renewalPrice,omitempty"`
	TransferPrice  *float64 `json:"transferPrice,omitempty"`
	Currency       string   `json:"currency,omitempty"`

	PrivacyIncluded bool   `json:"privacyIncluded"`
	Registrar       string `json:"registrar,omitempty"`

	// Source is the name of the source that produced this record.
	Source string `json:"source"`

	// FromCache marks records served from the result cache rather than a
	// live lookup.
	FromCache bool `json:"fromCache"`

	// QualityScore is a 0-100 heuristic of how complete/trustworthy the
	// record is, filled in during enrichment.
	QualityScore int `json:"qualityScore"`

	// Aftermarket marks a taken domain that is listed for resale.
	Aftermarket      bool     `json:"aftermarket,omitempty"`
	AftermarketPrice *float64 `json:"aftermarketPrice,omitempty"`

	CheckedAt time.Time `json:"checkedAt"`
}

// FQDN returns the full domain name.
func (r *Record) FQDN() string {
	return r.Domain + "." + r.TLD
}

// HasPricing reports whether the record carries any price information.
func (r *Record) HasPricing() bool {
	return r.FirstYearPrice != nil || r.RenewalPrice != nil || r.TransferPrice != nil
}

// Quote is the result of a secondary pricing call, merged into a Record when
// the pricing budget allows one.
type Quote struct {
	FirstYearPrice *float64
	RenewalPrice   *float64
	TransferPrice  *float64
	Currency       string
	Premium        bool
	PremiumReason  string
}

// Apply merges the quote's pricing into the record, filling only fields the
// record does not already carry.
func (q *Quote) Apply(r *Record) {
	if r.FirstYearPrice == nil {
		r.FirstYearPrice = q.FirstYearPrice
	}
	if r.RenewalPrice == nil {
		r.RenewalPrice = q.RenewalPrice
	}
	if r.TransferPrice == nil {
		r.TransferPrice = q.TransferPrice
	}
	if r.Currency == "" {
		r.Currency = q.Currency
	}
	if q.Premium && !r.Premium {
		r.Premium = true
		r.PremiumReason = q.PremiumReason
	}
}
