package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dorukardahan/domain-search-mcp-sub000/orchestrator"
	"github.com/dorukardahan/domain-search-mcp-sub000/source"
)

// jsonResult is the wire shape for --output=json.
type jsonResult struct {
	Domain string         `json:"domain"`
	Record *source.Record `json:"record,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func printResults(w io.Writer, results []orchestrator.BatchResult, format string) error {
	if format == "json" {
		return printJSON(w, results)
	}
	return printTable(w, results)
}

func printJSON(w io.Writer, results []orchestrator.BatchResult) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{Domain: r.Domain, Record: r.Record}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printTable(w io.Writer, results []orchestrator.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DOMAIN\tSTATUS\tPRICE\tSOURCE\tNOTES")

	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(tw, "%s\terror\t-\t-\t%s\n", r.Domain, r.Err)
			continue
		}
		rec := r.Record
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.FQDN(), statusOf(rec), priceOf(rec), rec.Source, notesOf(rec))
	}

	return tw.Flush()
}

func statusOf(rec *source.Record) string {
	switch {
	case rec.Available && rec.Premium:
		return "premium"
	case rec.Available:
		return "available"
	default:
		return "taken"
	}
}

func priceOf(rec *source.Record) string {
	if rec.Aftermarket && rec.AftermarketPrice != nil {
		return fmt.Sprintf("%.2f %s", *rec.AftermarketPrice, currencyOf(rec))
	}
	if rec.FirstYearPrice != nil {
		return fmt.Sprintf("%.2f %s", *rec.FirstYearPrice, currencyOf(rec))
	}
	return "-"
}

func currencyOf(rec *source.Record) string {
	if rec.Currency != "" {
		return rec.Currency
	}
	return "USD"
}

func notesOf(rec *source.Record) string {
	var notes []string
	if rec.Premium && rec.PremiumReason != "" {
		notes = append(notes, rec.PremiumReason)
	}
	if rec.Aftermarket {
		notes = append(notes, "aftermarket listing")
	}
	if rec.RenewalPrice != nil {
		notes = append(notes, fmt.Sprintf("renews at %.2f", *rec.RenewalPrice))
	}
	if rec.FromCache {
		notes = append(notes, "cached")
	}
	if len(notes) == 0 {
		return "-"
	}
	return strings.Join(notes, "; ")
}
