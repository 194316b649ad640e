package extract

import (
	"regexp"
	"strings"
)

// Summary vocabulary: totals, tax and payment boilerplate. Matched anywhere in
// the line, case-insensitive.
var reSummary = regexp.MustCompile(`(?i)(subtotal|total|balance|items in transaction|tax|gst|pst|hst|change|cash|visa|mastercard|amex|debit|tender|rounding|purchase transaction)`)

var (
	rePrice      = regexp.MustCompile(`(^|[^0-9])\d+\.\d{2}(\b|[^0-9])`)
	rePriceOnly  = regexp.MustCompile(`^\$?\s*(\d+\.\d{2})\s*$`)
	reQtyAtPrice = regexp.MustCompile(`^\s*(\d+)\s*@\s*\$?\s*(\d+\.\d{2})\s*$`)
)

// IsSummaryLine reports whether a line is receipt/financial boilerplate that
// must never become, or name, an extracted record.
func IsSummaryLine(line string) bool {
	return reSummary.MatchString(line)
}

// HasPrice reports whether the line carries a 2-decimal amount somewhere.
func HasPrice(line string) bool {
	return rePrice.MatchString(line)
}

// PriceOnly returns the amount when the whole line is a single price.
func PriceOnly(line string) (string, bool) {
	m := rePriceOnly.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// QtyAtPrice parses "<qty> @ <unit price>" lines.
func QtyAtPrice(line string) (qty string, unit string, ok bool) {
	m := reQtyAtPrice.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// LikelyItemLines lists lines that carry a price and are not summary lines,
// in document order, up to limit.
func LikelyItemLines(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultItemLimit
	}
	out := []string{}
	for _, l := range Lines(text) {
		if !HasPrice(l) || IsSummaryLine(l) {
			continue
		}
		out = append(out, l)
		if len(out) >= limit {
			break
		}
	}
	return out
}
