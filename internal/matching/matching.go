package matching

import (
	"github.com/google/uuid"
)

// MatchType classifies how an invoice was matched to a purchase order.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchFuzzy   MatchType = "fuzzy"
	MatchPartial MatchType = "partial"
	MatchNone    MatchType = "none"
)

// DiscrepancyType is the closed set of field-level mismatch kinds.
type DiscrepancyType string

const (
	DiscrepancyAmountMismatch   DiscrepancyType = "amount_mismatch"
	DiscrepancyQuantityMismatch DiscrepancyType = "quantity_mismatch"
	DiscrepancyPriceVariance    DiscrepancyType = "price_variance"
	DiscrepancyDateInvalid      DiscrepancyType = "date_invalid"
	DiscrepancyMissingPO        DiscrepancyType = "missing_po"
)

// Severity of a discrepancy.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityMajor:    2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Discrepancy records one expected-vs-actual mismatch between an invoice and
// its matched purchase order.
type Discrepancy struct {
	Type     DiscrepancyType
	Severity Severity
	Field    string
	Expected string
	Actual   string
}

// LineMatch pairs one invoice line with one PO line.
type LineMatch struct {
	InvoiceLine   int
	POLine        int
	Similarity    float64
	QuantityMatch bool
	// PriceVariance is the relative unit-price difference versus the PO line.
	PriceVariance float64
}

// MatchResult is the outcome of evaluating one invoice against a candidate
// set. It is immutable; re-evaluation produces a new result.
type MatchResult struct {
	InvoiceID      uuid.UUID
	MatchType      MatchType
	Score          float64
	POID           *uuid.UUID
	PONumber       string
	LineMatches    []LineMatch
	Discrepancies  []Discrepancy
	RequiresReview bool
}

// MaxDiscrepancySeverity returns the highest severity present, or empty when
// there are no discrepancies.
func (r MatchResult) MaxDiscrepancySeverity() Severity {
	var out Severity

	for _, d := range r.Discrepancies {
		if out == "" || d.Severity.AtLeast(out) {
			out = d.Severity
		}
	}

	return out
}
