package matching

import (
	"fmt"
	"math"
	"time"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/po"
)

// Score penalties applied per discrepancy severity when enriching a result.
// A confidently matched invoice with a large amount mismatch should not keep
// a near-perfect score.
var severityPenalty = map[Severity]float64{
	SeverityLow:      0,
	SeverityMedium:   0.05,
	SeverityMajor:    0.10,
	SeverityCritical: 0.15,
}

// Detector re-examines a matched invoice/PO pair at the header level and
// enriches the match result with severity-ranked discrepancies. It is pure:
// the input result is never mutated.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect returns a copy of res with header-level amount, quantity and date
// discrepancies appended and the score reduced accordingly. A none-match is
// returned unchanged.
func (d *Detector) Detect(inv *invoice.Invoice, order *po.PurchaseOrder, res MatchResult) MatchResult {
	if res.MatchType == MatchNone || order == nil {
		return res
	}

	out := res
	out.Discrepancies = make([]Discrepancy, len(res.Discrepancies), len(res.Discrepancies)+4)
	copy(out.Discrepancies, res.Discrepancies)

	out.Discrepancies = append(out.Discrepancies, d.amountDiscrepancies(inv, order)...)
	out.Discrepancies = append(out.Discrepancies, d.quantityDiscrepancies(inv, order, res.LineMatches)...)
	out.Discrepancies = append(out.Discrepancies, d.dateDiscrepancies(inv, order)...)

	for _, disc := range out.Discrepancies[len(res.Discrepancies):] {
		out.Score = math.Max(0, out.Score-severityPenalty[disc.Severity])

		if disc.Severity.AtLeast(SeverityMajor) {
			out.RequiresReview = true
		}
	}

	return out
}

func (d *Detector) amountDiscrepancies(inv *invoice.Invoice, order *po.PurchaseOrder) []Discrepancy {
	if order.Total <= 0 {
		return nil
	}

	rel := math.Abs(float64(inv.Total-order.Total)) / float64(order.Total)
	if rel < d.cfg.AmountTolerancePct {
		return nil
	}

	return []Discrepancy{{
		Type:     DiscrepancyAmountMismatch,
		Severity: severityForRelDiff(rel),
		Field:    "total",
		Expected: fmt.Sprintf("%d", order.Total),
		Actual:   fmt.Sprintf("%d", inv.Total),
	}}
}

// quantityDiscrepancies mirrors the amount bands, relative to the ordered
// quantity of each paired line.
func (d *Detector) quantityDiscrepancies(inv *invoice.Invoice, order *po.PurchaseOrder, pairs []LineMatch) []Discrepancy {
	var out []Discrepancy

	for _, lm := range pairs {
		if lm.QuantityMatch {
			continue
		}

		if lm.InvoiceLine >= len(inv.Lines) || lm.POLine >= len(order.Lines) {
			continue
		}

		billed := inv.Lines[lm.InvoiceLine].Quantity
		ordered := order.Lines[lm.POLine].Quantity

		if ordered <= 0 {
			continue
		}

		rel := math.Abs(float64(billed-ordered)) / float64(ordered)

		out = append(out, Discrepancy{
			Type:     DiscrepancyQuantityMismatch,
			Severity: severityForRelDiff(rel),
			Field:    fmt.Sprintf("lines[%d].quantity", lm.InvoiceLine),
			Expected: fmt.Sprintf("%d", ordered),
			Actual:   fmt.Sprintf("%d", billed),
		})
	}

	return out
}

// dateDiscrepancies flags invoices dated before the PO and due dates that
// precede the invoice date. Date problems are always at least medium.
func (d *Detector) dateDiscrepancies(inv *invoice.Invoice, order *po.PurchaseOrder) []Discrepancy {
	var out []Discrepancy

	grace := time.Duration(d.cfg.BackdateGraceDays) * 24 * time.Hour

	if inv.Date.Before(order.OrderDate.Add(-grace)) {
		out = append(out, Discrepancy{
			Type:     DiscrepancyDateInvalid,
			Severity: SeverityMedium,
			Field:    "date",
			Expected: "on or after " + order.OrderDate.Format(time.DateOnly),
			Actual:   inv.Date.Format(time.DateOnly),
		})
	}

	if inv.DueDate != nil && inv.DueDate.Before(inv.Date) {
		out = append(out, Discrepancy{
			Type:     DiscrepancyDateInvalid,
			Severity: SeverityMedium,
			Field:    "due_date",
			Expected: "on or after " + inv.Date.Format(time.DateOnly),
			Actual:   inv.DueDate.Format(time.DateOnly),
		})
	}

	return out
}
