package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/po"
)

// Weights of the fuzzy score components.
const (
	weightVendorName = 0.4
	weightAmount     = 0.3
	weightDate       = 0.3
)

// Engine matches one invoice against a candidate set of purchase orders.
// It is stateless and safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("matching config: %w", err)
	}

	return &Engine{cfg: cfg}, nil
}

// Evaluate scores the invoice against each candidate and returns the match
// result. An empty candidate list is a none-match, not an error. The result
// is a pure function of the inputs.
func (e *Engine) Evaluate(inv *invoice.Invoice, candidates []*po.PurchaseOrder) MatchResult {
	res := MatchResult{
		InvoiceID: inv.ID,
		MatchType: MatchNone,
	}

	// Strategy 1: exact PO-number hint.
	if inv.PONumberHint != "" {
		for _, cand := range candidates {
			if cand.Number == inv.PONumberHint {
				res.MatchType = MatchExact
				res.Score = 1.0
				res.attachPO(cand)
				res.LineMatches, res.Discrepancies = e.matchLines(inv, cand)

				return res
			}
		}
	}

	if len(candidates) == 0 {
		res.RequiresReview = true
		res.Discrepancies = append(res.Discrepancies, Discrepancy{
			Type:     DiscrepancyMissingPO,
			Severity: SeverityMajor,
			Field:    "po_number",
			Expected: "matching purchase order",
			Actual:   "no candidates",
		})

		return res
	}

	best := e.bestCandidate(inv, candidates)
	res.Score = best.score

	// Strategies 2-4: fuzzy, partial, none, by threshold.
	switch {
	case best.score >= e.cfg.FuzzyThreshold:
		res.MatchType = MatchFuzzy
		res.attachPO(best.order)
		res.LineMatches, res.Discrepancies = e.matchLines(inv, best.order)

	case best.score >= e.cfg.PartialThreshold:
		res.MatchType = MatchPartial
		res.RequiresReview = true
		res.attachPO(best.order)

	default:
		res.MatchType = MatchNone
		res.RequiresReview = true
		res.Discrepancies = append(res.Discrepancies, Discrepancy{
			Type:     DiscrepancyMissingPO,
			Severity: SeverityMajor,
			Field:    "po_number",
			Expected: "matching purchase order",
			Actual:   fmt.Sprintf("best candidate %s scored %.2f", best.order.Number, best.score),
		})
	}

	return res
}

func (r *MatchResult) attachPO(order *po.PurchaseOrder) {
	id := order.ID
	r.POID = &id
	r.PONumber = order.Number
}

type scoredCandidate struct {
	order      *po.PurchaseOrder
	score      float64
	amountDiff int64
	hintMatch  bool
}

// bestCandidate scores every candidate and picks the winner. Candidates
// whose scores land within TieEpsilon of the top are tied and broken
// deterministically: PO-number hint first, then smaller amount difference,
// then lexicographically smaller PO number.
func (e *Engine) bestCandidate(inv *invoice.Invoice, candidates []*po.PurchaseOrder) scoredCandidate {
	scored := make([]scoredCandidate, 0, len(candidates))

	top := math.Inf(-1)

	for _, cand := range candidates {
		sc := scoredCandidate{
			order:      cand,
			score:      e.fuzzyScore(inv, cand),
			amountDiff: absInt64(inv.Total - cand.Total),
			hintMatch:  inv.PONumberHint != "" && cand.Number == inv.PONumberHint,
		}

		scored = append(scored, sc)

		if sc.score > top {
			top = sc.score
		}
	}

	contenders := scored[:0:0]

	for _, sc := range scored {
		if top-sc.score <= e.cfg.TieEpsilon {
			contenders = append(contenders, sc)
		}
	}

	sort.Slice(contenders, func(i, j int) bool {
		a, b := contenders[i], contenders[j]

		if a.hintMatch != b.hintMatch {
			return a.hintMatch
		}

		if a.amountDiff != b.amountDiff {
			return a.amountDiff < b.amountDiff
		}

		return a.order.Number < b.order.Number
	})

	return contenders[0]
}

// fuzzyScore is the weighted combination of vendor-name similarity, amount
// closeness and date proximity.
func (e *Engine) fuzzyScore(inv *invoice.Invoice, cand *po.PurchaseOrder) float64 {
	nameSim := TokenSetSimilarity(inv.VendorName, cand.VendorName)

	var amountScore float64
	if cand.Total > 0 {
		rel := float64(absInt64(inv.Total-cand.Total)) / float64(cand.Total)
		amountScore = math.Max(0, 1-rel)
	}

	dateScore := e.dateProximity(inv, cand)

	return weightVendorName*nameSim + weightAmount*amountScore + weightDate*dateScore
}

// dateProximity decays linearly from 1 to 0 over the configured window,
// measured from PO order date to invoice date. Invoices dated before the
// order beyond the backdating grace period score zero.
func (e *Engine) dateProximity(inv *invoice.Invoice, cand *po.PurchaseOrder) float64 {
	days := inv.Date.Sub(cand.OrderDate).Hours() / 24

	grace := float64(e.cfg.BackdateGraceDays)
	if days < -grace {
		return 0
	}

	if days <= 0 {
		return 1
	}

	window := float64(e.cfg.DateWindowDays)
	if days >= window {
		return 0
	}

	return 1 - days/window
}

// matchLines pairs invoice lines 1:1 with PO lines by description similarity,
// with positional order as the tie-break. Paired lines outside the amount
// tolerance yield price-variance discrepancies; invoice lines with no PO
// counterpart are billed-but-not-ordered quantity discrepancies.
func (e *Engine) matchLines(inv *invoice.Invoice, order *po.PurchaseOrder) ([]LineMatch, []Discrepancy) {
	var (
		matches       []LineMatch
		discrepancies []Discrepancy
	)

	used := make([]bool, len(order.Lines))

	for i, line := range inv.Lines {
		bestIdx := -1
		bestSim := 0.0

		for j, poLine := range order.Lines {
			if used[j] {
				continue
			}

			sim := TokenSetSimilarity(line.Description, poLine.Description)
			if sim < e.cfg.LineSimilarityMin {
				continue
			}

			better := sim > bestSim+1e-9
			tied := math.Abs(sim-bestSim) <= 1e-9

			// Positional tie-break: prefer the PO line at the invoice
			// line's own position, else the earliest one.
			if better || (tied && bestIdx != i && j == i) {
				bestIdx = j
				bestSim = sim
			}
		}

		if bestIdx < 0 {
			discrepancies = append(discrepancies, Discrepancy{
				Type:     DiscrepancyQuantityMismatch,
				Severity: SeverityMedium,
				Field:    fmt.Sprintf("lines[%d]", i),
				Expected: "line present on purchase order",
				Actual:   line.Description,
			})

			continue
		}

		used[bestIdx] = true
		poLine := order.Lines[bestIdx]

		lm := LineMatch{
			InvoiceLine:   i,
			POLine:        bestIdx,
			Similarity:    bestSim,
			QuantityMatch: line.Quantity == poLine.Quantity,
		}

		if poLine.UnitPrice > 0 {
			lm.PriceVariance = float64(line.UnitPrice-poLine.UnitPrice) / float64(poLine.UnitPrice)
		}

		matches = append(matches, lm)

		if rel := math.Abs(lm.PriceVariance); rel >= e.cfg.AmountTolerancePct {
			discrepancies = append(discrepancies, Discrepancy{
				Type:     DiscrepancyPriceVariance,
				Severity: severityForRelDiff(rel),
				Field:    fmt.Sprintf("lines[%d].unit_price", i),
				Expected: fmt.Sprintf("%d", poLine.UnitPrice),
				Actual:   fmt.Sprintf("%d", line.UnitPrice),
			})
		}
	}

	return matches, discrepancies
}

// severityForRelDiff maps a relative difference onto the fixed severity
// bands: >10% critical, 5-10% major, 2-5% medium, under 2% low.
func severityForRelDiff(rel float64) Severity {
	switch {
	case rel > 0.10:
		return SeverityCritical
	case rel >= 0.05:
		return SeverityMajor
	case rel >= 0.02:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
