package matching_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/po"
)

var baseDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func testInvoice(mod func(*invoice.Invoice)) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:         uuid.New(),
		Number:     "INV-1001",
		VendorID:   uuid.New(),
		VendorName: "Acme Corp",
		Total:      100_000,
		Currency:   "USD",
		Date:       baseDate,
		Lines: []invoice.LineItem{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000, Total: 100_000},
		},
	}

	if mod != nil {
		mod(inv)
	}

	return inv
}

func testPO(mod func(*po.PurchaseOrder)) *po.PurchaseOrder {
	order := &po.PurchaseOrder{
		ID:         uuid.New(),
		Number:     "PO-7001",
		VendorName: "Acme Corp",
		Total:      100_000,
		Currency:   "USD",
		OrderDate:  baseDate.AddDate(0, 0, -5),
		Status:     po.StatusOpen,
		Lines: []po.Line{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000},
		},
	}

	if mod != nil {
		mod(order)
	}

	return order
}

func newEngine(t *testing.T) *matching.Engine {
	t.Helper()

	engine, err := matching.NewEngine(matching.DefaultConfig())
	require.NoError(t, err)

	return engine
}

func TestEngine_ExactHintMatch(t *testing.T) {
	engine := newEngine(t)

	order := testPO(nil)
	inv := testInvoice(func(i *invoice.Invoice) { i.PONumberHint = order.Number })

	// A second candidate with a better amount must not shadow the hint.
	decoy := testPO(func(p *po.PurchaseOrder) { p.Number = "PO-0001" })

	res := engine.Evaluate(inv, []*po.PurchaseOrder{decoy, order})

	assert.Equal(t, matching.MatchExact, res.MatchType)
	assert.Equal(t, 1.0, res.Score)
	require.NotNil(t, res.POID)
	assert.Equal(t, order.ID, *res.POID)
	assert.Equal(t, order.Number, res.PONumber)
	assert.False(t, res.RequiresReview)
	require.Len(t, res.LineMatches, 1)
	assert.True(t, res.LineMatches[0].QuantityMatch)
}

func TestEngine_NoCandidates(t *testing.T) {
	engine := newEngine(t)

	res := engine.Evaluate(testInvoice(nil), nil)

	assert.Equal(t, matching.MatchNone, res.MatchType)
	assert.Zero(t, res.Score)
	assert.Nil(t, res.POID)
	assert.True(t, res.RequiresReview)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, matching.DiscrepancyMissingPO, res.Discrepancies[0].Type)
	assert.Equal(t, matching.SeverityMajor, res.Discrepancies[0].Severity)
}

func TestEngine_FuzzyMatch(t *testing.T) {
	engine := newEngine(t)

	// Same vendor, same amount, invoice a few days after the order: all
	// three components near 1.
	order := testPO(nil)
	inv := testInvoice(nil)

	res := engine.Evaluate(inv, []*po.PurchaseOrder{order})

	assert.Equal(t, matching.MatchFuzzy, res.MatchType)
	assert.GreaterOrEqual(t, res.Score, 0.85)
	require.NotNil(t, res.POID)
	assert.Equal(t, order.ID, *res.POID)
	assert.NotEmpty(t, res.LineMatches)
}

func TestEngine_PartialMatch(t *testing.T) {
	engine := newEngine(t)

	// Identical vendor and date but the amount is double: the amount
	// component drops to zero and the score lands in the partial band.
	order := testPO(func(p *po.PurchaseOrder) { p.Total = 50_000 })
	inv := testInvoice(nil)

	res := engine.Evaluate(inv, []*po.PurchaseOrder{order})

	assert.Equal(t, matching.MatchPartial, res.MatchType)
	assert.True(t, res.RequiresReview)
	require.NotNil(t, res.POID)
	assert.Empty(t, res.LineMatches, "partial matches do not pair lines")
}

func TestEngine_NoneMatch(t *testing.T) {
	engine := newEngine(t)

	order := testPO(func(p *po.PurchaseOrder) {
		p.VendorName = "Globex Industries"
		p.Total = 900_000
		p.OrderDate = baseDate.AddDate(0, -8, 0)
	})

	res := engine.Evaluate(testInvoice(nil), []*po.PurchaseOrder{order})

	assert.Equal(t, matching.MatchNone, res.MatchType)
	assert.True(t, res.RequiresReview)
	assert.Nil(t, res.POID)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, matching.DiscrepancyMissingPO, res.Discrepancies[0].Type)
}

func TestEngine_BackdatedBeyondGraceScoresLower(t *testing.T) {
	engine := newEngine(t)

	// Invoice dated 10 days before the order: past the 3-day grace,
	// the date component is zero.
	order := testPO(func(p *po.PurchaseOrder) { p.OrderDate = baseDate.AddDate(0, 0, 10) })

	res := engine.Evaluate(testInvoice(nil), []*po.PurchaseOrder{order})

	assert.Equal(t, matching.MatchPartial, res.MatchType)
	assert.InDelta(t, 0.70, res.Score, 0.001)
}

func TestEngine_BackdatedWithinGrace(t *testing.T) {
	engine := newEngine(t)

	// Two days of backdating is within grace and scores full date proximity.
	order := testPO(func(p *po.PurchaseOrder) { p.OrderDate = baseDate.AddDate(0, 0, 2) })

	res := engine.Evaluate(testInvoice(nil), []*po.PurchaseOrder{order})

	assert.Equal(t, matching.MatchFuzzy, res.MatchType)
	assert.InDelta(t, 1.0, res.Score, 0.001)
}

func TestEngine_TieBreakPrefersCloserAmount(t *testing.T) {
	engine := newEngine(t)

	exact := testPO(func(p *po.PurchaseOrder) { p.Number = "PO-ZZZ" })
	near := testPO(func(p *po.PurchaseOrder) {
		p.Number = "PO-AAA"
		p.Total = 100_050
	})

	// Scores differ by well under TieEpsilon; the smaller amount
	// difference must win even though the other number sorts first.
	res := engine.Evaluate(testInvoice(nil), []*po.PurchaseOrder{near, exact})

	assert.Equal(t, "PO-ZZZ", res.PONumber)
}

func TestEngine_TieBreakFallsBackToNumber(t *testing.T) {
	engine := newEngine(t)

	first := testPO(func(p *po.PurchaseOrder) { p.Number = "PO-AAA" })
	second := testPO(func(p *po.PurchaseOrder) { p.Number = "PO-BBB" })

	res := engine.Evaluate(testInvoice(nil), []*po.PurchaseOrder{second, first})
	assert.Equal(t, "PO-AAA", res.PONumber)

	// Candidate order must not change the winner.
	res = engine.Evaluate(testInvoice(nil), []*po.PurchaseOrder{first, second})
	assert.Equal(t, "PO-AAA", res.PONumber)
}

func TestEngine_LinePairingAndPriceVariance(t *testing.T) {
	engine := newEngine(t)

	order := testPO(func(p *po.PurchaseOrder) {
		p.Lines = []po.Line{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000},
			{Description: "Red gadgets", Quantity: 5, UnitPrice: 4_000},
		}
		p.Total = 120_000
	})

	inv := testInvoice(func(i *invoice.Invoice) {
		i.PONumberHint = order.Number
		i.Lines = []invoice.LineItem{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000, Total: 100_000},
			// 7.5% over the ordered unit price.
			{Description: "Red gadgets", Quantity: 5, UnitPrice: 4_300, Total: 21_500},
			// Not on the order at all.
			{Description: "Rush delivery surcharge", Quantity: 1, UnitPrice: 2_500, Total: 2_500},
		}
		i.Total = 124_000
	})

	res := engine.Evaluate(inv, []*po.PurchaseOrder{order})

	require.Len(t, res.LineMatches, 2)
	assert.Equal(t, 0, res.LineMatches[0].POLine)
	assert.Equal(t, 1, res.LineMatches[1].POLine)
	assert.InDelta(t, 0.075, res.LineMatches[1].PriceVariance, 0.001)

	var priceVariances, unmatched int

	for _, d := range res.Discrepancies {
		switch d.Type {
		case matching.DiscrepancyPriceVariance:
			priceVariances++

			assert.Equal(t, matching.SeverityMajor, d.Severity)
		case matching.DiscrepancyQuantityMismatch:
			unmatched++
		}
	}

	assert.Equal(t, 1, priceVariances)
	assert.Equal(t, 1, unmatched, "billed-but-not-ordered line must be flagged")
}

func TestEngine_Deterministic(t *testing.T) {
	engine := newEngine(t)

	candidates := []*po.PurchaseOrder{
		testPO(func(p *po.PurchaseOrder) { p.Number = "PO-1" }),
		testPO(func(p *po.PurchaseOrder) { p.Number = "PO-2"; p.Total = 101_000 }),
		testPO(func(p *po.PurchaseOrder) { p.Number = "PO-3"; p.Total = 99_000 }),
	}
	inv := testInvoice(nil)

	first := engine.Evaluate(inv, candidates)

	for range 10 {
		assert.Equal(t, first, engine.Evaluate(inv, candidates))
	}
}
