package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/po"
)

func TestDetector_NoneMatchUnchanged(t *testing.T) {
	detector := matching.NewDetector(matching.DefaultConfig())

	res := matching.MatchResult{MatchType: matching.MatchNone, RequiresReview: true}
	got := detector.Detect(testInvoice(nil), nil, res)

	assert.Equal(t, res, got)
}

func TestDetector_AmountSeverityBands(t *testing.T) {
	type testCase struct {
		name         string
		invoiceTotal int64
		wantCount    int
		wantSeverity matching.Severity
	}

	// PO total is 100_000; bands are relative to it.
	tests := []testCase{
		{
			name:         "WithinTolerance",
			invoiceTotal: 101_000, // 1%
			wantCount:    0,
		},
		{
			name:         "Medium",
			invoiceTotal: 103_000, // 3%
			wantCount:    1,
			wantSeverity: matching.SeverityMedium,
		},
		{
			name:         "Major",
			invoiceTotal: 107_000, // 7%
			wantCount:    1,
			wantSeverity: matching.SeverityMajor,
		},
		{
			name:         "Critical",
			invoiceTotal: 125_000, // 25%
			wantCount:    1,
			wantSeverity: matching.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := matching.NewDetector(matching.DefaultConfig())
			order := testPO(nil)
			inv := testInvoice(func(i *invoice.Invoice) { i.Total = tt.invoiceTotal })

			got := detector.Detect(inv, order, matching.MatchResult{
				MatchType: matching.MatchExact,
				Score:     1.0,
			})

			var found []matching.Discrepancy

			for _, d := range got.Discrepancies {
				if d.Type == matching.DiscrepancyAmountMismatch {
					found = append(found, d)
				}
			}

			require.Len(t, found, tt.wantCount)

			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantSeverity, found[0].Severity)
			}
		})
	}
}

func TestDetector_PenaltyDragsScoreDown(t *testing.T) {
	detector := matching.NewDetector(matching.DefaultConfig())

	// Exact hint match but the totals disagree by 20%: the enriched score
	// must fall well below the pristine 1.0.
	order := testPO(nil)
	inv := testInvoice(func(i *invoice.Invoice) { i.Total = 120_000 })

	got := detector.Detect(inv, order, matching.MatchResult{
		MatchType: matching.MatchExact,
		Score:     1.0,
	})

	assert.Less(t, got.Score, 0.95)
	assert.True(t, got.RequiresReview)
}

func TestDetector_QuantityMismatchBands(t *testing.T) {
	detector := matching.NewDetector(matching.DefaultConfig())

	order := testPO(nil) // ordered quantity 10
	inv := testInvoice(func(i *invoice.Invoice) {
		i.Lines[0].Quantity = 12 // 20% over
	})

	res := matching.MatchResult{
		MatchType: matching.MatchExact,
		Score:     1.0,
		LineMatches: []matching.LineMatch{
			{InvoiceLine: 0, POLine: 0, Similarity: 1, QuantityMatch: false},
		},
	}

	got := detector.Detect(inv, order, res)

	var found *matching.Discrepancy

	for i, d := range got.Discrepancies {
		if d.Type == matching.DiscrepancyQuantityMismatch {
			found = &got.Discrepancies[i]
		}
	}

	require.NotNil(t, found)
	assert.Equal(t, matching.SeverityCritical, found.Severity)
	assert.Equal(t, "lines[0].quantity", found.Field)
}

func TestDetector_DateDiscrepancies(t *testing.T) {
	detector := matching.NewDetector(matching.DefaultConfig())

	t.Run("BackdatedBeyondGrace", func(t *testing.T) {
		order := testPO(func(p *po.PurchaseOrder) { p.OrderDate = baseDate.AddDate(0, 0, 10) })
		inv := testInvoice(nil)

		got := detector.Detect(inv, order, matching.MatchResult{MatchType: matching.MatchFuzzy, Score: 0.9})

		require.Len(t, got.Discrepancies, 1)
		assert.Equal(t, matching.DiscrepancyDateInvalid, got.Discrepancies[0].Type)
		assert.True(t, got.Discrepancies[0].Severity.AtLeast(matching.SeverityMedium))
	})

	t.Run("BackdatedWithinGrace", func(t *testing.T) {
		order := testPO(func(p *po.PurchaseOrder) { p.OrderDate = baseDate.AddDate(0, 0, 2) })

		got := detector.Detect(testInvoice(nil), order, matching.MatchResult{MatchType: matching.MatchFuzzy, Score: 0.9})

		assert.Empty(t, got.Discrepancies)
	})

	t.Run("DueDateBeforeInvoiceDate", func(t *testing.T) {
		due := baseDate.AddDate(0, 0, -1)
		inv := testInvoice(func(i *invoice.Invoice) { i.DueDate = &due })

		got := detector.Detect(inv, testPO(nil), matching.MatchResult{MatchType: matching.MatchFuzzy, Score: 0.9})

		require.Len(t, got.Discrepancies, 1)
		assert.Equal(t, "due_date", got.Discrepancies[0].Field)
		assert.True(t, got.Discrepancies[0].Severity.AtLeast(matching.SeverityMedium))
	})
}

func TestDetector_InputNotMutated(t *testing.T) {
	detector := matching.NewDetector(matching.DefaultConfig())

	order := testPO(nil)
	inv := testInvoice(func(i *invoice.Invoice) { i.Total = 120_000 })

	res := matching.MatchResult{
		MatchType:     matching.MatchExact,
		Score:         1.0,
		Discrepancies: []matching.Discrepancy{},
	}

	_ = detector.Detect(inv, order, res)

	assert.Equal(t, 1.0, res.Score)
	assert.Empty(t, res.Discrepancies)
	assert.False(t, res.RequiresReview)
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, matching.SeverityCritical.AtLeast(matching.SeverityLow))
	assert.True(t, matching.SeverityMedium.AtLeast(matching.SeverityMedium))
	assert.False(t, matching.SeverityLow.AtLeast(matching.SeverityMajor))
}
