package risk_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/risk"
	"github.com/apguard/apguard/internal/vendors"
)

func priceInvoice(mod func(*invoice.Invoice)) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:       uuid.New(),
		Number:   "INV-900",
		VendorID: uuid.New(),
		Total:    105_033,
		Currency: "USD",
		Date:     asOf,
		Lines: []invoice.LineItem{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000, Total: 100_000, Category: "widgets"},
		},
	}

	if mod != nil {
		mod(inv)
	}

	return inv
}

func baselinedVendor(mod func(*vendor.Snapshot)) vendor.Snapshot {
	snap := establishedVendor(mod)
	snap.Baselines = map[string]vendor.Baseline{
		"widgets": {Category: "widgets", Mean: 10_000, StdDev: 500, Observations: 20},
	}
	snap.TotalBaseline = vendor.Baseline{Mean: 100_000, StdDev: 8_000, Observations: 30}

	return snap
}

func TestDetectPriceAnomalies_Normal(t *testing.T) {
	res := risk.DetectPriceAnomalies(priceInvoice(nil), baselinedVendor(nil), nil)

	assert.Zero(t, res.Score)
	assert.Zero(t, res.PatternScore)
	// Total z = 5033/8000 ~ 0.63, scaled by 1/4.
	assert.InDelta(t, 0.157, res.AmountScore, 0.01)
	assert.Empty(t, res.Flags)
}

func TestDetectPriceAnomalies_LineOutlier(t *testing.T) {
	inv := priceInvoice(func(i *invoice.Invoice) {
		// 4 sigma above the widget mean.
		i.Lines[0].UnitPrice = 12_000
	})

	res := risk.DetectPriceAnomalies(inv, baselinedVendor(nil), nil)

	// One of two checked values (line and total) is anomalous.
	assert.InDelta(t, 0.5, res.Score, 1e-9)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, risk.FlagPriceAnomaly, res.Flags[0].Type)
	assert.Equal(t, risk.SeverityHigh, res.Flags[0].Severity)
}

func TestDetectPriceAnomalies_TotalOutlier(t *testing.T) {
	inv := priceInvoice(func(i *invoice.Invoice) {
		i.Total = 140_001 // 5 sigma, and not round
	})

	res := risk.DetectPriceAnomalies(inv, baselinedVendor(nil), nil)

	assert.InDelta(t, 0.5, res.Score, 1e-9)
	assert.Equal(t, 1.0, res.AmountScore) // saturates at four sigma
	assert.Contains(t, flagTypes(res.Flags), risk.FlagAmountOutlier)
}

func TestDetectPriceAnomalies_InsufficientHistory(t *testing.T) {
	snap := baselinedVendor(nil)
	snap.Baselines["widgets"] = vendor.Baseline{Category: "widgets", Mean: 10_000, StdDev: 500, Observations: 3}
	snap.TotalBaseline = vendor.Baseline{Observations: 2}

	res := risk.DetectPriceAnomalies(priceInvoice(nil), snap, nil)

	// Nothing was checked, so nothing can score.
	assert.Zero(t, res.Score)
	assert.Zero(t, res.AmountScore)

	types := flagTypes(res.Flags)
	require.Len(t, types, 2)
	assert.Equal(t, risk.FlagInsufficientHistory, types[0])
	assert.Equal(t, risk.FlagInsufficientHistory, types[1])
}

func TestDetectPriceAnomalies_CategoryFallback(t *testing.T) {
	snap := baselinedVendor(nil)
	delete(snap.Baselines, "widgets")

	inv := priceInvoice(func(i *invoice.Invoice) {
		i.Lines[0].UnitPrice = 12_000
	})

	fallback := map[string]vendor.Baseline{
		"widgets": {Category: "widgets", Mean: 10_000, StdDev: 500, Observations: 50},
	}

	res := risk.DetectPriceAnomalies(inv, snap, fallback)

	assert.Contains(t, flagTypes(res.Flags), risk.FlagPriceAnomaly)
}

func TestDetectPriceAnomalies_ZeroVariance(t *testing.T) {
	snap := baselinedVendor(nil)
	snap.Baselines["widgets"] = vendor.Baseline{Category: "widgets", Mean: 10_000, StdDev: 0, Observations: 12}

	t.Run("ExactMeanPasses", func(t *testing.T) {
		res := risk.DetectPriceAnomalies(priceInvoice(nil), snap, nil)
		assert.NotContains(t, flagTypes(res.Flags), risk.FlagPriceAnomaly)
	})

	t.Run("AnyDriftIsAnomalous", func(t *testing.T) {
		inv := priceInvoice(func(i *invoice.Invoice) { i.Lines[0].UnitPrice = 10_001 })

		res := risk.DetectPriceAnomalies(inv, snap, nil)
		assert.Contains(t, flagTypes(res.Flags), risk.FlagPriceAnomaly)
	})
}

func TestDetectPriceAnomalies_RoundNumberTotal(t *testing.T) {
	inv := priceInvoice(func(i *invoice.Invoice) {
		i.Total = 100_000
	})

	res := risk.DetectPriceAnomalies(inv, baselinedVendor(nil), nil)

	assert.Equal(t, 0.25, res.PatternScore)
	assert.Contains(t, flagTypes(res.Flags), risk.FlagRoundNumberTotal)
}
