package risk

import (
	"fmt"
	"math"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/vendors"
)

const (
	// sigmaThreshold is the two-sigma anomaly rule.
	sigmaThreshold = 2.0
	// minObservations is the history size below which anomaly detection is
	// skipped and recorded as insufficient, never silently passed.
	minObservations = 5
	// roundNumberUnit flags totals that are exact multiples of 100 minor
	// units; fabricated invoices disproportionately use round numbers.
	roundNumberUnit = 100
)

// PriceResult is the statistical price component of the assessment.
type PriceResult struct {
	// Score is the fraction of checked values that were anomalous.
	Score float64
	// PatternScore reflects low-grade suspicious patterns (round totals).
	PatternScore float64
	// AmountScore is the invoice-total outlier signal, scaled from its
	// z-score against the vendor's total baseline.
	AmountScore float64
	Flags       []Flag
}

// DetectPriceAnomalies compares each invoice line and the invoice total
// against the vendor's historical distributions, falling back to category
// baselines when vendor history is sparse. Pure; all history arrives in the
// snapshot.
func DetectPriceAnomalies(inv *invoice.Invoice, snap vendor.Snapshot, categoryBaselines map[string]vendor.Baseline) PriceResult {
	var res PriceResult

	checked := 0
	anomalous := 0

	for i, line := range inv.Lines {
		baseline, ok := snap.Baselines[line.Category]
		if !ok || baseline.Observations < minObservations {
			if fallback, found := categoryBaselines[line.Category]; found {
				baseline, ok = fallback, true
			}
		}

		if !ok || baseline.Observations < minObservations {
			res.Flags = append(res.Flags, Flag{
				Kind:     SignalPrice,
				Type:     FlagInsufficientHistory,
				Severity: SeverityLow,
				Evidence: fmt.Sprintf("lines[%d] category %q has %d observations", i, line.Category, baseline.Observations),
			})

			continue
		}

		checked++

		if z, anomaly := zScore(float64(line.UnitPrice), baseline); anomaly {
			anomalous++

			res.Flags = append(res.Flags, Flag{
				Kind:     SignalPrice,
				Type:     FlagPriceAnomaly,
				Severity: SeverityHigh,
				Evidence: fmt.Sprintf("lines[%d] unit price %d is %.1f sigma from mean %.0f", i, line.UnitPrice, z, baseline.Mean),
			})
		}
	}

	// Invoice total versus the vendor's total distribution.
	if snap.TotalBaseline.Observations >= minObservations {
		checked++

		z, anomaly := zScore(float64(inv.Total), snap.TotalBaseline)
		if anomaly {
			anomalous++

			res.Flags = append(res.Flags, Flag{
				Kind:     SignalAmount,
				Type:     FlagAmountOutlier,
				Severity: SeverityHigh,
				Evidence: fmt.Sprintf("total %d is %.1f sigma from vendor mean %.0f", inv.Total, z, snap.TotalBaseline.Mean),
			})
		}

		// Scale the amount component so it saturates at four sigma.
		res.AmountScore = math.Min(1, z/(2*sigmaThreshold))
	} else {
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalAmount,
			Type:     FlagInsufficientHistory,
			Severity: SeverityLow,
			Evidence: fmt.Sprintf("vendor total baseline has %d observations", snap.TotalBaseline.Observations),
		})
	}

	if inv.Total%roundNumberUnit == 0 {
		res.PatternScore = 0.25
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalPattern,
			Type:     FlagRoundNumberTotal,
			Severity: SeverityLow,
			Evidence: fmt.Sprintf("total %d is a round number", inv.Total),
		})
	}

	if checked > 0 {
		res.Score = float64(anomalous) / float64(checked)
	}

	return res
}

// zScore returns the absolute z-score of value against the baseline and
// whether it crosses the anomaly threshold. A zero-variance baseline is
// anomalous only when the value differs from the mean at all.
func zScore(value float64, b vendor.Baseline) (float64, bool) {
	if b.StdDev == 0 {
		if value == b.Mean {
			return 0, false
		}

		return sigmaThreshold, true
	}

	z := math.Abs(value-b.Mean) / b.StdDev

	return z, z >= sigmaThreshold
}
