package risk

import (
	"fmt"

	"github.com/apguard/apguard/internal/vendors"
)

// Vendor risk weights and thresholds.
const (
	weightPaymentHistory = 0.5
	weightActivity       = 0.2
	weightFraudFlags     = 0.3

	// minPaymentsForRate is the minimum payment history before the on-time
	// rate is trusted; below it a neutral default avoids false confidence.
	minPaymentsForRate  = 3
	defaultPaymentRisk  = 0.5
	unknownVendorScore  = 0.8
	newVendorDays       = 90
	dormantVendorDays   = 180
	fraudFlagRiskFactor = 0.3
)

// VendorResult is the vendor trust component of the assessment.
type VendorResult struct {
	Score        float64
	Flags        []Flag
	Insufficient bool
}

// AnalyzeVendor scores vendor trustworthiness from the snapshot. An unknown
// vendor gets a fixed conservative score, not a computed one.
func AnalyzeVendor(snap vendor.Snapshot) VendorResult {
	if !snap.Known {
		return VendorResult{
			Score: unknownVendorScore,
			Flags: []Flag{{
				Kind:     SignalVendor,
				Type:     FlagUnknownVendor,
				Severity: SeverityHigh,
				Evidence: fmt.Sprintf("no vendor record for %s", snap.ID),
			}},
		}
	}

	res := VendorResult{}

	paymentRisk := defaultPaymentRisk
	if snap.PaymentCount >= minPaymentsForRate {
		paymentRisk = 1 - snap.OnTimePaymentRate
	} else {
		res.Insufficient = true
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalVendor,
			Type:     FlagInsufficientPayments,
			Severity: SeverityLow,
			Evidence: fmt.Sprintf("only %d historical payments", snap.PaymentCount),
		})
	}

	if paymentRisk >= 0.5 && snap.PaymentCount >= minPaymentsForRate {
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalVendor,
			Type:     FlagPoorPaymentHistory,
			Severity: SeverityHigh,
			Evidence: fmt.Sprintf("on-time payment rate %.2f", snap.OnTimePaymentRate),
		})
	}

	var activityRisk float64

	if snap.HistoryDays() < newVendorDays {
		activityRisk = 1
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalVendor,
			Type:     FlagNewVendor,
			Severity: SeverityMedium,
			Evidence: fmt.Sprintf("vendor has %d days of history", snap.HistoryDays()),
		})
	} else if snap.DaysSinceLastInvoice() > dormantVendorDays {
		activityRisk = 1
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalVendor,
			Type:     FlagDormantVendor,
			Severity: SeverityMedium,
			Evidence: fmt.Sprintf("no invoice for %d days", snap.DaysSinceLastInvoice()),
		})
	}

	fraudRisk := fraudFlagRiskFactor * float64(snap.OpenFraudFlags)
	if fraudRisk > 1 {
		fraudRisk = 1
	}

	if snap.OpenFraudFlags > 0 {
		sev := SeverityHigh
		if snap.OpenFraudFlags >= 3 {
			sev = SeverityCritical
		}

		res.Flags = append(res.Flags, Flag{
			Kind:     SignalVendor,
			Type:     FlagOpenFraudFlags,
			Severity: sev,
			Evidence: fmt.Sprintf("%d open fraud flags", snap.OpenFraudFlags),
		})
	}

	res.Score = weightPaymentHistory*paymentRisk + weightActivity*activityRisk + weightFraudFlags*fraudRisk

	return res
}
