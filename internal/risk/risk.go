package risk

import (
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/vendors"
)

// SignalKind is the closed set of risk signals the aggregator understands.
// New kinds are added here and in the weight table, never registered at
// runtime.
type SignalKind string

const (
	SignalDuplicate SignalKind = "duplicate"
	SignalVendor    SignalKind = "vendor"
	SignalPrice     SignalKind = "price"
	SignalAmount    SignalKind = "amount"
	SignalPattern   SignalKind = "pattern"
)

// Severity of a risk flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Level buckets the aggregate risk score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Action is the aggregator's recommendation.
type Action string

const (
	ActionApprove     Action = "approve"
	ActionReview      Action = "review"
	ActionInvestigate Action = "investigate"
	ActionEscalate    Action = "escalate"
	ActionReject      Action = "reject"
)

// FlagType names one specific finding.
type FlagType string

const (
	FlagExactDuplicate       FlagType = "exact_duplicate"
	FlagNaturalKeyDuplicate  FlagType = "natural_key_duplicate"
	FlagSimilarInvoice       FlagType = "similar_invoice"
	FlagUnknownVendor        FlagType = "unknown_vendor"
	FlagInsufficientPayments FlagType = "insufficient_payment_history"
	FlagPoorPaymentHistory   FlagType = "poor_payment_history"
	FlagNewVendor            FlagType = "new_vendor"
	FlagDormantVendor        FlagType = "dormant_vendor"
	FlagOpenFraudFlags       FlagType = "open_fraud_flags"
	FlagPriceAnomaly         FlagType = "price_anomaly"
	FlagInsufficientHistory  FlagType = "insufficient_history"
	FlagRoundNumberTotal     FlagType = "round_number_total"
	FlagAmountOutlier        FlagType = "amount_outlier"
	FlagNoMatchingPO         FlagType = "no_matching_po"
	FlagDetectorDegraded     FlagType = "detector_degraded"
)

// Flag is one piece of risk evidence.
type Flag struct {
	Kind     SignalKind
	Type     FlagType
	Severity Severity
	Evidence string
}

// Assessment is the aggregate risk verdict for one invoice. It is immutable;
// a re-evaluation produces a new assessment. The vendor baseline snapshot
// used for statistical checks rides along so the scores can be reproduced.
type Assessment struct {
	InvoiceID  uuid.UUID
	Score      float64
	Level      Level
	Flags      []Flag
	Action     Action
	Components map[SignalKind]float64
	// Similar invoices found by the duplicate detector, for audit.
	SimilarInvoiceIDs []uuid.UUID
	// BaselineSnapshot is the vendor view the statistical detectors saw.
	BaselineSnapshot vendor.Snapshot
	// Degraded is set when a detector failed and its retry failed too; the
	// assessment is conservative rather than silently incomplete.
	Degraded   bool
	AssessedAt time.Time
}

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

func maxSeverity(a, b Severity) Severity {
	if severityRank[a] >= severityRank[b] {
		return a
	}

	return b
}
