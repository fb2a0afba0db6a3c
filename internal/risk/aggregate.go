package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/vendors"
)

// signalWeights is the closed weight table. It must sum to exactly 1.0 and is
// validated at startup, not per invoice.
var signalWeights = map[SignalKind]float64{
	SignalDuplicate: 0.30,
	SignalVendor:    0.25,
	SignalPrice:     0.20,
	SignalAmount:    0.15,
	SignalPattern:   0.10,
}

// Risk level thresholds, inclusive-lower.
const (
	levelMediumMin   = 0.25
	levelHighMin     = 0.50
	levelCriticalMin = 0.75
)

// ValidateWeights checks the weight table sums to 1.0. Called once at
// service construction; a bad table is a configuration error.
func ValidateWeights() error {
	var sum float64
	for _, w := range signalWeights {
		sum += w
	}

	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("risk signal weights sum to %v, want 1.0", sum)
	}

	return nil
}

// Inputs gathers the detector outputs feeding one aggregation.
type Inputs struct {
	Invoice    *invoice.Invoice
	Match      matching.MatchResult
	Duplicate  DuplicateResult
	Vendor     VendorResult
	Price      PriceResult
	Snapshot   vendor.Snapshot
	Degraded   bool
	AssessedAt time.Time
}

// Aggregate combines the detector outputs into one assessment. The decision
// table, not the score alone, is authoritative: a single catastrophic signal
// overrides an otherwise low aggregate.
func Aggregate(in Inputs) *Assessment {
	components := map[SignalKind]float64{
		SignalDuplicate: duplicateComponent(in.Duplicate),
		SignalVendor:    clamp01(in.Vendor.Score),
		SignalPrice:     clamp01(in.Price.Score),
		SignalAmount:    clamp01(in.Price.AmountScore),
		SignalPattern:   clamp01(in.Price.PatternScore),
	}

	var score float64
	for kind, weight := range signalWeights {
		score += weight * components[kind]
	}

	score = clamp01(score)

	flags := make([]Flag, 0,
		len(in.Duplicate.Flags)+len(in.Vendor.Flags)+len(in.Price.Flags)+2)
	flags = append(flags, in.Duplicate.Flags...)
	flags = append(flags, in.Vendor.Flags...)
	flags = append(flags, in.Price.Flags...)

	if in.Match.MatchType == matching.MatchNone {
		flags = append(flags, Flag{
			Kind:     SignalPattern,
			Type:     FlagNoMatchingPO,
			Severity: SeverityMedium,
			Evidence: "no purchase order matched this invoice",
		})
	}

	if in.Degraded {
		flags = append(flags, Flag{
			Kind:     SignalPattern,
			Type:     FlagDetectorDegraded,
			Severity: SeverityMedium,
			Evidence: "a detector failed; assessment is partial and scored conservatively",
		})
	}

	level := levelFor(score)

	return &Assessment{
		InvoiceID:         in.Invoice.ID,
		Score:             score,
		Level:             level,
		Flags:             flags,
		Action:            decide(level, flags),
		Components:        components,
		SimilarInvoiceIDs: in.Duplicate.SimilarInvoiceIDs,
		BaselineSnapshot:  in.Snapshot,
		Degraded:          in.Degraded,
		AssessedAt:        in.AssessedAt,
	}
}

// duplicateComponent maps duplicate severity onto the normalized component:
// critical or high evidence scores 1.0, medium 0.5, anything else 0.
func duplicateComponent(d DuplicateResult) float64 {
	if !d.IsDuplicate {
		return 0
	}

	switch {
	case d.Severity.AtLeast(SeverityHigh):
		return 1.0
	case d.Severity == SeverityMedium:
		return 0.5
	default:
		return 0
	}
}

func levelFor(score float64) Level {
	switch {
	case score >= levelCriticalMin:
		return LevelCritical
	case score >= levelHighMin:
		return LevelHigh
	case score >= levelMediumMin:
		return LevelMedium
	default:
		return LevelLow
	}
}

// decide walks the decision table top-down; the first row that matches wins.
// A confirmed exact duplicate is an unconditional reject no matter how low
// the aggregate score is.
func decide(level Level, flags []Flag) Action {
	criticalFlags := 0
	exactDuplicate := false

	for _, f := range flags {
		if f.Severity == SeverityCritical {
			criticalFlags++
		}

		if f.Type == FlagExactDuplicate {
			exactDuplicate = true
		}
	}

	switch {
	case exactDuplicate:
		return ActionReject
	case level == LevelCritical:
		return ActionReject
	case criticalFlags >= 2:
		return ActionReject
	case criticalFlags == 1:
		return ActionEscalate
	case level == LevelHigh:
		return ActionInvestigate
	case level == LevelMedium:
		return ActionReview
	default:
		return ActionApprove
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
