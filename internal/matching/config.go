package matching

import "fmt"

// Config holds the matching thresholds. The decay shape and tie-break
// constants are defaults, not gospel; deployments tune them here.
type Config struct {
	// FuzzyThreshold is the minimum weighted score for a fuzzy match.
	FuzzyThreshold float64
	// PartialThreshold is the minimum weighted score for a partial match;
	// anything below is no match.
	PartialThreshold float64
	// TieEpsilon is the score distance within which two candidates are
	// considered tied and broken deterministically.
	TieEpsilon float64
	// DateWindowDays is the span over which date proximity decays linearly
	// to zero, measured from PO order date to invoice date.
	DateWindowDays int
	// BackdateGraceDays tolerates invoices dated slightly before the PO
	// order date.
	BackdateGraceDays int
	// AmountTolerancePct is the relative difference under which amounts are
	// considered equal (no discrepancy).
	AmountTolerancePct float64
	// LineSimilarityMin is the minimum description similarity to pair an
	// invoice line with a PO line.
	LineSimilarityMin float64
}

func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:     0.85,
		PartialThreshold:   0.70,
		TieEpsilon:         0.01,
		DateWindowDays:     90,
		BackdateGraceDays:  3,
		AmountTolerancePct: 0.02,
		LineSimilarityMin:  0.8,
	}
}

func (c Config) Validate() error {
	if c.PartialThreshold <= 0 || c.FuzzyThreshold <= c.PartialThreshold {
		return fmt.Errorf("thresholds must satisfy 0 < partial < fuzzy, got partial=%v fuzzy=%v",
			c.PartialThreshold, c.FuzzyThreshold)
	}

	if c.DateWindowDays <= 0 {
		return fmt.Errorf("date window must be positive, got %d", c.DateWindowDays)
	}

	if c.AmountTolerancePct < 0 || c.AmountTolerancePct >= 1 {
		return fmt.Errorf("amount tolerance must be in [0,1), got %v", c.AmountTolerancePct)
	}

	return nil
}
