package risk_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/risk"
)

func TestValidateWeights(t *testing.T) {
	require.NoError(t, risk.ValidateWeights())
}

func aggregateInputs(mod func(*risk.Inputs)) risk.Inputs {
	in := risk.Inputs{
		Invoice:    dupInvoice(nil),
		Match:      matching.MatchResult{MatchType: matching.MatchExact},
		Snapshot:   establishedVendor(nil),
		AssessedAt: asOf,
	}

	if mod != nil {
		mod(&in)
	}

	return in
}

func TestAggregate_WeightedScore(t *testing.T) {
	in := aggregateInputs(func(in *risk.Inputs) {
		in.Duplicate = risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityMedium}
		in.Vendor = risk.VendorResult{Score: 0.4}
		in.Price = risk.PriceResult{Score: 0.5, AmountScore: 0.2, PatternScore: 0.25}
	})

	a := risk.Aggregate(in)

	// 0.30*0.5 + 0.25*0.4 + 0.20*0.5 + 0.15*0.2 + 0.10*0.25
	assert.InDelta(t, 0.405, a.Score, 1e-9)
	assert.Equal(t, risk.LevelMedium, a.Level)
	assert.Equal(t, risk.ActionReview, a.Action)
	assert.Equal(t, 0.5, a.Components[risk.SignalDuplicate])
}

func TestAggregate_DuplicateComponent(t *testing.T) {
	type testCase struct {
		name string
		dup  risk.DuplicateResult
		want float64
	}

	tests := []testCase{
		{name: "NotDuplicate", dup: risk.DuplicateResult{}, want: 0},
		{
			name: "Medium",
			dup:  risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityMedium},
			want: 0.5,
		},
		{
			name: "High",
			dup:  risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityHigh},
			want: 1.0,
		},
		{
			name: "Critical",
			dup:  risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityCritical},
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) { in.Duplicate = tt.dup }))

			assert.Equal(t, tt.want, a.Components[risk.SignalDuplicate])
		})
	}
}

func TestAggregate_LevelBoundaries(t *testing.T) {
	// Thresholds are inclusive-lower. The vendor component alone drives the
	// score here: score = 0.25 * vendorScore.
	type testCase struct {
		name   string
		vendor float64
		want   risk.Level
	}

	tests := []testCase{
		{name: "JustBelowMedium", vendor: 0.96, want: risk.LevelLow},
		{name: "ExactlyMedium", vendor: 1.0, want: risk.LevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
				in.Vendor = risk.VendorResult{Score: tt.vendor}
			}))

			assert.Equal(t, tt.want, a.Level)
		})
	}

	t.Run("ExactlyHigh", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Duplicate = risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityMedium} // 0.30*0.5
			in.Vendor = risk.VendorResult{Score: 1.0}                                             // 0.25
			in.Price = risk.PriceResult{Score: 0.5}                                               // 0.20*0.5
		}))

		assert.InDelta(t, 0.50, a.Score, 1e-9)
		assert.Equal(t, risk.LevelHigh, a.Level)
	})

	t.Run("ExactlyCritical", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Duplicate = risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityHigh} // 0.30
			in.Vendor = risk.VendorResult{Score: 1.0}                                          // 0.25
			in.Price = risk.PriceResult{Score: 1.0}                                            // 0.20
		}))

		assert.InDelta(t, 0.75, a.Score, 1e-9)
		assert.Equal(t, risk.LevelCritical, a.Level)
	})
}

func TestAggregate_Decisions(t *testing.T) {
	t.Run("ExactDuplicateRejectsRegardlessOfScore", func(t *testing.T) {
		// Everything else is quiet; the exact-duplicate row still wins.
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Duplicate = risk.DuplicateResult{
				IsDuplicate: true,
				Severity:    risk.SeverityCritical,
				Flags: []risk.Flag{{
					Kind: risk.SignalDuplicate, Type: risk.FlagExactDuplicate, Severity: risk.SeverityCritical,
				}},
			}
		}))

		assert.Equal(t, risk.ActionReject, a.Action)
	})

	t.Run("TwoCriticalFlagsReject", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Vendor = risk.VendorResult{Flags: []risk.Flag{
				{Kind: risk.SignalVendor, Type: risk.FlagOpenFraudFlags, Severity: risk.SeverityCritical},
			}}
			in.Price = risk.PriceResult{Flags: []risk.Flag{
				{Kind: risk.SignalPrice, Type: risk.FlagPriceAnomaly, Severity: risk.SeverityCritical},
			}}
		}))

		assert.Equal(t, risk.ActionReject, a.Action)
	})

	t.Run("OneCriticalFlagEscalates", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Vendor = risk.VendorResult{Flags: []risk.Flag{
				{Kind: risk.SignalVendor, Type: risk.FlagOpenFraudFlags, Severity: risk.SeverityCritical},
			}}
		}))

		assert.Equal(t, risk.ActionEscalate, a.Action)
	})

	t.Run("HighLevelInvestigates", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Duplicate = risk.DuplicateResult{IsDuplicate: true, Severity: risk.SeverityMedium}
			in.Vendor = risk.VendorResult{Score: 1.0}
			in.Price = risk.PriceResult{Score: 0.5}
		}))

		assert.Equal(t, risk.ActionInvestigate, a.Action)
	})

	t.Run("LowLevelApproves", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(nil))

		assert.Equal(t, risk.ActionApprove, a.Action)
		assert.Equal(t, risk.LevelLow, a.Level)
	})
}

func TestAggregate_SyntheticFlags(t *testing.T) {
	t.Run("NoMatchingPO", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Match = matching.MatchResult{MatchType: matching.MatchNone}
		}))

		assert.Contains(t, flagTypes(a.Flags), risk.FlagNoMatchingPO)
	})

	t.Run("DetectorDegraded", func(t *testing.T) {
		a := risk.Aggregate(aggregateInputs(func(in *risk.Inputs) {
			in.Degraded = true
		}))

		assert.True(t, a.Degraded)
		assert.Contains(t, flagTypes(a.Flags), risk.FlagDetectorDegraded)
	})
}

func TestAggregate_CarriesProvenance(t *testing.T) {
	similar := []uuid.UUID{uuid.New()}

	in := aggregateInputs(func(in *risk.Inputs) {
		in.Duplicate = risk.DuplicateResult{
			IsDuplicate:       true,
			Severity:          risk.SeverityMedium,
			SimilarInvoiceIDs: similar,
		}
	})

	a := risk.Aggregate(in)

	assert.Equal(t, in.Invoice.ID, a.InvoiceID)
	assert.Equal(t, similar, a.SimilarInvoiceIDs)
	assert.Equal(t, in.Snapshot.ID, a.BaselineSnapshot.ID)
	assert.Equal(t, asOf, a.AssessedAt)
}
