package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apguard/apguard/internal/risk"
	"github.com/apguard/apguard/internal/workflow"
)

func validChain(mod func(*workflow.Chain)) workflow.Chain {
	c := workflow.Chain{
		Name:      "test-chain",
		MinAmount: 0,
		MaxAmount: 100_000,
		Levels: []workflow.Level{
			{Name: "manager", Required: 1, Timeout: 24 * time.Hour},
		},
		OnTimeout: workflow.TimeoutEscalate,
	}

	if mod != nil {
		mod(&c)
	}

	return c
}

func TestChainValidate(t *testing.T) {
	type testCase struct {
		name    string
		mod     func(*workflow.Chain)
		wantErr string
	}

	tests := []testCase{
		{name: "Valid", mod: nil},
		{
			name:    "NoName",
			mod:     func(c *workflow.Chain) { c.Name = "" },
			wantErr: "no name",
		},
		{
			name:    "NoLevels",
			mod:     func(c *workflow.Chain) { c.Levels = nil },
			wantErr: "no levels",
		},
		{
			name:    "EmptyAmountRange",
			mod:     func(c *workflow.Chain) { c.MinAmount = 100_000; c.MaxAmount = 100_000 },
			wantErr: "empty amount range",
		},
		{
			name:    "ZeroRequired",
			mod:     func(c *workflow.Chain) { c.Levels[0].Required = 0 },
			wantErr: "requires 0 approvers",
		},
		{
			name:    "NoTimeout",
			mod:     func(c *workflow.Chain) { c.Levels[0].Timeout = 0 },
			wantErr: "no timeout",
		},
		{
			name:    "UnknownTimeoutPolicy",
			mod:     func(c *workflow.Chain) { c.OnTimeout = "retry" },
			wantErr: "unknown timeout policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validChain(tt.mod).Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestChainRequiresESign(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		c := validChain(nil)
		assert.False(t, c.RequiresESign(1_000_000_00))
	})

	t.Run("Threshold", func(t *testing.T) {
		c := validChain(func(c *workflow.Chain) { c.ESignThreshold = 10_000_00 })

		assert.False(t, c.RequiresESign(9_999_99))
		assert.True(t, c.RequiresESign(10_000_00))
	})

	t.Run("Always", func(t *testing.T) {
		c := validChain(func(c *workflow.Chain) { c.ESignAlways = true })
		assert.True(t, c.RequiresESign(0))
	})
}

func TestChainContains(t *testing.T) {
	c := validChain(func(c *workflow.Chain) { c.MinAmount = 100; c.MaxAmount = 200 })

	assert.False(t, c.Contains(99))
	assert.True(t, c.Contains(100))
	assert.True(t, c.Contains(199))
	assert.False(t, c.Contains(200))

	unbounded := validChain(func(c *workflow.Chain) { c.MinAmount = 100; c.MaxAmount = 0 })
	assert.True(t, unbounded.Contains(1<<40))
}

func TestNewChainSet(t *testing.T) {
	chains, strict := workflow.DefaultChains()

	t.Run("DefaultsAreValid", func(t *testing.T) {
		_, err := workflow.NewChainSet(chains, strict)
		assert.NoError(t, err)
	})

	t.Run("EmptySet", func(t *testing.T) {
		_, err := workflow.NewChainSet(nil, strict)
		assert.ErrorContains(t, err, "no approval chains")
	})

	t.Run("InvalidTemplate", func(t *testing.T) {
		bad := validChain(func(c *workflow.Chain) { c.Levels = nil })

		_, err := workflow.NewChainSet([]workflow.Chain{bad}, strict)
		assert.ErrorContains(t, err, "invalid chain")
	})

	t.Run("StrictMustAlwaysESign", func(t *testing.T) {
		lax := strict
		lax.ESignAlways = false

		_, err := workflow.NewChainSet(chains, lax)
		assert.ErrorContains(t, err, "must always require e-sign")
	})
}

func TestChainSetSelect(t *testing.T) {
	chains, strict := workflow.DefaultChains()
	cs, err := workflow.NewChainSet(chains, strict)
	require.NoError(t, err)

	type testCase struct {
		name   string
		amount int64
		action risk.Action
		want   string
	}

	tests := []testCase{
		{name: "LowValue", amount: 500_00, action: risk.ActionApprove, want: "low-value"},
		{name: "MidValue", amount: 5_000_00, action: risk.ActionReview, want: "mid-value"},
		{name: "HighValue", amount: 80_000_00, action: risk.ActionInvestigate, want: "high-value"},
		{name: "EscalateOverridesAmount", amount: 500_00, action: risk.ActionEscalate, want: "strict-review"},
		{name: "RejectOverridesAmount", amount: 500_00, action: risk.ActionReject, want: "strict-review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cs.Select(tt.amount, tt.action).Name)
		})
	}

	t.Run("UncoveredAmountFallsBackToStrict", func(t *testing.T) {
		bounded := []workflow.Chain{validChain(func(c *workflow.Chain) { c.MaxAmount = 100 })}

		cs, err := workflow.NewChainSet(bounded, strict)
		require.NoError(t, err)

		assert.Equal(t, "strict-review", cs.Select(500, risk.ActionApprove).Name)
	})
}
