package workflow

import (
	"fmt"
	"time"

	"github.com/apguard/apguard/internal/risk"
)

// TimeoutPolicy decides what happens when a level's clock runs out.
type TimeoutPolicy string

const (
	// TimeoutEscalate reroutes the stalled level to the escalation
	// authority. Default.
	TimeoutEscalate TimeoutPolicy = "escalate"
	// TimeoutExpire terminates the workflow as expired.
	TimeoutExpire TimeoutPolicy = "expire"
)

// Level is one rung of an approval chain.
type Level struct {
	Name string
	// Required is how many distinct approvals complete the level.
	Required int
	// Timeout is the per-level clock before the chain's timeout policy
	// kicks in.
	Timeout time.Duration
}

// Chain is an approval chain template: which levels an invoice in a given
// amount range must clear, and under what rules. Templates are validated at
// load time; a malformed chain never reaches a running workflow.
type Chain struct {
	Name string
	// [MinAmount, MaxAmount) in minor units; MaxAmount 0 means unbounded.
	MinAmount int64
	MaxAmount int64
	Levels    []Level
	// Parallel marks chains whose level approvers are solicited all at
	// once rather than one after another. The state machine is identical;
	// delivery order is the notification collaborator's concern.
	Parallel bool
	// ESignThreshold is the amount at or above which final approval needs
	// an electronic signature. Zero disables e-sign.
	ESignThreshold int64
	// ESignAlways forces e-sign regardless of amount (strict chains).
	ESignAlways bool
	OnTimeout   TimeoutPolicy
}

func (c Chain) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("chain has no name")
	}

	if len(c.Levels) == 0 {
		return fmt.Errorf("chain %s has no levels", c.Name)
	}

	if c.MaxAmount != 0 && c.MaxAmount <= c.MinAmount {
		return fmt.Errorf("chain %s has empty amount range [%d,%d)", c.Name, c.MinAmount, c.MaxAmount)
	}

	for i, lvl := range c.Levels {
		if lvl.Required < 1 {
			return fmt.Errorf("chain %s level %d requires %d approvers", c.Name, i, lvl.Required)
		}

		if lvl.Timeout <= 0 {
			return fmt.Errorf("chain %s level %d has no timeout", c.Name, i)
		}
	}

	switch c.OnTimeout {
	case TimeoutEscalate, TimeoutExpire:
	default:
		return fmt.Errorf("chain %s has unknown timeout policy %q", c.Name, c.OnTimeout)
	}

	return nil
}

// RequiresESign reports whether final approval of the given amount needs a
// signature.
func (c Chain) RequiresESign(amount int64) bool {
	if c.ESignAlways {
		return true
	}

	return c.ESignThreshold > 0 && amount >= c.ESignThreshold
}

// Contains reports whether the amount falls in the chain's range.
func (c Chain) Contains(amount int64) bool {
	if amount < c.MinAmount {
		return false
	}

	return c.MaxAmount == 0 || amount < c.MaxAmount
}

// ChainSet is the loaded, validated set of chain templates plus the strict
// chain used when risk recommends escalation or rejection.
type ChainSet struct {
	chains []Chain
	strict Chain
}

// NewChainSet validates every template up front. Configuration problems are
// fatal here, never at submit time.
func NewChainSet(chains []Chain, strict Chain) (*ChainSet, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("no approval chains configured")
	}

	for _, c := range chains {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid chain: %w", err)
		}
	}

	if err := strict.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strict chain: %w", err)
	}

	if !strict.RequiresESign(0) {
		return nil, fmt.Errorf("strict chain %s must always require e-sign", strict.Name)
	}

	return &ChainSet{chains: chains, strict: strict}, nil
}

// Select picks the chain for an invoice. A risk recommendation of reject or
// escalate overrides the amount ranges with the strict chain; an amount no
// range covers falls back to the strict chain as well, the conservative
// choice.
func (cs *ChainSet) Select(amount int64, recommended risk.Action) Chain {
	if recommended == risk.ActionReject || recommended == risk.ActionEscalate {
		return cs.strict
	}

	for _, c := range cs.chains {
		if c.Contains(amount) {
			return c
		}
	}

	return cs.strict
}

// DefaultChains returns a three-tier template set and the strict chain.
// Amounts are minor units.
func DefaultChains() ([]Chain, Chain) {
	chains := []Chain{
		{
			Name:      "low-value",
			MinAmount: 0,
			MaxAmount: 1_000_00,
			Levels: []Level{
				{Name: "manager", Required: 1, Timeout: 48 * time.Hour},
			},
			OnTimeout: TimeoutEscalate,
		},
		{
			Name:      "mid-value",
			MinAmount: 1_000_00,
			MaxAmount: 25_000_00,
			Levels: []Level{
				{Name: "manager", Required: 1, Timeout: 48 * time.Hour},
				{Name: "finance", Required: 1, Timeout: 72 * time.Hour},
			},
			ESignThreshold: 10_000_00,
			OnTimeout:      TimeoutEscalate,
		},
		{
			Name:      "high-value",
			MinAmount: 25_000_00,
			MaxAmount: 0,
			Levels: []Level{
				{Name: "manager", Required: 1, Timeout: 24 * time.Hour},
				{Name: "finance", Required: 2, Timeout: 72 * time.Hour},
				{Name: "cfo", Required: 1, Timeout: 96 * time.Hour},
			},
			Parallel:       true,
			ESignThreshold: 25_000_00,
			OnTimeout:      TimeoutEscalate,
		},
	}

	strict := Chain{
		Name:      "strict-review",
		MinAmount: 0,
		MaxAmount: 0,
		Levels: []Level{
			{Name: "manager", Required: 1, Timeout: 24 * time.Hour},
			{Name: "finance", Required: 1, Timeout: 48 * time.Hour},
			{Name: "compliance", Required: 1, Timeout: 48 * time.Hour},
			{Name: "cfo", Required: 1, Timeout: 72 * time.Hour},
		},
		ESignAlways: true,
		OnTimeout:   TimeoutEscalate,
	}

	return chains, strict
}
