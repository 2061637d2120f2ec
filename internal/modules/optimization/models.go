// Package optimization solves constrained mean-variance weight allocation
// problems over historical return matrices.
package optimization

import (
	"fmt"

	"github.com/quantex/analytics/internal/domain"
)

// Objective selects the optimization target.
type Objective string

const (
	// MaxSharpe maximizes (wᵀμ - r_f) / sqrt(wᵀΣw).
	MaxSharpe Objective = "max_sharpe"
	// MinVariance minimizes wᵀΣw subject to the budget constraint.
	MinVariance Objective = "min_variance"
	// TargetReturn minimizes wᵀΣw subject to wᵀμ >= target.
	TargetReturn Objective = "target_return"
)

// ParseObjective converts a wire-format string into an Objective.
func ParseObjective(s string) (Objective, error) {
	switch Objective(s) {
	case MaxSharpe, MinVariance, TargetReturn:
		return Objective(s), nil
	default:
		return "", fmt.Errorf("unknown objective %q (expected max_sharpe, min_variance or target_return)", s)
	}
}

// DefaultRiskFreeRate is the annual risk-free rate assumed when the caller
// does not supply one. Used only by the Sharpe objective.
const DefaultRiskFreeRate = 0.02

// WeightEpsilon is the magnitude below which weights are clamped to exactly
// zero before renormalization.
const WeightEpsilon = 1e-8

// Constraints configures the feasible region of an optimization problem.
// The zero value is not useful; construct via DefaultConstraints.
type Constraints struct {
	// AllowShort relaxes the non-negativity constraint on weights.
	AllowShort bool `json:"allow_short"`
	// TargetReturn activates the per-period return floor wᵀμ >= target.
	// Required for the TargetReturn objective, ignored otherwise.
	TargetReturn *float64 `json:"target_return,omitempty"`
	// MaxWeightPerAsset caps each individual weight.
	MaxWeightPerAsset *float64 `json:"max_weight_per_asset,omitempty"`
	// RiskFreeRate is the annual risk-free rate for the Sharpe objective.
	RiskFreeRate float64 `json:"risk_free_rate"`
}

// DefaultConstraints returns the long-only, uncapped constraint set.
func DefaultConstraints() Constraints {
	return Constraints{
		AllowShort:   false,
		RiskFreeRate: DefaultRiskFreeRate,
	}
}

// Result pairs the optimal weights with the statistics achieved at them.
type Result struct {
	Weights        domain.WeightVector `json:"weights"`
	ExpectedReturn float64             `json:"expected_return"`
	Volatility     float64             `json:"volatility"`
	SharpeRatio    *float64            `json:"sharpe_ratio,omitempty"`
	Objective      Objective           `json:"objective"`
}
