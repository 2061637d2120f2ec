package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/riskmodel"
)

// feasibilityTol is the slack allowed when checking the return floor
// against the maximum achievable return.
const feasibilityTol = 1e-9

// returnFloorTol is the tolerance within which an optimized portfolio must
// satisfy wᵀμ >= target.
const returnFloorTol = 1e-6

// Optimizer solves constrained weight-allocation problems. It is pure:
// identical inputs always produce identical weights.
type Optimizer struct {
	model *riskmodel.Model
	log   zerolog.Logger
}

// New creates a new optimizer backed by the given risk model.
func New(model *riskmodel.Model, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		model: model,
		log:   log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize solves the selected objective over the returns matrix under the
// given constraints and returns the clamped, renormalized weight vector.
func (o *Optimizer) Optimize(
	ctx context.Context,
	matrix *domain.ReturnsMatrix,
	objective Objective,
	cons Constraints,
) (*Result, error) {
	mu, err := o.model.MeanVector(matrix)
	if err != nil {
		return nil, err
	}
	cov, err := o.model.Covariance(matrix)
	if err != nil {
		return nil, err
	}

	lb, ub, err := buildBounds(matrix.NumAssets(), cons)
	if err != nil {
		return nil, err
	}

	var raw []float64
	switch objective {
	case MinVariance:
		raw, err = o.solveMinVariance(ctx, cov, mu, cons, lb, ub)
	case TargetReturn:
		if cons.TargetReturn == nil {
			return nil, fmt.Errorf("target_return objective requires the target_return constraint")
		}
		raw, err = o.solveTargetReturn(ctx, cov, mu, *cons.TargetReturn, cons, lb, ub)
	case MaxSharpe:
		raw, err = o.solveMaxSharpe(ctx, cov, mu, cons, lb, ub)
	default:
		return nil, fmt.Errorf("unknown objective %q", objective)
	}
	if err != nil {
		return nil, err
	}

	weights := clampAndNormalize(raw, matrix.Symbols())

	achieved := dot(mu, raw)
	vol := math.Sqrt(math.Max(cov.PortfolioVariance(raw), 0))

	result := &Result{
		Weights:        weights,
		ExpectedReturn: achieved,
		Volatility:     vol,
		Objective:      objective,
	}
	if vol > 0 {
		riskFree := cons.RiskFreeRate / float64(domain.DefaultPeriodsPerYear)
		sharpe := (achieved - riskFree) / vol
		result.SharpeRatio = &sharpe
	}

	o.log.Debug().
		Str("objective", string(objective)).
		Int("assets", matrix.NumAssets()).
		Float64("expected_return", achieved).
		Float64("volatility", vol).
		Msg("Optimization complete")

	return result, nil
}

// MinVarianceReturn returns the expected return of the minimum-variance
// portfolio under the constraint set. Used by the frontier generator to
// anchor the low end of the target-return range.
func (o *Optimizer) MinVarianceReturn(
	ctx context.Context,
	matrix *domain.ReturnsMatrix,
	cons Constraints,
) (float64, error) {
	result, err := o.Optimize(ctx, matrix, MinVariance, cons)
	if err != nil {
		return 0, err
	}
	return result.ExpectedReturn, nil
}

// MaxAchievableReturn returns the highest expected return reachable under
// the constraint set, or +Inf when shorting without a weight cap makes the
// return unbounded.
func (o *Optimizer) MaxAchievableReturn(
	matrix *domain.ReturnsMatrix,
	cons Constraints,
) (float64, error) {
	mu, err := o.model.MeanVector(matrix)
	if err != nil {
		return 0, err
	}
	lb, ub, err := buildBounds(matrix.NumAssets(), cons)
	if err != nil {
		return 0, err
	}
	if lb == nil {
		return math.Inf(1), nil
	}
	_, maxRet := maxReturnPortfolio(mu, lb, ub)
	return maxRet, nil
}

// solveMinVariance dispatches to the closed form when shorting is
// unrestricted, else to the projected-gradient QP.
func (o *Optimizer) solveMinVariance(
	ctx context.Context,
	cov *riskmodel.CovarianceMatrix,
	mu []float64,
	cons Constraints,
	lb, ub []float64,
) ([]float64, error) {
	if lb == nil {
		return solveShortMinVariance(cov)
	}
	return solveBoundedQP(ctx, cov, mu, nil, lb, ub)
}

// solveTargetReturn minimizes variance subject to the return floor. The
// floor is checked for feasibility up front and guaranteed after the solve
// by blending toward the maximum-return feasible portfolio if needed.
func (o *Optimizer) solveTargetReturn(
	ctx context.Context,
	cov *riskmodel.CovarianceMatrix,
	mu []float64,
	target float64,
	cons Constraints,
	lb, ub []float64,
) ([]float64, error) {
	if lb == nil {
		// shorting without a cap: any return is achievable
		minVar, err := solveShortMinVariance(cov)
		if err != nil {
			return nil, err
		}
		if dot(mu, minVar) >= target {
			return minVar, nil
		}
		return solveShortTargetReturn(cov, mu, target)
	}

	wMax, maxRet := maxReturnPortfolio(mu, lb, ub)
	if target > maxRet+feasibilityTol {
		return nil, &domain.InfeasibleConstraintsError{
			Constraint: "target_return",
			Detail: fmt.Sprintf(
				"target %.6g exceeds maximum achievable return %.6g under the current bounds",
				target, maxRet,
			),
		}
	}

	w, err := solveBoundedQP(ctx, cov, mu, &target, lb, ub)
	if err != nil {
		return nil, err
	}

	// Enforce the floor exactly: blend toward the max-return portfolio.
	// Both endpoints are feasible, so every convex combination is too.
	achieved := dot(mu, w)
	if deficit := target - achieved; deficit > returnFloorTol {
		span := dot(mu, wMax) - achieved
		if span <= 0 {
			return nil, &domain.InfeasibleConstraintsError{
				Constraint: "target_return",
				Detail:     fmt.Sprintf("return floor %.6g unreachable from the feasible region", target),
			}
		}
		t := math.Min(deficit/span, 1)
		for i := range w {
			w[i] = (1-t)*w[i] + t*wMax[i]
		}
	}

	return w, nil
}

// solveMaxSharpe implements the tangency-portfolio technique: with
// unrestricted shorting the closed form applies; otherwise the Sharpe ratio
// is maximized along the efficient frontier by golden-section search over
// target returns, each evaluated as a convex sub-problem.
func (o *Optimizer) solveMaxSharpe(
	ctx context.Context,
	cov *riskmodel.CovarianceMatrix,
	mu []float64,
	cons Constraints,
	lb, ub []float64,
) ([]float64, error) {
	riskFree := cons.RiskFreeRate / float64(domain.DefaultPeriodsPerYear)

	if lb == nil {
		return solveTangency(cov, mu, riskFree)
	}

	minVarW, err := solveBoundedQP(ctx, cov, mu, nil, lb, ub)
	if err != nil {
		return nil, err
	}
	low := dot(mu, minVarW)
	_, high := maxReturnPortfolio(mu, lb, ub)

	if high-low < 1e-12 {
		return minVarW, nil
	}

	sharpeAt := func(target float64) ([]float64, float64, error) {
		w, err := o.solveTargetReturn(ctx, cov, mu, target, cons, lb, ub)
		if err != nil {
			return nil, 0, err
		}
		vol := math.Sqrt(math.Max(cov.PortfolioVariance(w), 0))
		if vol == 0 {
			return w, math.Inf(-1), nil
		}
		return w, (dot(mu, w) - riskFree) / vol, nil
	}

	// The Sharpe ratio is unimodal along the efficient frontier, so a
	// fixed-iteration golden-section search is deterministic and exact
	// enough for the tested invariants.
	const phi = 0.6180339887498949
	a, b := low, high
	x1 := b - phi*(b-a)
	x2 := a + phi*(b-a)

	bestW, bestSharpe, err := sharpeAt(x1)
	if err != nil {
		return nil, err
	}
	w2, s2, err := sharpeAt(x2)
	if err != nil {
		return nil, err
	}
	s1 := bestSharpe
	if s2 > bestSharpe {
		bestW, bestSharpe = w2, s2
	}

	for iter := 0; iter < 40 && b-a > 1e-10; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, &domain.CancelledError{Stage: "optimizer", Err: err}
		}
		if s1 >= s2 {
			b = x2
			x2, s2 = x1, s1
			x1 = b - phi*(b-a)
			var w1 []float64
			w1, s1, err = sharpeAt(x1)
			if err != nil {
				return nil, err
			}
			if s1 > bestSharpe {
				bestW, bestSharpe = w1, s1
			}
		} else {
			a = x1
			x1, s1 = x2, s2
			x2 = a + phi*(b-a)
			w2, s2, err = sharpeAt(x2)
			if err != nil {
				return nil, err
			}
			if s2 > bestSharpe {
				bestW, bestSharpe = w2, s2
			}
		}
	}

	// the min-variance endpoint can win when all excess returns are negative
	if vol := math.Sqrt(math.Max(cov.PortfolioVariance(minVarW), 0)); vol > 0 {
		if s := (low - riskFree) / vol; s > bestSharpe {
			bestW = minVarW
		}
	}

	return bestW, nil
}

// buildBounds translates the constraint set into per-asset box bounds.
// A nil lower bound signals unrestricted shorting (closed-form path).
func buildBounds(n int, cons Constraints) (lb, ub []float64, err error) {
	capWeight := 1.0
	if cons.MaxWeightPerAsset != nil {
		capWeight = *cons.MaxWeightPerAsset
		if capWeight <= 0 {
			return nil, nil, fmt.Errorf("max_weight_per_asset must be positive, got %g", capWeight)
		}
	}

	if cons.AllowShort && cons.MaxWeightPerAsset == nil {
		return nil, nil, nil
	}

	lb = make([]float64, n)
	ub = make([]float64, n)
	for i := 0; i < n; i++ {
		ub[i] = capWeight
		if cons.AllowShort {
			lb[i] = -capWeight
		}
	}

	total := 0.0
	for i := 0; i < n; i++ {
		total += ub[i]
	}
	if total < 1-feasibilityTol {
		return nil, nil, &domain.InfeasibleConstraintsError{
			Constraint: "max_weight_per_asset",
			Detail: fmt.Sprintf(
				"%d assets capped at %.4g allocate at most %.4g of the budget",
				n, capWeight, total,
			),
		}
	}

	return lb, ub, nil
}

// maxReturnPortfolio greedily allocates the budget to the highest-return
// assets within the box bounds, returning the weights and their return.
func maxReturnPortfolio(mu, lb, ub []float64) ([]float64, float64) {
	n := len(mu)
	w := make([]float64, n)
	remaining := 1.0
	for i := 0; i < n; i++ {
		w[i] = lb[i]
		remaining -= lb[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return mu[order[a]] > mu[order[b]]
	})

	for _, i := range order {
		if remaining <= 0 {
			break
		}
		room := ub[i] - w[i]
		if room > remaining {
			room = remaining
		}
		w[i] += room
		remaining -= room
	}

	return w, dot(mu, w)
}

// clampAndNormalize zeroes weights below WeightEpsilon in magnitude and
// renormalizes the survivors to sum to exactly 1.0.
func clampAndNormalize(w []float64, symbols []string) domain.WeightVector {
	total := 0.0
	for i := range w {
		if math.Abs(w[i]) < WeightEpsilon {
			w[i] = 0
		}
		total += w[i]
	}

	weights := make(domain.WeightVector, len(symbols))
	for i, symbol := range symbols {
		if total != 0 {
			weights[symbol] = w[i] / total
		} else {
			weights[symbol] = w[i]
		}
	}
	return weights
}
