package optimization

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/riskmodel"
)

const (
	maxIterations    = 5000
	convergenceTol   = 1e-11
	cancelCheckEvery = 64
)

// penaltyStages ramps the quadratic penalty on the return-floor constraint.
// The floor is additionally enforced exactly by a feasible blend step in
// the optimizer, so the ramp only needs to steer the iterate.
var penaltyStages = []float64{1e2, 1e4, 1e6}

// solveBoundedQP minimizes wᵀΣw over {sum(w)=1, lb<=w<=ub} by projected
// gradient descent. When target is non-nil the return floor muᵀw >= *target
// is folded in as a quadratic penalty with an increasing weight schedule.
// Deterministic: fixed equal-weight start, fixed iteration schedule.
func solveBoundedQP(
	ctx context.Context,
	cov *riskmodel.CovarianceMatrix,
	mu []float64,
	target *float64,
	lb, ub []float64,
) ([]float64, error) {
	n := cov.Dim()
	sigma := cov.Sym()

	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	w = projectCappedSimplex(w, lb, ub)

	frob := mat.Norm(sigma, 2)
	muNormSq := 0.0
	for _, m := range mu {
		muNormSq += m * m
	}

	stages := []float64{0}
	if target != nil {
		stages = penaltyStages
	}

	grad := make([]float64, n)
	sigmaW := mat.NewVecDense(n, nil)

	for _, lambda := range stages {
		// gradient Lipschitz bound for the penalized objective
		lipschitz := 2*frob + 2*lambda*muNormSq
		if lipschitz < 1e-12 {
			lipschitz = 1e-12
		}
		step := 1.0 / lipschitz

		for iter := 0; iter < maxIterations; iter++ {
			if iter%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, &domain.CancelledError{Stage: "optimizer", Err: err}
				}
			}

			sigmaW.MulVec(sigma, mat.NewVecDense(n, w))

			violation := 0.0
			if target != nil {
				achieved := dot(mu, w)
				if achieved < *target {
					violation = *target - achieved
				}
			}

			for i := 0; i < n; i++ {
				grad[i] = 2 * sigmaW.AtVec(i)
				if violation > 0 {
					grad[i] -= 2 * lambda * violation * mu[i]
				}
			}

			next := make([]float64, n)
			for i := 0; i < n; i++ {
				next[i] = w[i] - step*grad[i]
			}
			next = projectCappedSimplex(next, lb, ub)

			delta := 0.0
			for i := 0; i < n; i++ {
				if d := math.Abs(next[i] - w[i]); d > delta {
					delta = d
				}
			}
			w = next
			if delta < convergenceTol {
				break
			}
		}
	}

	return w, nil
}

// solveShortMinVariance returns the closed-form global minimum-variance
// portfolio with shorting allowed: w = Σ⁻¹1 / (1ᵀΣ⁻¹1).
func solveShortMinVariance(cov *riskmodel.CovarianceMatrix) ([]float64, error) {
	n := cov.Dim()
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	x, err := choleskySolve(cov.Sym(), ones)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, v := range x {
		total += v
	}
	if math.Abs(total) < 1e-15 {
		return nil, fmt.Errorf("min-variance solution undefined: 1ᵀΣ⁻¹1 is zero")
	}
	for i := range x {
		x[i] /= total
	}
	return x, nil
}

// solveShortTargetReturn returns the closed-form minimum-variance portfolio
// achieving muᵀw = target with shorting allowed (two-fund separation).
func solveShortTargetReturn(cov *riskmodel.CovarianceMatrix, mu []float64, target float64) ([]float64, error) {
	n := cov.Dim()
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	invOnes, err := choleskySolve(cov.Sym(), ones)
	if err != nil {
		return nil, err
	}
	invMu, err := choleskySolve(cov.Sym(), mu)
	if err != nil {
		return nil, err
	}

	a := dot(ones, invOnes)
	b := dot(ones, invMu)
	c := dot(mu, invMu)
	d := a*c - b*b
	if math.Abs(d) < 1e-18 {
		return nil, fmt.Errorf("target-return solution undefined: degenerate mean/covariance structure")
	}

	lam := (c - b*target) / d
	gam := (a*target - b) / d

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = lam*invOnes[i] + gam*invMu[i]
	}
	return w, nil
}

// solveTangency returns the closed-form maximum-Sharpe (tangency) portfolio
// with shorting allowed: w ∝ Σ⁻¹(μ - r_f·1).
func solveTangency(cov *riskmodel.CovarianceMatrix, mu []float64, riskFree float64) ([]float64, error) {
	n := cov.Dim()
	excess := make([]float64, n)
	for i := range excess {
		excess[i] = mu[i] - riskFree
	}

	x, err := choleskySolve(cov.Sym(), excess)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, v := range x {
		total += v
	}
	if math.Abs(total) < 1e-15 {
		return nil, fmt.Errorf("tangency portfolio undefined: excess returns orthogonal to budget constraint")
	}
	for i := range x {
		x[i] /= total
	}
	return x, nil
}

// choleskySolve solves Σx = b via Cholesky factorization, adding a small
// ridge to the diagonal when Σ is only positive-semidefinite.
func choleskySolve(sigma *mat.SymDense, b []float64) ([]float64, error) {
	n := len(b)
	rhs := mat.NewVecDense(n, b)

	ridge := 0.0
	for attempt := 0; attempt < 4; attempt++ {
		work := mat.NewSymDense(n, nil)
		work.CopySym(sigma)
		if ridge > 0 {
			for i := 0; i < n; i++ {
				work.SetSym(i, i, work.At(i, i)+ridge)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(work) {
			var x mat.VecDense
			if err := chol.SolveVecTo(&x, rhs); err == nil {
				out := make([]float64, n)
				for i := 0; i < n; i++ {
					out[i] = x.AtVec(i)
				}
				return out, nil
			}
		}

		if ridge == 0 {
			ridge = 1e-12 * (1 + mat.Norm(sigma, 2))
		} else {
			ridge *= 100
		}
	}

	return nil, fmt.Errorf("covariance matrix is not positive definite even after regularization")
}

func dot(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		total += a[i] * b[i]
	}
	return total
}
