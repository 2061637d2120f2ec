// Package frontier sweeps target returns through the optimizer to trace
// the efficient risk/return curve.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/riskmodel"
)

// DefaultNumPoints is the number of frontier points generated when the
// caller does not ask for a specific count.
const DefaultNumPoints = 50

// Point is one portfolio on the frontier.
type Point struct {
	Risk    float64             `json:"risk"`
	Return  float64             `json:"return"`
	Weights domain.WeightVector `json:"weights"`
}

// Frontier is the ordered sweep result: points sorted by ascending risk
// (ties broken by ascending return) plus the target levels that had to be
// skipped as infeasible.
type Frontier struct {
	Points         []Point   `json:"points"`
	SkippedTargets []float64 `json:"skipped_targets,omitempty"`
}

// Generator produces efficient frontiers. Per-point optimizations are
// independent and run in parallel; results are assembled and sorted before
// returning.
type Generator struct {
	optimizer   *optimization.Optimizer
	model       *riskmodel.Model
	parallelism int
	log         zerolog.Logger
}

// New creates a new frontier generator.
func New(optimizer *optimization.Optimizer, model *riskmodel.Model, log zerolog.Logger) *Generator {
	return &Generator{
		optimizer:   optimizer,
		model:       model,
		parallelism: runtime.GOMAXPROCS(0),
		log:         log.With().Str("component", "frontier").Logger(),
	}
}

// Generate sweeps numPoints evenly spaced target returns between the
// minimum-variance return and the highest achievable return, inclusive of
// both ends. Individual infeasible targets are skipped and reported; any
// other failure, including cancellation, aborts the whole sweep.
func (g *Generator) Generate(
	ctx context.Context,
	matrix *domain.ReturnsMatrix,
	cons optimization.Constraints,
	numPoints int,
) (*Frontier, error) {
	if numPoints <= 0 {
		numPoints = DefaultNumPoints
	}
	if numPoints < 2 {
		return nil, fmt.Errorf("frontier requires at least 2 points, got %d", numPoints)
	}

	minVar, err := g.optimizer.Optimize(ctx, matrix, optimization.MinVariance, cons)
	if err != nil {
		return nil, err
	}
	low := minVar.ExpectedReturn

	high, err := g.maxTargetReturn(matrix, cons)
	if err != nil {
		return nil, err
	}
	if high < low {
		high = low
	}

	targets := make([]float64, numPoints)
	for i := 0; i < numPoints; i++ {
		targets[i] = low + (high-low)*float64(i)/float64(numPoints-1)
	}

	points := make([]*Point, numPoints)
	skipped := make([]bool, numPoints)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.parallelism)

	for i, target := range targets {
		i, target := i, target
		group.Go(func() error {
			pointCons := cons
			pointCons.TargetReturn = &target

			result, err := g.optimizer.Optimize(groupCtx, matrix, optimization.TargetReturn, pointCons)
			if err != nil {
				var infeasible *domain.InfeasibleConstraintsError
				if errors.As(err, &infeasible) {
					skipped[i] = true
					return nil
				}
				return err
			}

			points[i] = &Point{
				Risk:    result.Volatility,
				Return:  result.ExpectedReturn,
				Weights: result.Weights,
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !domain.IsCancelled(err) {
			return nil, &domain.CancelledError{Stage: "frontier", Err: ctxErr}
		}
		return nil, err
	}

	frontier := &Frontier{Points: make([]Point, 0, numPoints)}
	for i, p := range points {
		if skipped[i] {
			frontier.SkippedTargets = append(frontier.SkippedTargets, targets[i])
			continue
		}
		if p != nil {
			frontier.Points = append(frontier.Points, *p)
		}
	}

	sort.SliceStable(frontier.Points, func(a, b int) bool {
		if frontier.Points[a].Risk != frontier.Points[b].Risk {
			return frontier.Points[a].Risk < frontier.Points[b].Risk
		}
		return frontier.Points[a].Return < frontier.Points[b].Return
	})

	g.log.Debug().
		Int("requested", numPoints).
		Int("generated", len(frontier.Points)).
		Int("skipped", len(frontier.SkippedTargets)).
		Msg("Frontier sweep complete")

	return frontier, nil
}

// maxTargetReturn anchors the high end of the sweep: the best achievable
// return under the bounds, or the best single-asset return when shorting
// makes the upside unbounded.
func (g *Generator) maxTargetReturn(matrix *domain.ReturnsMatrix, cons optimization.Constraints) (float64, error) {
	mu, err := g.model.MeanVector(matrix)
	if err != nil {
		return 0, err
	}

	best := mu[0]
	for _, m := range mu[1:] {
		if m > best {
			best = m
		}
	}

	achievable, err := g.optimizer.MaxAchievableReturn(matrix, cons)
	if err != nil {
		return 0, err
	}
	if achievable < best {
		return achievable, nil
	}
	return best, nil
}
