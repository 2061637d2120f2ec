// Package analysis is the reporting façade: it orchestrates the risk
// model, optimizer, frontier generator and risk analyzer into a single
// response for the presentation layer.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/frontier"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/risk"
	"github.com/quantex/analytics/internal/modules/riskmodel"
)

// DefaultCorrelationThreshold flags asset pairs whose absolute correlation
// meets or exceeds this value in the analysis response.
const DefaultCorrelationThreshold = 0.8

// Options configures a façade run.
type Options struct {
	// FrontierPoints requests an efficient frontier with that many points;
	// zero skips the frontier sweep entirely.
	FrontierPoints int `json:"frontier_points"`
	// Risk configures the risk analyzer.
	Risk risk.Options `json:"risk"`
	// CorrelationThreshold overrides DefaultCorrelationThreshold when > 0.
	CorrelationThreshold float64 `json:"correlation_threshold"`
}

// DefaultOptions skips the frontier and uses analyzer defaults.
func DefaultOptions() Options {
	return Options{
		Risk:                 risk.DefaultOptions(),
		CorrelationThreshold: DefaultCorrelationThreshold,
	}
}

// Result is the assembled analysis response.
type Result struct {
	ID               string                      `json:"id" msgpack:"id"`
	GeneratedAt      time.Time                   `json:"generated_at" msgpack:"generated_at"`
	Objective        optimization.Objective      `json:"objective" msgpack:"objective"`
	Weights          domain.WeightVector         `json:"weights" msgpack:"weights"`
	ExpectedReturn   float64                     `json:"expected_return" msgpack:"expected_return"`
	Volatility       float64                     `json:"volatility" msgpack:"volatility"`
	RiskReport       *risk.Report                `json:"risk_report" msgpack:"risk_report"`
	Frontier         *frontier.Frontier          `json:"frontier,omitempty" msgpack:"frontier,omitempty"`
	HighCorrelations []riskmodel.CorrelationPair `json:"high_correlations,omitempty" msgpack:"high_correlations,omitempty"`
}

// Service wires the analysis pipeline together in dependency order.
type Service struct {
	model     *riskmodel.Model
	optimizer *optimization.Optimizer
	frontier  *frontier.Generator
	analyzer  *risk.Analyzer
	snapshots *SnapshotRepository
	log       zerolog.Logger
}

// NewService creates a new analysis service. The snapshot repository is
// optional; with nil, results are not persisted.
func NewService(
	model *riskmodel.Model,
	optimizer *optimization.Optimizer,
	generator *frontier.Generator,
	analyzer *risk.Analyzer,
	snapshots *SnapshotRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		model:     model,
		optimizer: optimizer,
		frontier:  generator,
		analyzer:  analyzer,
		snapshots: snapshots,
		log:       log.With().Str("component", "analysis").Logger(),
	}
}

// RunAnalysis optimizes weights for the objective, analyzes the resulting
// portfolio and optionally sweeps the efficient frontier. Failures from
// child components propagate unchanged, wrapped only with the originating
// component's tag.
func (s *Service) RunAnalysis(
	ctx context.Context,
	matrix *domain.ReturnsMatrix,
	objective optimization.Objective,
	cons optimization.Constraints,
	opts Options,
) (*Result, error) {
	started := time.Now()

	optimized, err := s.optimizer.Optimize(ctx, matrix, objective, cons)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}

	report, err := s.analyzer.Analyze(matrix, optimized.Weights, opts.Risk)
	if err != nil {
		return nil, fmt.Errorf("risk analyzer: %w", err)
	}

	result := &Result{
		ID:             uuid.NewString(),
		GeneratedAt:    started,
		Objective:      objective,
		Weights:        optimized.Weights,
		ExpectedReturn: optimized.ExpectedReturn,
		Volatility:     optimized.Volatility,
		RiskReport:     report,
	}

	if opts.FrontierPoints > 0 {
		sweep, err := s.frontier.Generate(ctx, matrix, cons, opts.FrontierPoints)
		if err != nil {
			return nil, fmt.Errorf("frontier: %w", err)
		}
		result.Frontier = sweep
	}

	threshold := opts.CorrelationThreshold
	if threshold <= 0 {
		threshold = DefaultCorrelationThreshold
	}
	pairs, err := s.model.HighCorrelations(matrix, threshold)
	if err != nil {
		return nil, fmt.Errorf("risk model: %w", err)
	}
	result.HighCorrelations = pairs

	if s.snapshots != nil {
		if err := s.snapshots.Save(result); err != nil {
			// persistence is advisory; the computed result is still valid
			s.log.Warn().Err(err).Str("id", result.ID).Msg("Failed to persist analysis snapshot")
		}
	}

	s.log.Info().
		Str("id", result.ID).
		Str("objective", string(objective)).
		Int("assets", matrix.NumAssets()).
		Dur("duration_ms", time.Since(started)).
		Msg("Analysis complete")

	return result, nil
}

// Optimize runs only the optimizer stage.
func (s *Service) Optimize(
	ctx context.Context,
	matrix *domain.ReturnsMatrix,
	objective optimization.Objective,
	cons optimization.Constraints,
) (*optimization.Result, error) {
	result, err := s.optimizer.Optimize(ctx, matrix, objective, cons)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	return result, nil
}

// Frontier runs only the frontier sweep.
func (s *Service) Frontier(
	ctx context.Context,
	matrix *domain.ReturnsMatrix,
	cons optimization.Constraints,
	numPoints int,
) (*frontier.Frontier, error) {
	sweep, err := s.frontier.Generate(ctx, matrix, cons, numPoints)
	if err != nil {
		return nil, fmt.Errorf("frontier: %w", err)
	}
	return sweep, nil
}

// RiskReport runs only the risk analyzer for caller-supplied weights.
func (s *Service) RiskReport(
	matrix *domain.ReturnsMatrix,
	weights domain.WeightVector,
	opts risk.Options,
) (*risk.Report, error) {
	report, err := s.analyzer.Analyze(matrix, weights, opts)
	if err != nil {
		return nil, fmt.Errorf("risk analyzer: %w", err)
	}
	return report, nil
}
