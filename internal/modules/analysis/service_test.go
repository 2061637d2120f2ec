package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/frontier"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/risk"
	"github.com/quantex/analytics/internal/modules/riskmodel"
	"github.com/quantex/analytics/pkg/logger"
)

func testService(snapshots *SnapshotRepository) *Service {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	model := riskmodel.New(log)
	optimizer := optimization.New(model, log)
	generator := frontier.New(optimizer, model, log)
	analyzer := risk.New(log)
	return NewService(model, optimizer, generator, analyzer, snapshots, log)
}

func testMatrix(t *testing.T) *domain.ReturnsMatrix {
	t.Helper()
	matrix, err := domain.NewReturnsMatrix(map[string][]float64{
		"A": {0.012, 0.031, -0.014, 0.022, 0.008, -0.003},
		"B": {0.004, -0.006, 0.011, 0.002, -0.001, 0.007},
		"C": {-0.008, 0.015, 0.021, -0.012, 0.017, 0.004},
	})
	require.NoError(t, err)
	return matrix
}

func TestRunAnalysis_FullPipeline(t *testing.T) {
	service := testService(nil)

	opts := DefaultOptions()
	opts.FrontierPoints = 10

	result, err := service.RunAnalysis(
		context.Background(),
		testMatrix(t),
		optimization.MaxSharpe,
		optimization.DefaultConstraints(),
		opts,
	)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.False(t, result.GeneratedAt.IsZero())
	assert.Equal(t, optimization.MaxSharpe, result.Objective)
	assert.InDelta(t, 1.0, result.Weights.Sum(), 1e-6)
	require.NotNil(t, result.RiskReport)
	require.NotNil(t, result.Frontier)
	assert.NotEmpty(t, result.Frontier.Points)
}

func TestRunAnalysis_NoFrontierByDefault(t *testing.T) {
	service := testService(nil)

	result, err := service.RunAnalysis(
		context.Background(),
		testMatrix(t),
		optimization.MinVariance,
		optimization.DefaultConstraints(),
		DefaultOptions(),
	)
	require.NoError(t, err)

	assert.Nil(t, result.Frontier)
}

func TestRunAnalysis_ReportsHighCorrelations(t *testing.T) {
	service := testService(nil)

	base := []float64{0.01, 0.02, -0.01, 0.03, 0.005, -0.002}
	twin := make([]float64, len(base))
	for i, v := range base {
		twin[i] = v*1.5 + 0.001
	}
	matrix, err := domain.NewReturnsMatrix(map[string][]float64{
		"A": base,
		"B": twin,
		"C": {0.004, -0.006, 0.011, 0.002, -0.001, 0.007},
	})
	require.NoError(t, err)

	result, err := service.RunAnalysis(
		context.Background(),
		matrix,
		optimization.MinVariance,
		optimization.DefaultConstraints(),
		DefaultOptions(),
	)
	require.NoError(t, err)

	require.NotEmpty(t, result.HighCorrelations)
	assert.Equal(t, "A", result.HighCorrelations[0].SymbolA)
	assert.Equal(t, "B", result.HighCorrelations[0].SymbolB)
}

func TestRunAnalysis_OptimizerErrorsCarryComponentTag(t *testing.T) {
	service := testService(nil)

	target := 10.0 // far beyond any achievable return
	cons := optimization.DefaultConstraints()
	cons.TargetReturn = &target

	_, err := service.RunAnalysis(
		context.Background(),
		testMatrix(t),
		optimization.TargetReturn,
		cons,
		DefaultOptions(),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "optimizer:")

	// The taxonomy error survives the wrapping.
	var infeasible *domain.InfeasibleConstraintsError
	assert.ErrorAs(t, err, &infeasible)
}

func TestRunAnalysis_Cancellation(t *testing.T) {
	service := testService(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.RunAnalysis(
		ctx,
		testMatrix(t),
		optimization.MinVariance,
		optimization.DefaultConstraints(),
		DefaultOptions(),
	)

	require.Error(t, err)
	assert.True(t, domain.IsCancelled(err))
}

func TestRunAnalysis_PersistsSnapshot(t *testing.T) {
	snapshots := setupSnapshotRepo(t)
	service := testService(snapshots)

	result, err := service.RunAnalysis(
		context.Background(),
		testMatrix(t),
		optimization.MinVariance,
		optimization.DefaultConstraints(),
		DefaultOptions(),
	)
	require.NoError(t, err)

	stored, err := snapshots.Latest()
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)
	assert.Equal(t, result.Weights, stored.Weights)
}

func TestRunAnalysis_Deterministic(t *testing.T) {
	service := testService(nil)
	matrix := testMatrix(t)

	opts := DefaultOptions()
	opts.FrontierPoints = 8

	first, err := service.RunAnalysis(context.Background(), matrix, optimization.MaxSharpe, optimization.DefaultConstraints(), opts)
	require.NoError(t, err)
	second, err := service.RunAnalysis(context.Background(), matrix, optimization.MaxSharpe, optimization.DefaultConstraints(), opts)
	require.NoError(t, err)

	// Identical inputs yield identical numbers; only the run identity
	// (id, timestamp) differs.
	assert.Equal(t, first.Weights, second.Weights)
	assert.Equal(t, first.ExpectedReturn, second.ExpectedReturn)
	assert.Equal(t, first.Volatility, second.Volatility)
	assert.Equal(t, first.RiskReport, second.RiskReport)
	assert.Equal(t, first.Frontier, second.Frontier)
}

func TestServicePassThroughs(t *testing.T) {
	service := testService(nil)
	matrix := testMatrix(t)

	optimized, err := service.Optimize(context.Background(), matrix, optimization.MinVariance, optimization.DefaultConstraints())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, optimized.Weights.Sum(), 1e-6)

	sweep, err := service.Frontier(context.Background(), matrix, optimization.DefaultConstraints(), 5)
	require.NoError(t, err)
	assert.NotEmpty(t, sweep.Points)

	report, err := service.RiskReport(matrix, optimized.Weights, risk.DefaultOptions())
	require.NoError(t, err)
	assert.Greater(t, report.Volatility, 0.0)
}
