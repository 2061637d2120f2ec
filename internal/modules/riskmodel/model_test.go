package riskmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/pkg/logger"
)

func testModel() *Model {
	return New(logger.New(logger.Config{Level: "error", Pretty: false}))
}

func testMatrix(t *testing.T, data map[string][]float64) *domain.ReturnsMatrix {
	t.Helper()
	matrix, err := domain.NewReturnsMatrix(data)
	require.NoError(t, err)
	return matrix
}

func TestExpectedReturns(t *testing.T) {
	model := testModel()
	matrix := testMatrix(t, map[string][]float64{
		"A": {0.01, 0.02, 0.03},
		"B": {-0.01, 0.01, 0.00},
	})

	means, err := model.ExpectedReturns(matrix)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, means["A"], 1e-12)
	assert.InDelta(t, 0.0, means["B"], 1e-12)
}

func TestExpectedReturns_InsufficientData(t *testing.T) {
	model := testModel()
	matrix := testMatrix(t, map[string][]float64{"A": {0.01}})

	_, err := model.ExpectedReturns(matrix)

	var insufficient *domain.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Periods)
	assert.Equal(t, MinPeriods, insufficient.Required)
}

func TestMeanVector_OrderMatchesSymbols(t *testing.T) {
	model := testModel()
	matrix := testMatrix(t, map[string][]float64{
		"ZZZ": {0.01, 0.01},
		"AAA": {0.02, 0.02},
	})

	mu, err := model.MeanVector(matrix)
	require.NoError(t, err)

	// Symbols sort to [AAA, ZZZ], so the vector must too.
	assert.InDelta(t, 0.02, mu[0], 1e-12)
	assert.InDelta(t, 0.01, mu[1], 1e-12)
}

func TestCovariance(t *testing.T) {
	model := testModel()
	matrix := testMatrix(t, map[string][]float64{
		"A": {0.01, 0.02, -0.01, 0.03},
		"B": {0.00, 0.01, 0.01, 0.00},
	})

	cov, err := model.Covariance(matrix)
	require.NoError(t, err)

	assert.Equal(t, 2, cov.Dim())
	assert.Equal(t, []string{"A", "B"}, cov.Symbols)

	// Symmetry and a known diagonal entry.
	assert.Equal(t, cov.At(0, 1), cov.At(1, 0))
	assert.InDelta(t, 0.000291666666, cov.At(0, 0), 1e-10)
	assert.InDelta(t, 0.000033333333, cov.At(1, 1), 1e-10)

	// Diagonal dominates in PSD matrices: variance of an equal-weight mix
	// is bounded by the largest single-asset variance.
	variance := cov.PortfolioVariance([]float64{0.5, 0.5})
	assert.GreaterOrEqual(t, variance, 0.0)
	assert.LessOrEqual(t, variance, cov.At(0, 0))
}

func TestCovariance_InsufficientData(t *testing.T) {
	model := testModel()
	matrix := testMatrix(t, map[string][]float64{"A": {0.01}})

	_, err := model.Covariance(matrix)

	var insufficient *domain.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}

func TestHighCorrelations(t *testing.T) {
	model := testModel()

	base := []float64{0.01, 0.02, -0.01, 0.03, 0.00}
	scaled := make([]float64, len(base))
	inverse := make([]float64, len(base))
	for i, v := range base {
		scaled[i] = v * 2
		inverse[i] = -v
	}
	matrix := testMatrix(t, map[string][]float64{
		"A": base,
		"B": scaled,
		"C": inverse,
		"D": {0.005, -0.002, 0.001, -0.004, 0.003},
	})

	pairs, err := model.HighCorrelations(matrix, 0.99)
	require.NoError(t, err)

	// A/B are perfectly correlated, A/C and B/C perfectly anti-correlated.
	require.Len(t, pairs, 3)
	assert.Equal(t, "A", pairs[0].SymbolA)
	assert.Equal(t, "B", pairs[0].SymbolB)
	assert.InDelta(t, 1.0, pairs[0].Correlation, 1e-9)
	assert.InDelta(t, -1.0, pairs[1].Correlation, 1e-9)
}

func TestHighCorrelations_NoneAboveThreshold(t *testing.T) {
	model := testModel()
	matrix := testMatrix(t, map[string][]float64{
		"A": {0.01, 0.02, -0.01},
		"B": {0.00, 0.02, -0.01},
	})

	pairs, err := model.HighCorrelations(matrix, 0.999)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
