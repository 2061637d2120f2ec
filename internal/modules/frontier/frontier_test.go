package frontier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/riskmodel"
	"github.com/quantex/analytics/pkg/logger"
)

func testGenerator() *Generator {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	model := riskmodel.New(log)
	return New(optimization.New(model, log), model, log)
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

func TestGenerate_OrderedByRisk(t *testing.T) {
	gen := testGenerator()

	frontier, err := gen.Generate(context.Background(), testMatrix(t), optimization.DefaultConstraints(), 20)
	require.NoError(t, err)
	require.NotEmpty(t, frontier.Points)

	for i := 1; i < len(frontier.Points); i++ {
		prev, curr := frontier.Points[i-1], frontier.Points[i]
		assert.LessOrEqual(t, prev.Risk, curr.Risk+1e-12, "risk must be non-decreasing at point %d", i)
		// The efficient-frontier shape: more risk only buys more return.
		assert.LessOrEqual(t, prev.Return, curr.Return+1e-9, "return must be non-decreasing at point %d", i)
	}
}

func TestGenerate_AnchorsSpanTheReturnRange(t *testing.T) {
	gen := testGenerator()
	matrix := testMatrix(t)
	cons := optimization.DefaultConstraints()

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	opt := optimization.New(riskmodel.New(log), log)
	minVarRet, err := opt.MinVarianceReturn(context.Background(), matrix, cons)
	require.NoError(t, err)
	maxRet, err := opt.MaxAchievableReturn(matrix, cons)
	require.NoError(t, err)

	frontier, err := gen.Generate(context.Background(), matrix, cons, 10)
	require.NoError(t, err)
	require.NotEmpty(t, frontier.Points)

	lowest := frontier.Points[0].Return
	highest := frontier.Points[0].Return
	for _, p := range frontier.Points[1:] {
		if p.Return < lowest {
			lowest = p.Return
		}
		if p.Return > highest {
			highest = p.Return
		}
	}

	// The sweep reaches from the min-variance return to the achievable
	// maximum, up to the floor tolerance at either end.
	assert.InDelta(t, minVarRet, lowest, 1e-4)
	assert.InDelta(t, maxRet, highest, 1e-4)
}

func TestGenerate_EveryPointSatisfiesBudget(t *testing.T) {
	gen := testGenerator()

	frontier, err := gen.Generate(context.Background(), testMatrix(t), optimization.DefaultConstraints(), 12)
	require.NoError(t, err)

	for _, p := range frontier.Points {
		assert.InDelta(t, 1.0, p.Weights.Sum(), 1e-6)
		for symbol, w := range p.Weights {
			assert.GreaterOrEqual(t, w, 0.0, "long-only sweep produced a short position in %s", symbol)
		}
	}
}

func TestGenerate_DefaultPointCount(t *testing.T) {
	gen := testGenerator()

	frontier, err := gen.Generate(context.Background(), testMatrix(t), optimization.DefaultConstraints(), 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultNumPoints, len(frontier.Points)+len(frontier.SkippedTargets))
}

func TestGenerate_RejectsSinglePoint(t *testing.T) {
	gen := testGenerator()

	_, err := gen.Generate(context.Background(), testMatrix(t), optimization.DefaultConstraints(), 1)
	assert.Error(t, err)
}

func TestGenerate_Deterministic(t *testing.T) {
	gen := testGenerator()
	matrix := testMatrix(t)
	cons := optimization.DefaultConstraints()

	first, err := gen.Generate(context.Background(), matrix, cons, 15)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), matrix, cons, 15)
	require.NoError(t, err)

	// Parallel fan-out must not introduce nondeterminism.
	assert.Equal(t, first, second)
}

func TestGenerate_Cancellation(t *testing.T) {
	gen := testGenerator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, testMatrix(t), optimization.DefaultConstraints(), 10)

	require.Error(t, err)
	assert.True(t, domain.IsCancelled(err))
}
