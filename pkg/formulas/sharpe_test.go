package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.03}

	sharpe, ok := SharpeRatio(returns, 0.02, 252)
	require.True(t, ok)

	expected := (Mean(returns) - 0.02/252) / StdDev(returns)
	assert.InDelta(t, expected, sharpe, 1e-12)
}

func TestSharpeRatio_Degenerate(t *testing.T) {
	// Constant series has zero variance.
	_, ok := SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.02, 252)
	assert.False(t, ok)

	// Single observation is not enough.
	_, ok = SharpeRatio([]float64{0.01}, 0.02, 252)
	assert.False(t, ok)
}

func TestAnnualizedSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.03}

	periodic, ok := SharpeRatio(returns, 0.02, 252)
	require.True(t, ok)
	annualized, ok := AnnualizedSharpeRatio(returns, 0.02, 252)
	require.True(t, ok)

	assert.InDelta(t, periodic*math.Sqrt(252), annualized, 1e-12)
}

func TestSortinoRatio(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02}

	sortino, ok := SortinoRatio(returns, 0.0, 0.0, 252)
	require.True(t, ok)

	// Downside deviation over the two negative observations.
	downside := math.Sqrt((0.01*0.01 + 0.02*0.02) / 2)
	assert.InDelta(t, Mean(returns)/downside, sortino, 1e-12)
}

func TestSortinoRatio_NoDownside(t *testing.T) {
	_, ok := SortinoRatio([]float64{0.01, 0.02, 0.03}, 0.0, 0.0, 252)
	assert.False(t, ok)
}
