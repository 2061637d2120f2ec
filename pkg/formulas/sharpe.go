package formulas

import (
	"math"
)

// SharpeRatio calculates the per-period Sharpe ratio of a return series.
//
//	Sharpe = (mean return - periodic risk-free rate) / std dev of returns
//
// riskFreeRate is annual (e.g. 0.02 for 2%) and is de-annualized by
// periodsPerYear before subtraction. Returns false when the series has
// fewer than 2 observations or zero variance.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) (float64, bool) {
	if len(returns) < 2 {
		return 0, false
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return 0, false
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	return (Mean(returns) - periodicRiskFree) / stdDev, true
}

// AnnualizedSharpeRatio scales the per-period Sharpe ratio by
// sqrt(periodsPerYear).
func AnnualizedSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) (float64, bool) {
	sharpe, ok := SharpeRatio(returns, riskFreeRate, periodsPerYear)
	if !ok {
		return 0, false
	}
	return sharpe * math.Sqrt(float64(periodsPerYear)), true
}

// SortinoRatio calculates the downside-deviation variant of the Sharpe
// ratio. Only returns below the periodic target contribute to the
// denominator. Returns false when there is no downside or too little data.
func SortinoRatio(returns []float64, riskFreeRate, targetReturn float64, periodsPerYear int) (float64, bool) {
	if len(returns) < 2 {
		return 0, false
	}

	periodicTarget := targetReturn / float64(periodsPerYear)

	var downsideSquaredSum float64
	downsideCount := 0
	for _, r := range returns {
		if r < periodicTarget {
			deviation := r - periodicTarget
			downsideSquaredSum += deviation * deviation
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0, false
	}

	downsideDeviation := math.Sqrt(downsideSquaredSum / float64(downsideCount))
	if downsideDeviation == 0 {
		return 0, false
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	return (Mean(returns) - periodicRiskFree) / downsideDeviation, true
}
