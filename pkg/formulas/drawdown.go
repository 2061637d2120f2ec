package formulas

// MaxDrawdown calculates the greatest peak-to-trough decline of the
// cumulative return curve built from a per-period return series.
//
// The wealth curve is the cumulative product of (1 + r_t) starting at 1.0.
// The result is a negative fraction (e.g. -0.25 for a 25% decline from the
// peak), or 0 when the curve never falls below a previous peak.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wealth := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if peak > 0 {
			drawdown := wealth/peak - 1
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// CumulativeReturn calculates the total compounded return of a series.
func CumulativeReturn(returns []float64) float64 {
	wealth := 1.0
	for _, r := range returns {
		wealth *= 1 + r
	}
	return wealth - 1
}
