package domain

import (
	"fmt"
	"sort"
)

// DefaultPeriodsPerYear is the annualization factor assumed throughout the
// engine. Return series are treated as daily observations (252 trading days).
const DefaultPeriodsPerYear = 252

// ReturnSeries holds the ordered per-period returns for a single asset.
type ReturnSeries struct {
	Symbol  string    `json:"symbol"`
	Returns []float64 `json:"returns"`
}

// WeightVector maps asset symbols to portfolio weights.
type WeightVector map[string]float64

// Sum returns the total allocation of the vector.
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Symbols returns the vector's symbols in deterministic (sorted) order.
func (w WeightVector) Symbols() []string {
	symbols := make([]string, 0, len(w))
	for symbol := range w {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// ReturnsMatrix is an immutable collection of aligned return series.
// All series share the same period index and length; symbols are kept in
// sorted order so every derived computation is deterministic.
type ReturnsMatrix struct {
	symbols []string
	series  map[string][]float64
	periods int
}

// NewReturnsMatrix builds a matrix from per-symbol return series.
// The input is defensively copied; series of unequal length are rejected.
func NewReturnsMatrix(data map[string][]float64) (*ReturnsMatrix, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("returns matrix requires at least one series")
	}

	symbols := make([]string, 0, len(data))
	for symbol := range data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	periods := len(data[symbols[0]])
	series := make(map[string][]float64, len(data))
	for _, symbol := range symbols {
		values := data[symbol]
		if len(values) != periods {
			return nil, fmt.Errorf(
				"series %q has %d periods, expected %d: all series must be aligned",
				symbol, len(values), periods,
			)
		}
		copied := make([]float64, len(values))
		copy(copied, values)
		series[symbol] = copied
	}

	return &ReturnsMatrix{
		symbols: symbols,
		series:  series,
		periods: periods,
	}, nil
}

// Symbols returns the asset symbols in sorted order.
// Callers must not mutate the returned slice.
func (m *ReturnsMatrix) Symbols() []string {
	return m.symbols
}

// Periods returns the number of observations per series.
func (m *ReturnsMatrix) Periods() int {
	return m.periods
}

// NumAssets returns the number of series in the matrix.
func (m *ReturnsMatrix) NumAssets() int {
	return len(m.symbols)
}

// Series returns the return series for a symbol.
// Callers must not mutate the returned slice.
func (m *ReturnsMatrix) Series(symbol string) ([]float64, bool) {
	s, ok := m.series[symbol]
	return s, ok
}

// PortfolioReturns computes the weighted per-period portfolio return series.
// Symbols present in the weight vector but absent from the matrix contribute
// nothing; a zero-weight symbol is equivalent to omitting it.
func (m *ReturnsMatrix) PortfolioReturns(weights WeightVector) []float64 {
	portfolio := make([]float64, m.periods)
	for symbol, weight := range weights {
		series, ok := m.series[symbol]
		if !ok || weight == 0 {
			continue
		}
		for t, r := range series {
			portfolio[t] += weight * r
		}
	}
	return portfolio
}
