// Package riskmodel derives covariance and correlation structure from
// historical return series.
package riskmodel

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/pkg/formulas"
)

// MinPeriods is the minimum number of observations required for sample
// variance to be defined.
const MinPeriods = 2

// CovarianceMatrix is a symmetric positive-semidefinite matrix of sample
// covariances, indexed by the sorted symbol order of the source matrix.
type CovarianceMatrix struct {
	Symbols []string
	sym     *mat.SymDense
}

// Sym returns the underlying symmetric matrix.
// Callers must not mutate the returned matrix.
func (c *CovarianceMatrix) Sym() *mat.SymDense {
	return c.sym
}

// At returns the covariance between the i-th and j-th symbols.
func (c *CovarianceMatrix) At(i, j int) float64 {
	return c.sym.At(i, j)
}

// Dim returns the number of assets covered by the matrix.
func (c *CovarianceMatrix) Dim() int {
	return len(c.Symbols)
}

// PortfolioVariance computes wᵀΣw for a weight vector aligned with Symbols.
func (c *CovarianceMatrix) PortfolioVariance(weights []float64) float64 {
	w := mat.NewVecDense(len(weights), weights)
	var tmp mat.VecDense
	tmp.MulVec(c.sym, w)
	return mat.Dot(w, &tmp)
}

// Model computes statistical structure over immutable return matrices.
// All methods are pure; the logger is only used for diagnostics.
type Model struct {
	log zerolog.Logger
}

// New creates a new risk model.
func New(log zerolog.Logger) *Model {
	return &Model{
		log: log.With().Str("component", "riskmodel").Logger(),
	}
}

// ExpectedReturns calculates the per-period arithmetic mean return for
// every asset in the matrix. Annualization is the caller's concern.
func (m *Model) ExpectedReturns(matrix *domain.ReturnsMatrix) (map[string]float64, error) {
	if matrix.Periods() < MinPeriods {
		return nil, &domain.InsufficientDataError{Periods: matrix.Periods(), Required: MinPeriods}
	}

	means := make(map[string]float64, matrix.NumAssets())
	for _, symbol := range matrix.Symbols() {
		series, _ := matrix.Series(symbol)
		means[symbol] = formulas.Mean(series)
	}
	return means, nil
}

// MeanVector returns the per-period mean returns ordered to match the
// matrix's sorted symbol order, for consumption by the optimizer.
func (m *Model) MeanVector(matrix *domain.ReturnsMatrix) ([]float64, error) {
	means, err := m.ExpectedReturns(matrix)
	if err != nil {
		return nil, err
	}
	mu := make([]float64, matrix.NumAssets())
	for i, symbol := range matrix.Symbols() {
		mu[i] = means[symbol]
	}
	return mu, nil
}

// Covariance calculates the sample covariance matrix (N-1 denominator)
// between every asset pair. The result is symmetric by construction.
func (m *Model) Covariance(matrix *domain.ReturnsMatrix) (*CovarianceMatrix, error) {
	if matrix.Periods() < MinPeriods {
		return nil, &domain.InsufficientDataError{Periods: matrix.Periods(), Required: MinPeriods}
	}

	symbols := matrix.Symbols()
	n := len(symbols)
	sym := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		si, _ := matrix.Series(symbols[i])
		for j := i; j < n; j++ {
			sj, _ := matrix.Series(symbols[j])
			sym.SetSym(i, j, formulas.Covariance(si, sj))
		}
	}

	m.log.Debug().
		Int("assets", n).
		Int("periods", matrix.Periods()).
		Msg("Computed covariance matrix")

	return &CovarianceMatrix{Symbols: symbols, sym: sym}, nil
}

// CorrelationPair identifies two assets and their Pearson correlation.
type CorrelationPair struct {
	SymbolA     string  `json:"symbol_a"`
	SymbolB     string  `json:"symbol_b"`
	Correlation float64 `json:"correlation"`
}

// HighCorrelations returns all asset pairs whose absolute correlation
// meets or exceeds threshold, in symbol order.
func (m *Model) HighCorrelations(matrix *domain.ReturnsMatrix, threshold float64) ([]CorrelationPair, error) {
	if matrix.Periods() < MinPeriods {
		return nil, &domain.InsufficientDataError{Periods: matrix.Periods(), Required: MinPeriods}
	}

	symbols := matrix.Symbols()
	pairs := make([]CorrelationPair, 0)
	for i := 0; i < len(symbols); i++ {
		si, _ := matrix.Series(symbols[i])
		for j := i + 1; j < len(symbols); j++ {
			sj, _ := matrix.Series(symbols[j])
			corr := formulas.Correlation(si, sj)
			if corr >= threshold || corr <= -threshold {
				pairs = append(pairs, CorrelationPair{
					SymbolA:     symbols[i],
					SymbolB:     symbols[j],
					Correlation: corr,
				})
			}
		}
	}
	return pairs, nil
}
