// Package risk computes VaR, expected shortfall, drawdown and
// volatility-normalized metrics for a weighted portfolio.
package risk

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/pkg/formulas"
)

// DefaultConfidence is the confidence level used when the caller does not
// supply one.
const DefaultConfidence = 0.95

// Options configures a risk analysis run.
type Options struct {
	// Confidence is the VaR/CVaR confidence level, in (0, 1).
	Confidence float64 `json:"confidence"`
	// RiskFreeRate is the annual risk-free rate for Sharpe and Sortino.
	RiskFreeRate float64 `json:"risk_free_rate"`
	// PeriodsPerYear is the annualization factor for the reported
	// annualized figures.
	PeriodsPerYear int `json:"periods_per_year"`
}

// DefaultOptions returns 95% confidence, 2% annual risk-free rate and
// daily periodicity.
func DefaultOptions() Options {
	return Options{
		Confidence:     DefaultConfidence,
		RiskFreeRate:   0.02,
		PeriodsPerYear: domain.DefaultPeriodsPerYear,
	}
}

// Report holds the risk metrics computed for one (returns, weights,
// confidence) triple. All per-period figures use the raw observation
// frequency; annualized figures assume PeriodsPerYear observations per
// year. Losses (VaR, CVaR) are expressed as positive magnitudes; the
// maximum drawdown is a negative fraction.
type Report struct {
	ExpectedReturn       float64  `json:"expected_return"`
	Volatility           float64  `json:"volatility"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	SharpeRatio          float64  `json:"sharpe_ratio"`
	SortinoRatio         *float64 `json:"sortino_ratio,omitempty"`
	VaR                  float64  `json:"var"`
	HistoricalVaR        float64  `json:"historical_var"`
	CVaR                 float64  `json:"cvar"`
	ParametricFallback   bool     `json:"parametric_fallback"`
	MaxDrawdown          float64  `json:"max_drawdown"`
	Skewness             float64  `json:"skewness"`
	ExcessKurtosis       float64  `json:"excess_kurtosis"`
	Confidence           float64  `json:"confidence"`
	PeriodsPerYear       int      `json:"periods_per_year"`
}

// Analyzer computes risk reports. Pure: identical inputs always yield
// identical reports, nothing is cached.
type Analyzer struct {
	log zerolog.Logger
}

// New creates a new risk analyzer.
func New(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: log.With().Str("component", "risk").Logger(),
	}
}

// Analyze builds the portfolio return series from the weight vector and
// computes the full metric set.
func (a *Analyzer) Analyze(
	matrix *domain.ReturnsMatrix,
	weights domain.WeightVector,
	opts Options,
) (*Report, error) {
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, fmt.Errorf("confidence must be in (0, 1), got %g", opts.Confidence)
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = domain.DefaultPeriodsPerYear
	}
	if matrix.Periods() < 2 {
		return nil, &domain.InsufficientDataError{Periods: matrix.Periods(), Required: 2}
	}

	portfolio := matrix.PortfolioReturns(weights)
	mean := formulas.Mean(portfolio)
	stdDev := formulas.StdDev(portfolio)

	if stdDev == 0 {
		return nil, &domain.DegenerateVarianceError{Metric: "sharpe_ratio"}
	}

	normal := distuv.UnitNormal
	z := normal.Quantile(opts.Confidence)

	// Parametric VaR: loss threshold as a positive magnitude.
	parametricVaR := -(mean - z*stdDev)

	// Historical VaR from the empirical tail percentile.
	historicalVaR := -formulas.Percentile(portfolio, (1-opts.Confidence)*100)

	cvar, fallback := a.expectedShortfall(portfolio, parametricVaR, mean, stdDev, z, opts.Confidence)

	periodicRiskFree := opts.RiskFreeRate / float64(opts.PeriodsPerYear)
	sharpe := (mean - periodicRiskFree) / stdDev

	report := &Report{
		ExpectedReturn:       mean,
		Volatility:           stdDev,
		AnnualizedVolatility: formulas.AnnualizedVolatility(portfolio, opts.PeriodsPerYear),
		SharpeRatio:          sharpe,
		VaR:                  parametricVaR,
		HistoricalVaR:        historicalVaR,
		CVaR:                 cvar,
		ParametricFallback:   fallback,
		MaxDrawdown:          formulas.MaxDrawdown(portfolio),
		Skewness:             formulas.Skewness(portfolio),
		ExcessKurtosis:       formulas.ExcessKurtosis(portfolio),
		Confidence:           opts.Confidence,
		PeriodsPerYear:       opts.PeriodsPerYear,
	}

	if sortino, ok := formulas.SortinoRatio(portfolio, opts.RiskFreeRate, 0, opts.PeriodsPerYear); ok {
		report.SortinoRatio = &sortino
	}

	return report, nil
}

// expectedShortfall averages the observations at or below the VaR
// threshold. When no observation falls in the tail, it falls back to the
// Gaussian tail expectation and flags the report accordingly.
func (a *Analyzer) expectedShortfall(
	portfolio []float64,
	varLoss, mean, stdDev, z, confidence float64,
) (float64, bool) {
	threshold := -varLoss

	tailSum := 0.0
	tailCount := 0
	for _, r := range portfolio {
		if r <= threshold {
			tailSum += r
			tailCount++
		}
	}

	if tailCount > 0 {
		return -(tailSum / float64(tailCount)), false
	}

	normal := distuv.UnitNormal
	tailExpectation := mean - stdDev*normal.Prob(z)/(1-confidence)
	return -tailExpectation, true
}
