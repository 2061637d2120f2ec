// Package returns persists historical per-asset return series and hands
// out immutable matrix snapshots for analysis.
package returns

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/domain"
)

// SeriesInfo summarizes one stored series.
type SeriesInfo struct {
	Symbol  string `json:"symbol"`
	Periods int    `json:"periods"`
}

// SeriesRepository stores return series in sqlite. Series are immutable
// once written; saving a symbol again replaces its series atomically.
type SeriesRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSeriesRepository creates a new series repository.
func NewSeriesRepository(db *sql.DB, log zerolog.Logger) *SeriesRepository {
	return &SeriesRepository{
		db:  db,
		log: log.With().Str("repo", "returns").Logger(),
	}
}

// SaveSeries stores a return series, replacing any previous series for the
// same symbol.
func (r *SeriesRepository) SaveSeries(series domain.ReturnSeries) error {
	if series.Symbol == "" {
		return fmt.Errorf("series symbol is required")
	}
	if len(series.Returns) == 0 {
		return fmt.Errorf("series %q has no observations", series.Symbol)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM return_series WHERE symbol = ?`, series.Symbol); err != nil {
		return fmt.Errorf("failed to clear series %q: %w", series.Symbol, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO return_series (symbol, period, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for period, value := range series.Returns {
		if _, err := stmt.Exec(series.Symbol, period, value); err != nil {
			return fmt.Errorf("failed to insert series %q period %d: %w", series.Symbol, period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit series %q: %w", series.Symbol, err)
	}

	r.log.Info().
		Str("symbol", series.Symbol).
		Int("periods", len(series.Returns)).
		Msg("Saved return series")

	return nil
}

// LoadMatrix loads the requested symbols into an aligned matrix snapshot.
// With no symbols given, every stored series is loaded. Misaligned series
// are rejected by the matrix constructor.
func (r *SeriesRepository) LoadMatrix(symbols []string) (*domain.ReturnsMatrix, error) {
	if len(symbols) == 0 {
		var err error
		symbols, err = r.symbols()
		if err != nil {
			return nil, err
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no return series stored")
	}

	data := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		series, err := r.loadSeries(symbol)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			return nil, fmt.Errorf("no return series stored for symbol %q", symbol)
		}
		data[symbol] = series
	}

	return domain.NewReturnsMatrix(data)
}

// List returns a summary of every stored series.
func (r *SeriesRepository) List() ([]SeriesInfo, error) {
	rows, err := r.db.Query(`
		SELECT symbol, COUNT(*) as periods
		FROM return_series
		GROUP BY symbol
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query series list: %w", err)
	}
	defer rows.Close()

	infos := make([]SeriesInfo, 0)
	for rows.Next() {
		var info SeriesInfo
		if err := rows.Scan(&info.Symbol, &info.Periods); err != nil {
			return nil, fmt.Errorf("failed to scan series info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteSeries removes a stored series. Deleting an unknown symbol is an
// error so callers never silently operate on stale universes.
func (r *SeriesRepository) DeleteSeries(symbol string) error {
	result, err := r.db.Exec(`DELETE FROM return_series WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete series %q: %w", symbol, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no return series stored for symbol %q", symbol)
	}

	r.log.Info().Str("symbol", symbol).Msg("Deleted return series")
	return nil
}

func (r *SeriesRepository) symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM return_series ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

func (r *SeriesRepository) loadSeries(symbol string) ([]float64, error) {
	rows, err := r.db.Query(`
		SELECT value
		FROM return_series
		WHERE symbol = ?
		ORDER BY period
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query series %q: %w", symbol, err)
	}
	defer rows.Close()

	values := make([]float64, 0)
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan series %q: %w", symbol, err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}
