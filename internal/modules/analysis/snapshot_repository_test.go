package analysis

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/quantex/analytics/internal/domain"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/risk"
	"github.com/quantex/analytics/pkg/logger"
)

const snapshotSchema = `
CREATE TABLE analysis_snapshots (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX idx_snapshots_created_at ON analysis_snapshots (created_at);
`

func setupSnapshotRepo(t *testing.T) *SnapshotRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(snapshotSchema)
	require.NoError(t, err)

	return NewSnapshotRepository(db, logger.New(logger.Config{Level: "error", Pretty: false}))
}

func sampleResult(generatedAt time.Time) *Result {
	sharpe := 1.25
	return &Result{
		ID:             uuid.NewString(),
		GeneratedAt:    generatedAt,
		Objective:      optimization.MaxSharpe,
		Weights:        domain.WeightVector{"AAPL": 0.6, "MSFT": 0.4},
		ExpectedReturn: 0.0012,
		Volatility:     0.0145,
		RiskReport: &risk.Report{
			ExpectedReturn: 0.0012,
			Volatility:     0.0145,
			SharpeRatio:    sharpe,
			VaR:            0.022,
			CVaR:           0.031,
			MaxDrawdown:    -0.18,
			Confidence:     0.95,
			PeriodsPerYear: 252,
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := setupSnapshotRepo(t)

	original := sampleResult(time.Now().UTC())
	require.NoError(t, repo.Save(original))

	loaded, err := repo.Latest()
	require.NoError(t, err)

	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.Objective, loaded.Objective)
	assert.Equal(t, original.Weights, loaded.Weights)
	assert.Equal(t, original.ExpectedReturn, loaded.ExpectedReturn)
	require.NotNil(t, loaded.RiskReport)
	assert.Equal(t, original.RiskReport.VaR, loaded.RiskReport.VaR)
	assert.Equal(t, original.RiskReport.MaxDrawdown, loaded.RiskReport.MaxDrawdown)
}

func TestLatest_ReturnsNewest(t *testing.T) {
	repo := setupSnapshotRepo(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older := sampleResult(base)
	newer := sampleResult(base.Add(time.Hour))

	require.NoError(t, repo.Save(older))
	require.NoError(t, repo.Save(newer))

	loaded, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, newer.ID, loaded.ID)
}

func TestLatest_Empty(t *testing.T) {
	repo := setupSnapshotRepo(t)

	_, err := repo.Latest()
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPrune(t *testing.T) {
	repo := setupSnapshotRepo(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var newest *Result
	for i := 0; i < 5; i++ {
		result := sampleResult(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, repo.Save(result))
		newest = result
	}

	deleted, err := repo.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	// The newest snapshot survives.
	loaded, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, newest.ID, loaded.ID)

	// Pruning again is a no-op.
	deleted, err = repo.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
