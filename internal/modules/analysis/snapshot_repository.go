package analysis

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotRepository persists completed analysis results so the dashboard
// can show the last run without recomputing. Snapshots are write-only from
// the core's perspective; nothing here feeds back into computations.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Save stores a msgpack-encoded analysis result.
func (r *SnapshotRepository) Save(result *Result) error {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO analysis_snapshots (id, created_at, payload)
		VALUES (?, ?, ?)
	`, result.ID, result.GeneratedAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", result.ID, err)
	}

	return nil
}

// Latest returns the most recently stored analysis result, or sql.ErrNoRows
// wrapped when none exist yet.
func (r *SnapshotRepository) Latest() (*Result, error) {
	var payload []byte
	err := r.db.QueryRow(`
		SELECT payload
		FROM analysis_snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	var result Result
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &result, nil
}

// Prune keeps only the newest keep snapshots and deletes the rest.
func (r *SnapshotRepository) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	result, err := r.db.Exec(`
		DELETE FROM analysis_snapshots
		WHERE id NOT IN (
			SELECT id FROM analysis_snapshots
			ORDER BY created_at DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check prune result: %w", err)
	}

	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Int("kept", keep).Msg("Pruned analysis snapshots")
	}
	return deleted, nil
}
