package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/modules/analysis"
)

// SnapshotPruneJob trims the analysis snapshot table to a fixed size so an
// always-on dashboard cannot grow the database without bound.
type SnapshotPruneJob struct {
	snapshots *analysis.SnapshotRepository
	keep      int
	log       zerolog.Logger
}

// NewSnapshotPruneJob creates the prune job.
func NewSnapshotPruneJob(snapshots *analysis.SnapshotRepository, keep int, log zerolog.Logger) *SnapshotPruneJob {
	return &SnapshotPruneJob{
		snapshots: snapshots,
		keep:      keep,
		log:       log.With().Str("job", "snapshot_prune").Logger(),
	}
}

// Name implements Job.
func (j *SnapshotPruneJob) Name() string {
	return "snapshot_prune"
}

// Run implements Job.
func (j *SnapshotPruneJob) Run() error {
	deleted, err := j.snapshots.Prune(j.keep)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Snapshot prune complete")
	}
	return nil
}
