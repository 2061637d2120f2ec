package scheduler

import (
	"context"
	"time"

	"github.com/quantex/analytics/internal/services"
)

const backupTimeout = 10 * time.Minute

// BackupJob runs the S3 database backup on a cron schedule.
type BackupJob struct {
	backup *services.BackupService
}

// NewBackupJob creates the backup job.
func NewBackupJob(backup *services.BackupService) *BackupJob {
	return &BackupJob{backup: backup}
}

// Name implements Job.
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Run implements Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	return j.backup.Backup(ctx)
}
