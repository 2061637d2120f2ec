package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// BackupService uploads the SQLite database file to S3. Return series and
// analysis snapshots live in a single file, so a whole-file copy is a
// complete backup. Uploads happen from a scheduled job, never on the
// request path.
type BackupService struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	dbPath   string
	log      zerolog.Logger
}

// NewBackupService creates a backup service using the ambient AWS
// credential chain (env vars, shared config, instance role).
func NewBackupService(ctx context.Context, bucket, prefix, dbPath string, log zerolog.Logger) (*BackupService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &BackupService{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
		dbPath:   dbPath,
		log:      log.With().Str("service", "backup").Logger(),
	}, nil
}

// Backup uploads a timestamped copy of the database file.
func (s *BackupService) Backup(ctx context.Context) error {
	file, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	key := path.Join(s.prefix, fmt.Sprintf("analytics-%s.db", time.Now().UTC().Format("20060102-150405")))

	s.log.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Int64("size_bytes", info.Size()).
		Msg("Uploading database backup")

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().Str("key", key).Msg("Database backup complete")
	return nil
}
