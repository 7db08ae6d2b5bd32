package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/backup"
	"github.com/helixtrade/helix/internal/cache"
)

// ScanJob runs the full signal scan pipeline.
type ScanJob struct {
	Pipeline *Pipeline
	Timeout  time.Duration
}

func (j *ScanJob) Name() string { return "signal-scan" }

func (j *ScanJob) Run() error {
	timeout := j.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return j.Pipeline.Scan(ctx)
}

// CacheCleanupJob purges expired cache rows.
type CacheCleanupJob struct {
	Cache *cache.Cache
	Log   zerolog.Logger
}

func (j *CacheCleanupJob) Name() string { return "cache-cleanup" }

func (j *CacheCleanupJob) Run() error {
	deleted, err := j.Cache.DeleteExpired()
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.Log.Info().Int64("deleted", deleted).Msg("Expired cache entries removed")
	}
	return nil
}

// BackupJob uploads a database snapshot to S3.
type BackupJob struct {
	Uploader *backup.Uploader
}

func (j *BackupJob) Name() string { return "database-backup" }

func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return j.Uploader.Run(ctx)
}
