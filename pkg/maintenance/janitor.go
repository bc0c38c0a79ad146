package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/async"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/storage"
)

// Defaults for JanitorConfig
const (
	DefaultSchedule  = "*/30 * * * *"
	DefaultMaxAge    = 24 * time.Hour
	DefaultBatchSize = 200
	DefaultWorkers   = 4
)

// UploadSource lists uploads old enough to purge
type UploadSource interface {
	StaleUploads(ctx context.Context, cutoff time.Time, limit int) ([]assets.Upload, error)
}

// JanitorConfig tunes the upload janitor
type JanitorConfig struct {
	MaxAge    time.Duration
	BatchSize int
	Workers   int
	// ItemTimeout bounds the deletion of one upload
	ItemTimeout time.Duration
}

func (c JanitorConfig) withDefaults() JanitorConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = 10 * time.Second
	}
	return c
}

// UploadJanitor purges abandoned uploads
type UploadJanitor struct {
	uploads UploadSource
	db      sqlx.ExtContext
	blobs   storage.BlobStore
	purged  prometheus.Counter
	config  JanitorConfig
	logger  *observability.Logger
	now     func() time.Time
}

// NewUploadJanitor creates a janitor. purged may be nil.
func NewUploadJanitor(uploads UploadSource, db sqlx.ExtContext, blobs storage.BlobStore, purged prometheus.Counter, config JanitorConfig, logger *observability.Logger) *UploadJanitor {
	if logger == nil {
		logger = observability.Default()
	}
	return &UploadJanitor{
		uploads: uploads,
		db:      db,
		blobs:   blobs,
		purged:  purged,
		config:  config.withDefaults(),
		logger:  logger.WithField("job", "upload_janitor"),
		now:     time.Now,
	}
}

// PurgeOnce deletes one batch of uploads older than MaxAge and returns how
// many were removed. Per-upload failures are joined into the error; the
// uploads that succeeded stay purged.
func (j *UploadJanitor) PurgeOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.config.MaxAge)
	stale, err := j.uploads.StaleUploads(ctx, cutoff, j.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed := make(chan struct{}, len(stale))
	errs := async.Batch(ctx, stale, j.config.Workers, "purge upload", j.config.ItemTimeout,
		func(ctx context.Context, u assets.Upload) error {
			err := assets.DeleteUpload(ctx, j.db, u.ID)
			if errors.Is(err, apperrors.ErrNotFound) {
				// promoted or purged since it was listed
				return nil
			}
			if err != nil {
				return fmt.Errorf("upload %s: %w", u.ID, err)
			}
			removed <- struct{}{}

			if err := j.blobs.Delete(ctx, u.BlobName); err != nil {
				return fmt.Errorf("upload %s blob %s: %w", u.ID, u.BlobName, err)
			}
			return nil
		})
	close(removed)

	n := len(removed)
	if j.purged != nil {
		j.purged.Add(float64(n))
	}
	return n, errors.Join(errs...)
}

// Run purges once and logs the outcome. It is the scheduled entry point.
func (j *UploadJanitor) Run() {
	ctx := context.Background()
	n, err := j.PurgeOnce(ctx)
	if err != nil {
		j.logger.WithError(err).WithField("purged", n).Warn("upload purge finished with errors")
		return
	}
	if n > 0 {
		j.logger.WithField("purged", n).Info("purged abandoned uploads")
	}
}

// Schedule registers the janitor on c. An empty spec uses DefaultSchedule.
func (j *UploadJanitor) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	log := cronLogger{j.logger}
	id, err := c.AddJob(spec, cron.NewChain(cron.Recover(log), cron.SkipIfStillRunning(log)).Then(j))
	if err != nil {
		return 0, fmt.Errorf("failed to schedule upload janitor: %w", err)
	}
	return id, nil
}

// cronLogger adapts the service logger to cron.Logger
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
