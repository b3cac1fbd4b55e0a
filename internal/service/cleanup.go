package service

import (
	"context"
	"time"

	"queuecast/internal/constants"
	"queuecast/internal/metrics"

	"github.com/sirupsen/logrus"
)

// AttachmentSweeper reclaims cached attachment files older than maxAge.
type AttachmentSweeper interface {
	CleanupOldFiles(maxAge time.Duration) (int, error)
}

// HistoryPruner removes audit rows older than the cutoff.
type HistoryPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupScheduler periodically reclaims attachment storage and prunes the
// publish audit log. The attachment sweep is purely time-based and does not
// consult the queue.
type CleanupScheduler struct {
	sweeper       AttachmentSweeper
	pruner        HistoryPruner
	retentionDays int
	intervalHours int
	logger        *logrus.Logger
	stopCh        chan struct{}
}

func NewCleanupScheduler(sweeper AttachmentSweeper, pruner HistoryPruner, retentionDays, intervalHours int, logger *logrus.Logger) *CleanupScheduler {
	if retentionDays <= 0 {
		retentionDays = constants.DefaultRetentionDays
	}
	if intervalHours <= 0 {
		intervalHours = constants.DefaultCleanupIntervalHours
	}
	return &CleanupScheduler{
		sweeper:       sweeper,
		pruner:        pruner,
		retentionDays: retentionDays,
		intervalHours: intervalHours,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (cs *CleanupScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(cs.intervalHours) * time.Hour)
	defer ticker.Stop()

	cs.logger.Info("Starting cleanup scheduler")

	cs.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			cs.logger.Info("Cleanup scheduler context cancelled, stopping")
			return
		case <-cs.stopCh:
			cs.logger.Info("Cleanup scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			cs.runCleanup(ctx)
		}
	}
}

func (cs *CleanupScheduler) Stop() {
	close(cs.stopCh)
}

func (cs *CleanupScheduler) runCleanup(ctx context.Context) {
	cs.logger.WithField("retentionDays", cs.retentionDays).Info("Running scheduled cleanup")

	maxAge := time.Duration(cs.retentionDays) * 24 * time.Hour
	removed, err := cs.sweeper.CleanupOldFiles(maxAge)
	if err != nil {
		cs.logger.WithError(err).Error("Failed to clean up old attachments")
	} else {
		metrics.AddToCounter("media_files_swept_total", float64(removed), "Attachment files reclaimed by the retention sweep")
		cs.logger.WithField("removed", removed).Info("Attachment cleanup completed")
	}

	if cs.pruner == nil {
		return
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	pruned, err := cs.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		cs.logger.WithError(err).Error("Failed to prune publish history")
	} else if pruned > 0 {
		cs.logger.WithField("pruned", pruned).Info("Publish history pruned")
	}
}
