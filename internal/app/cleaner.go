package app

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/domain"
	"github.com/Matkids/Video-Downloader/internal/infrastructure"
)

// Cleaner removes aged download records and their artifacts
type Cleaner struct {
	repo   domain.DownloadRepository
	logger *zap.Logger
}

// NewCleaner creates a new cleaner
func NewCleaner(repo domain.DownloadRepository, logger *zap.Logger) *Cleaner {
	return &Cleaner{repo: repo, logger: logger}
}

// PurgeResult summarizes one retention pass
type PurgeResult struct {
	Removed    int   `json:"removed"`
	Skipped    int   `json:"skipped"`
	BytesFreed int64 `json:"bytes_freed"`
	DryRun     bool  `json:"dry_run"`
}

// Purge deletes records created before now-olderThan. Requests with an
// active worker are always skipped. With keepReady set, records that
// still hold an artifact survive. With dryRun set, nothing is deleted
// and the result reports what a real pass would remove.
func (c *Cleaner) Purge(olderThan time.Duration, keepReady, dryRun bool) (*PurgeResult, error) {
	cutoff := time.Now().Add(-olderThan)
	downloads, err := c.repo.FindOlderThan(cutoff, keepReady)
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{DryRun: dryRun}
	for _, dl := range downloads {
		if dl.IsInFlight() || dl.Status == domain.StatusPending {
			result.Skipped++
			continue
		}

		result.Removed++
		result.BytesFreed += dl.FileSizeBytes
		if dryRun {
			continue
		}

		if dl.ArtifactPath != "" {
			if err := os.Remove(dl.ArtifactPath); err != nil && !os.IsNotExist(err) {
				c.logger.Warn("Failed to remove artifact during purge",
					zap.String("id", dl.ID),
					zap.String("path", dl.ArtifactPath),
					zap.Error(err))
			}
		}
		if err := c.repo.Delete(dl.ID); err != nil {
			c.logger.Error("Failed to delete record during purge",
				zap.String("id", dl.ID),
				zap.Error(err))
		}
	}

	c.logger.Info("Retention purge finished",
		zap.Int("removed", result.Removed),
		zap.Int("skipped", result.Skipped),
		zap.String("freed", infrastructure.FormatFileSize(result.BytesFreed)),
		zap.Bool("dry_run", dryRun))
	return result, nil
}
