package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/domain"
	"github.com/Matkids/Video-Downloader/internal/infrastructure"
)

// Orchestrator drives each download request through its lifecycle:
// Pending -> Resolving -> Downloading -> Ready -> Served, with Failed
// terminal from any pre-Ready state. All status writes go through the
// repository's compare-and-swap update, so a cancellation racing a
// completion persists exactly one terminal state.
type Orchestrator struct {
	repo      domain.DownloadRepository
	extractor domain.Extractor
	config    *domain.DownloadConfig
	events    *EventHub
	logger    *zap.Logger

	// transferSem bounds simultaneous transfers, not pending work
	transferSem chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	baseCtx context.Context
	stop    context.CancelFunc
	workers sync.WaitGroup
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	repo domain.DownloadRepository,
	extractor domain.Extractor,
	config *domain.DownloadConfig,
	events *EventHub,
	logger *zap.Logger,
) *Orchestrator {
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		repo:        repo,
		extractor:   extractor,
		config:      config,
		events:      events,
		logger:      logger,
		transferSem: make(chan struct{}, limit),
		cancels:     make(map[string]context.CancelFunc),
		baseCtx:     ctx,
		stop:        cancel,
	}
}

// Submit validates the request, persists a Pending record and starts
// processing in the background. It returns immediately with the new
// snapshot.
func (o *Orchestrator) Submit(url string, platformHint domain.Platform, quality domain.Quality) (*domain.Download, error) {
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	if quality == "" {
		quality = domain.QualityHigh
	}
	if !domain.ValidQuality(quality) {
		return nil, fmt.Errorf("invalid quality: %s", quality)
	}

	platform := platformHint
	if platform == "" {
		platform = domain.ClassifyURL(url)
	} else if !domain.ValidPlatform(platform) {
		return nil, fmt.Errorf("invalid platform: %s", platform)
	}

	download := domain.NewDownload(url, platform, quality)
	if err := o.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	o.logger.Info("Download submitted",
		zap.String("id", download.ID),
		zap.String("url", url),
		zap.String("platform", string(platform)),
		zap.String("quality", string(quality)))
	o.publish(download)

	o.workers.Add(1)
	go func() {
		defer o.workers.Done()
		o.process(download.ID, url, platform, quality)
	}()

	return download, nil
}

// Get returns the persisted snapshot for an id. It never blocks on
// in-flight network activity.
func (o *Orchestrator) Get(id string) (*domain.Download, error) {
	return o.repo.FindByID(id)
}

// List returns persisted snapshots with optional filters
func (o *Orchestrator) List(filters map[string]interface{}) ([]*domain.Download, error) {
	return o.repo.FindAll(filters)
}

// GetStats returns aggregate download statistics
func (o *Orchestrator) GetStats() (*domain.DownloadStats, error) {
	return o.repo.GetStats()
}

// Cancel requests cooperative cancellation of an in-flight download.
// Terminal and Ready records report domain.ErrNotCancellable. On
// success the returned snapshot is Failed with kind cancelled.
func (o *Orchestrator) Cancel(id string) (*domain.Download, error) {
	download, err := o.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !download.IsCancellable() {
		return download, domain.ErrNotCancellable
	}

	// Signal the worker first so the extractor stops moving bytes.
	o.signalCancel(id)

	mark := func(d *domain.Download) {
		d.MarkFailed(domain.ErrKindCancelled, "cancelled by caller")
	}
	updated, err := o.repo.UpdateStatusFrom(id, download.Status, mark)
	if errors.Is(err, domain.ErrStatusConflict) {
		// The worker transitioned concurrently. Re-read and try once
		// more from the fresh state.
		fresh, ferr := o.repo.FindByID(id)
		if ferr != nil {
			return nil, ferr
		}
		if !fresh.IsCancellable() {
			return fresh, domain.ErrNotCancellable
		}
		updated, err = o.repo.UpdateStatusFrom(id, fresh.Status, mark)
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("Download cancelled", zap.String("id", id))
	o.publish(updated)
	return updated, nil
}

// Delete removes a terminal record and its artifact. Records with an
// active worker are refused; cancel them first.
func (o *Orchestrator) Delete(id string) error {
	download, err := o.repo.FindByID(id)
	if err != nil {
		return err
	}
	if download.IsInFlight() || download.Status == domain.StatusPending {
		return domain.ErrInFlight
	}

	if download.HasArtifact() && download.ArtifactPath != "" {
		if err := os.Remove(download.ArtifactPath); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("Failed to remove artifact",
				zap.String("id", id),
				zap.String("path", download.ArtifactPath),
				zap.Error(err))
		}
	}
	return o.repo.Delete(id)
}

// Shutdown stops accepting cancellation signals and waits for in-flight
// workers, up to the context deadline.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()
	done := make(chan struct{})
	go func() {
		o.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// process drives one request from Pending to a terminal-or-Ready state
func (o *Orchestrator) process(id, url string, platform domain.Platform, quality domain.Quality) {
	ctx, cancel := context.WithCancel(o.baseCtx)
	o.registerCancel(id, cancel)
	defer func() {
		o.unregisterCancel(id)
		cancel()
	}()

	// Pending -> Resolving. A conflict means a cancel won the race.
	current, err := o.repo.UpdateStatusFrom(id, domain.StatusPending, (*domain.Download).MarkResolving)
	if err != nil {
		o.logTransitionSkip(id, domain.StatusResolving, err)
		return
	}
	o.publish(current)

	meta, err := o.resolveWithRetry(ctx, id, url)
	if err != nil {
		o.fail(id, domain.StatusResolving, err)
		return
	}

	variant, substituted, err := domain.SelectVariant(quality, meta.AvailableQualities)
	if err != nil {
		o.fail(id, domain.StatusResolving,
			domain.NewDownloadError(domain.ErrKindUnavailable, "no downloadable renditions", err))
		return
	}
	note := ""
	if substituted {
		note = fmt.Sprintf("requested %s, selected %s (%dp)", quality, variant.Tier, variant.Height)
		o.logger.Info("Quality tier substituted", zap.String("id", id), zap.String("note", note))
	}

	// Admission check against the size estimate before any bytes move.
	maxBytes := o.config.MaxBytesFor(platform)
	if maxBytes > 0 && variant.EstimatedSizeBytes > maxBytes {
		detail := fmt.Sprintf("estimated %s exceeds limit %s",
			infrastructure.FormatFileSize(variant.EstimatedSizeBytes),
			infrastructure.FormatFileSize(maxBytes))
		o.fail(id, domain.StatusResolving,
			domain.NewDownloadError(domain.ErrKindTooLarge, detail, nil))
		return
	}

	// The semaphore gates simultaneous transfers; waiting requests stay
	// Resolving so the Downloading state reflects actual activity.
	select {
	case o.transferSem <- struct{}{}:
		defer func() { <-o.transferSem }()
	case <-ctx.Done():
		o.fail(id, domain.StatusResolving,
			domain.NewDownloadError(domain.ErrKindCancelled, "cancelled while queued for transfer", ctx.Err()))
		return
	}

	current, err = o.repo.UpdateStatusFrom(id, domain.StatusResolving, func(d *domain.Download) {
		d.ApplyMetadata(meta)
		d.QualityNote = note
		d.MarkDownloading()
	})
	if err != nil {
		o.logTransitionSkip(id, domain.StatusDownloading, err)
		return
	}
	o.publish(current)

	tmpPath := filepath.Join(o.config.TempDir(), id+".mp4")
	size, err := o.extractor.Fetch(ctx, url, variant, tmpPath)
	if err != nil {
		// Release the partial file before the failure is recorded.
		os.Remove(tmpPath)
		o.fail(id, domain.StatusDownloading, err)
		return
	}

	if maxBytes > 0 && size > maxBytes {
		os.Remove(tmpPath)
		detail := fmt.Sprintf("artifact %s exceeds limit %s",
			infrastructure.FormatFileSize(size), infrastructure.FormatFileSize(maxBytes))
		o.fail(id, domain.StatusDownloading,
			domain.NewDownloadError(domain.ErrKindTooLarge, detail, nil))
		return
	}

	// The artifact becomes visible under its final path only once it is
	// complete, so a reader never sees a partial file behind Ready.
	finalPath := filepath.Join(o.config.ArtifactsDir(), id+".mp4")
	if err := infrastructure.MoveFile(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		o.fail(id, domain.StatusDownloading,
			domain.NewDownloadError(domain.ErrKindInternal, "failed to finalize artifact", err))
		return
	}

	current, err = o.repo.UpdateStatusFrom(id, domain.StatusDownloading, func(d *domain.Download) {
		d.MarkReady(finalPath, size)
	})
	if err != nil {
		// A cancel won the terminal race; the artifact is unreachable.
		os.Remove(finalPath)
		o.logTransitionSkip(id, domain.StatusReady, err)
		return
	}

	o.logger.Info("Download ready",
		zap.String("id", id),
		zap.String("artifact", finalPath),
		zap.String("size", infrastructure.FormatFileSize(size)))
	o.publish(current)
}

// resolveWithRetry runs metadata resolution, retrying transient network
// failures with a fixed delay. Every other failure kind is terminal on
// first occurrence.
func (o *Orchestrator) resolveWithRetry(ctx context.Context, id, url string) (*domain.VideoMetadata, error) {
	var lastErr error
	for attempt := 0; attempt <= o.config.MaxRetries; attempt++ {
		if attempt > 0 {
			o.logger.Info("Retrying resolution",
				zap.String("id", id),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", o.config.MaxRetries))
			select {
			case <-time.After(o.config.RetryDelay):
			case <-ctx.Done():
				return nil, domain.NewDownloadError(domain.ErrKindCancelled, "cancelled during retry wait", ctx.Err())
			}
		}

		meta, err := o.extractor.Resolve(ctx, url)
		if err == nil {
			return meta, nil
		}
		lastErr = err

		var de *domain.DownloadError
		if !errors.As(err, &de) || !de.Retryable() {
			return nil, err
		}
		o.logger.Warn("Resolution attempt failed",
			zap.String("id", id),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, lastErr
}

// fail records a terminal failure from the expected predecessor state.
// A conflict means another writer reached a terminal state first, which
// is exactly the guarantee we want, so it is only logged.
func (o *Orchestrator) fail(id string, from domain.DownloadStatus, cause error) {
	kind, detail := domain.ClassifyError(cause)
	updated, err := o.repo.UpdateStatusFrom(id, from, func(d *domain.Download) {
		d.MarkFailed(kind, detail)
	})
	if err != nil {
		o.logTransitionSkip(id, domain.StatusFailed, err)
		return
	}

	o.logger.Error("Download failed",
		zap.String("id", id),
		zap.String("kind", string(kind)),
		zap.String("detail", detail))
	o.publish(updated)
}

func (o *Orchestrator) publish(d *domain.Download) {
	if o.events == nil {
		return
	}
	o.events.Publish(StatusEvent{
		ID:        d.ID,
		Status:    d.Status,
		Progress:  d.Progress,
		ErrorKind: d.ErrorKind,
		At:        time.Now(),
	})
}

func (o *Orchestrator) logTransitionSkip(id string, to domain.DownloadStatus, err error) {
	if errors.Is(err, domain.ErrStatusConflict) || errors.Is(err, domain.ErrNotFound) {
		o.logger.Debug("Transition superseded",
			zap.String("id", id),
			zap.String("to", string(to)),
			zap.Error(err))
		return
	}
	o.logger.Error("Failed to persist transition",
		zap.String("id", id),
		zap.String("to", string(to)),
		zap.Error(err))
}

func (o *Orchestrator) registerCancel(id string, cancel context.CancelFunc) {
	o.mu.Lock()
	o.cancels[id] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) unregisterCancel(id string) {
	o.mu.Lock()
	delete(o.cancels, id)
	o.mu.Unlock()
}

func (o *Orchestrator) signalCancel(id string) {
	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}
}
