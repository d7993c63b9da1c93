package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/domain"
	"github.com/Matkids/Video-Downloader/internal/infrastructure"
)

// Artifact is an opened download ready for streaming. The caller owns
// File and must close it when the stream is consumed or the client
// disconnects.
type Artifact struct {
	Download *domain.Download
	File     *os.File
	Filename string
	Size     int64
}

// ArtifactServer opens completed artifacts for streaming. The first
// successful open moves the record Ready -> Served; later opens stream
// again without re-transitioning.
type ArtifactServer struct {
	repo   domain.DownloadRepository
	events *EventHub
	logger *zap.Logger
}

// NewArtifactServer creates a new artifact server
func NewArtifactServer(repo domain.DownloadRepository, events *EventHub, logger *zap.Logger) *ArtifactServer {
	return &ArtifactServer{repo: repo, events: events, logger: logger}
}

// Open validates the record and returns a streamable artifact.
// Errors: domain.ErrNotFound for unknown ids and domain.ErrNotReady
// before the artifact exists. An artifact absent from disk under a
// Ready status means external interference and is reported distinctly
// as an artifact_missing DownloadError, never as a silent empty stream.
func (s *ArtifactServer) Open(id string) (*Artifact, error) {
	download, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !download.HasArtifact() {
		return nil, domain.ErrNotReady
	}

	stat, err := os.Stat(download.ArtifactPath)
	if err != nil {
		s.logger.Warn("Artifact missing from disk",
			zap.String("id", id),
			zap.String("path", download.ArtifactPath))
		return nil, domain.NewDownloadError(domain.ErrKindArtifactMissing,
			"artifact no longer present on disk", err)
	}
	if stat.Size() != download.FileSizeBytes {
		return nil, domain.NewDownloadError(domain.ErrKindArtifactMissing,
			"artifact size does not match the recorded size", nil)
	}

	file, err := os.Open(download.ArtifactPath)
	if err != nil {
		return nil, domain.NewDownloadError(domain.ErrKindArtifactMissing,
			"artifact could not be opened", err)
	}

	if download.Status == domain.StatusReady {
		updated, err := s.repo.UpdateStatusFrom(id, domain.StatusReady, (*domain.Download).MarkServed)
		switch {
		case err == nil:
			download = updated
			s.publish(updated)
		case errors.Is(err, domain.ErrStatusConflict):
			// A concurrent serve already recorded the transition.
			download.Status = domain.StatusServed
		default:
			file.Close()
			return nil, err
		}
	}

	ext := filepath.Ext(download.ArtifactPath)
	return &Artifact{
		Download: download,
		File:     file,
		Filename: infrastructure.SafeFilename(download.Title, download.ID, ext),
		Size:     download.FileSizeBytes,
	}, nil
}

func (s *ArtifactServer) publish(d *domain.Download) {
	if s.events == nil {
		return
	}
	s.events.Publish(StatusEvent{
		ID:       d.ID,
		Status:   d.Status,
		Progress: d.Progress,
		At:       time.Now(),
	})
}
