package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the lifecycle state of a download request
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusResolving   DownloadStatus = "resolving"
	StatusDownloading DownloadStatus = "downloading"
	StatusReady       DownloadStatus = "ready"
	StatusServed      DownloadStatus = "served"
	StatusFailed      DownloadStatus = "failed"
)

// validTransitions defines the only forward edges of the lifecycle.
// Failed is reachable from every pre-Ready state; Served and Failed
// are terminal.
var validTransitions = map[DownloadStatus][]DownloadStatus{
	StatusPending:     {StatusResolving, StatusFailed},
	StatusResolving:   {StatusDownloading, StatusFailed},
	StatusDownloading: {StatusReady, StatusFailed},
	StatusReady:       {StatusServed},
	StatusServed:      {},
	StatusFailed:      {},
}

// ValidTransition reports whether from -> to is a legal lifecycle edge.
func ValidTransition(from, to DownloadStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Download represents a single download request and its history record
type Download struct {
	ID              string         `json:"id" gorm:"primaryKey"`
	OriginalURL     string         `json:"original_url" gorm:"not null"`
	Platform        Platform       `json:"platform" gorm:"not null;index"`
	Quality         Quality        `json:"quality" gorm:"not null"`
	QualityNote     string         `json:"quality_note,omitempty"` // set when a tier substitution occurred
	Title           string         `json:"title,omitempty"`
	DurationSeconds int64          `json:"duration_seconds,omitempty"`
	ThumbnailURL    string         `json:"thumbnail_url,omitempty"`
	Status          DownloadStatus `json:"status" gorm:"not null;index"`
	Progress        int            `json:"progress"`
	ArtifactPath    string         `json:"artifact_path,omitempty"`
	FileSizeBytes   int64          `json:"file_size_bytes,omitempty"`
	ErrorKind       ErrorKind      `json:"error_kind,omitempty"`
	ErrorDetail     string         `json:"error_detail,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a new download request in the Pending state
func NewDownload(url string, platform Platform, quality Quality) *Download {
	return &Download{
		ID:          uuid.New().String(),
		OriginalURL: url,
		Platform:    platform,
		Quality:     quality,
		Status:      StatusPending,
		Progress:    0,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// MarkResolving marks the request as resolving metadata
func (d *Download) MarkResolving() {
	d.Status = StatusResolving
	d.Progress = 25
	d.UpdatedAt = time.Now()
}

// MarkDownloading marks the request as transferring bytes
func (d *Download) MarkDownloading() {
	d.Status = StatusDownloading
	d.Progress = 50
	d.UpdatedAt = time.Now()
}

// MarkReady records the verified artifact and completes the download
func (d *Download) MarkReady(artifactPath string, sizeBytes int64) {
	d.Status = StatusReady
	d.ArtifactPath = artifactPath
	d.FileSizeBytes = sizeBytes
	d.Progress = 100
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkServed records that at least one byte of the artifact was streamed
func (d *Download) MarkServed() {
	d.Status = StatusServed
	d.UpdatedAt = time.Now()
}

// MarkFailed records a terminal failure with its classified kind
func (d *Download) MarkFailed(kind ErrorKind, detail string) {
	d.Status = StatusFailed
	d.ErrorKind = kind
	d.ErrorDetail = detail
	d.UpdatedAt = time.Now()
}

// ApplyMetadata copies resolved metadata onto the record
func (d *Download) ApplyMetadata(meta *VideoMetadata) {
	d.Title = meta.Title
	d.DurationSeconds = meta.DurationSeconds
	d.ThumbnailURL = meta.ThumbnailURL
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the download reached a final state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusServed || d.Status == StatusFailed
}

// IsInFlight checks if a resolve or transfer is currently active
func (d *Download) IsInFlight() bool {
	return d.Status == StatusResolving || d.Status == StatusDownloading
}

// IsCancellable checks if the download can still be cancelled
func (d *Download) IsCancellable() bool {
	return d.Status == StatusPending || d.IsInFlight()
}

// HasArtifact checks if a completed artifact is recorded
func (d *Download) HasArtifact() bool {
	return d.Status == StatusReady || d.Status == StatusServed
}
