package domain

import "time"

// DownloadRepository defines the interface for download persistence
type DownloadRepository interface {
	// Create creates a new download record
	Create(download *Download) error

	// Update writes the record unconditionally (metadata, progress)
	Update(download *Download) error

	// UpdateStatusFrom applies mutate and persists the record only if
	// the stored status still equals from. Returns ErrStatusConflict
	// when another writer got there first and ErrNotFound for unknown
	// ids. This is the single mechanism for status transitions, so a
	// reader can never observe a skipped or reordered state.
	UpdateStatusFrom(id string, from DownloadStatus, mutate func(*Download)) (*Download, error)

	// Delete deletes a download by ID
	Delete(id string) error

	// FindByID finds a download by ID
	FindByID(id string) (*Download, error)

	// FindByStatus finds downloads by status
	FindByStatus(status DownloadStatus) ([]*Download, error)

	// FindAll finds downloads with optional filters, newest first
	FindAll(filters map[string]interface{}) ([]*Download, error)

	// Count returns the total number of downloads
	Count() (int64, error)

	// CountByStatus returns the number of downloads in one status
	CountByStatus(status DownloadStatus) (int64, error)

	// FindOlderThan returns downloads created before cutoff, oldest
	// first, optionally keeping those that still hold an artifact
	FindOlderThan(cutoff time.Time, keepReady bool) ([]*Download, error)

	// ResetOrphanedInFlight fails resolving/downloading rows left over
	// from a previous process and returns how many were reset
	ResetOrphanedInFlight() (int64, error)

	// GetStats returns aggregate download statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents aggregate download statistics
type DownloadStats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	Resolving   int64 `json:"resolving"`
	Downloading int64 `json:"downloading"`
	Ready       int64 `json:"ready"`
	Served      int64 `json:"served"`
	Failed      int64 `json:"failed"`
	BytesStored int64 `json:"bytes_stored"`
}
