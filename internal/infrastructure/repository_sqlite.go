package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Matkids/Video-Downloader/internal/domain"
)

// SQLiteDownloadRepository implements domain.DownloadRepository using SQLite
type SQLiteDownloadRepository struct {
	db *gorm.DB
}

// NewSQLiteDownloadRepository creates a new SQLite repository
func NewSQLiteDownloadRepository(dbPath string) (*SQLiteDownloadRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Download{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteDownloadRepository{db: db}, nil
}

// Create creates a new download record
func (r *SQLiteDownloadRepository) Create(download *domain.Download) error {
	return r.db.Create(download).Error
}

// Update writes the record unconditionally
func (r *SQLiteDownloadRepository) Update(download *domain.Download) error {
	return r.db.Save(download).Error
}

// UpdateStatusFrom applies mutate and persists only when the stored
// status still equals from. The conditional UPDATE doubles as a
// compare-and-swap, so two writers racing on the same id persist
// exactly one transition.
func (r *SQLiteDownloadRepository) UpdateStatusFrom(id string, from domain.DownloadStatus, mutate func(*domain.Download)) (*domain.Download, error) {
	var updated *domain.Download

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var dl domain.Download
		if err := tx.First(&dl, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if dl.Status != from {
			return domain.ErrStatusConflict
		}

		mutate(&dl)
		if dl.Status != from && !domain.ValidTransition(from, dl.Status) {
			return fmt.Errorf("transition %s -> %s: %w", from, dl.Status, domain.ErrStatusConflict)
		}

		res := tx.Model(&dl).Where("status = ?", from).Select("*").Updates(&dl)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrStatusConflict
		}
		updated = &dl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete deletes a download by ID
func (r *SQLiteDownloadRepository) Delete(id string) error {
	return r.db.Delete(&domain.Download{}, "id = ?", id).Error
}

// FindByID finds a download by ID
func (r *SQLiteDownloadRepository) FindByID(id string) (*domain.Download, error) {
	var download domain.Download
	err := r.db.First(&download, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &download, nil
}

// FindByStatus finds downloads by status
func (r *SQLiteDownloadRepository) FindByStatus(status domain.DownloadStatus) ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := r.db.Where("status = ?", status).Find(&downloads).Error
	return downloads, err
}

// FindAll finds downloads with optional filters, newest first
func (r *SQLiteDownloadRepository) FindAll(filters map[string]interface{}) ([]*domain.Download, error) {
	var downloads []*domain.Download
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&downloads).Error
	return downloads, err
}

// Count returns the total number of downloads
func (r *SQLiteDownloadRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Download{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of downloads in one status
func (r *SQLiteDownloadRepository) CountByStatus(status domain.DownloadStatus) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Download{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// FindOlderThan returns downloads created before cutoff, optionally
// skipping those that still hold an artifact
func (r *SQLiteDownloadRepository) FindOlderThan(cutoff time.Time, keepReady bool) ([]*domain.Download, error) {
	query := r.db.Where("created_at < ?", cutoff)
	if keepReady {
		query = query.Where("status NOT IN ?", []domain.DownloadStatus{domain.StatusReady, domain.StatusServed})
	}
	var downloads []*domain.Download
	err := query.Order("created_at ASC").Find(&downloads).Error
	return downloads, err
}

// ResetOrphanedInFlight fails resolving/downloading rows left over from
// a previous process. Without this a crash mid-transfer leaves rows
// stuck in an in-flight state forever.
func (r *SQLiteDownloadRepository) ResetOrphanedInFlight() (int64, error) {
	res := r.db.Model(&domain.Download{}).
		Where("status IN ?", []domain.DownloadStatus{domain.StatusResolving, domain.StatusDownloading}).
		Updates(map[string]interface{}{
			"status":       domain.StatusFailed,
			"error_kind":   domain.ErrKindInternal,
			"error_detail": "interrupted by process restart",
			"updated_at":   time.Now(),
		})
	return res.RowsAffected, res.Error
}

// GetStats returns aggregate download statistics
func (r *SQLiteDownloadRepository) GetStats() (*domain.DownloadStats, error) {
	stats := &domain.DownloadStats{}

	if err := r.db.Model(&domain.Download{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.DownloadStatus
		Count  int64
	}{}
	if err := r.db.Model(&domain.Download{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusPending:
			stats.Pending = sc.Count
		case domain.StatusResolving:
			stats.Resolving = sc.Count
		case domain.StatusDownloading:
			stats.Downloading = sc.Count
		case domain.StatusReady:
			stats.Ready = sc.Count
		case domain.StatusServed:
			stats.Served = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	var bytes struct{ Sum int64 }
	if err := r.db.Model(&domain.Download{}).
		Select("coalesce(sum(file_size_bytes), 0) as sum").
		Where("status IN ?", []domain.DownloadStatus{domain.StatusReady, domain.StatusServed}).
		Scan(&bytes).Error; err != nil {
		return nil, err
	}
	stats.BytesStored = bytes.Sum

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteDownloadRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
