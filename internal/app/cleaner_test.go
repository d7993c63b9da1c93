package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/domain"
)

func agedDownload(t *testing.T, repo *memRepo, status domain.DownloadStatus, age time.Duration) *domain.Download {
	t.Helper()
	dl := domain.NewDownload("https://youtu.be/x", domain.PlatformYouTube, domain.QualityHigh)
	dl.Status = status
	dl.CreatedAt = time.Now().Add(-age)
	require.NoError(t, repo.Create(dl))
	return dl
}

func TestCleaner_Purge(t *testing.T) {
	repo := newMemRepo()
	cleaner := NewCleaner(repo, zap.NewNop())

	artifact := filepath.Join(t.TempDir(), "old.mp4")
	require.NoError(t, os.WriteFile(artifact, []byte("stale payload"), 0644))

	oldServed := agedDownload(t, repo, domain.StatusServed, 48*time.Hour)
	oldServed.ArtifactPath = artifact
	oldServed.FileSizeBytes = int64(len("stale payload"))
	require.NoError(t, repo.Update(oldServed))

	oldFailed := agedDownload(t, repo, domain.StatusFailed, 48*time.Hour)
	recent := agedDownload(t, repo, domain.StatusServed, time.Hour)

	result, err := cleaner.Purge(24*time.Hour, false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, int64(len("stale payload")), result.BytesFreed)
	assert.False(t, result.DryRun)

	assert.NoFileExists(t, artifact)
	_, err = repo.FindByID(oldServed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByID(oldFailed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByID(recent.ID)
	assert.NoError(t, err, "records inside the retention window survive")
}

func TestCleaner_PurgeSkipsActiveRecords(t *testing.T) {
	repo := newMemRepo()
	cleaner := NewCleaner(repo, zap.NewNop())

	pending := agedDownload(t, repo, domain.StatusPending, 48*time.Hour)
	resolving := agedDownload(t, repo, domain.StatusResolving, 48*time.Hour)
	downloading := agedDownload(t, repo, domain.StatusDownloading, 48*time.Hour)

	result, err := cleaner.Purge(24*time.Hour, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 3, result.Skipped)

	for _, dl := range []*domain.Download{pending, resolving, downloading} {
		_, err := repo.FindByID(dl.ID)
		assert.NoError(t, err)
	}
}

func TestCleaner_PurgeKeepReady(t *testing.T) {
	repo := newMemRepo()
	cleaner := NewCleaner(repo, zap.NewNop())

	ready := agedDownload(t, repo, domain.StatusReady, 48*time.Hour)
	served := agedDownload(t, repo, domain.StatusServed, 48*time.Hour)
	failed := agedDownload(t, repo, domain.StatusFailed, 48*time.Hour)

	result, err := cleaner.Purge(24*time.Hour, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	_, err = repo.FindByID(ready.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(served.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(failed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCleaner_DryRun(t *testing.T) {
	repo := newMemRepo()
	cleaner := NewCleaner(repo, zap.NewNop())

	artifact := filepath.Join(t.TempDir(), "old.mp4")
	require.NoError(t, os.WriteFile(artifact, []byte("payload"), 0644))

	old := agedDownload(t, repo, domain.StatusServed, 48*time.Hour)
	old.ArtifactPath = artifact
	old.FileSizeBytes = int64(len("payload"))
	require.NoError(t, repo.Update(old))

	result, err := cleaner.Purge(24*time.Hour, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, int64(len("payload")), result.BytesFreed)
	assert.True(t, result.DryRun)

	assert.FileExists(t, artifact)
	_, err = repo.FindByID(old.ID)
	assert.NoError(t, err, "a dry run must not delete anything")
}
