package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadConfig_Dirs(t *testing.T) {
	c := &DownloadConfig{BaseDir: "/var/lib/vidload"}
	assert.Equal(t, filepath.Join("/var/lib/vidload", "artifacts"), c.ArtifactsDir())
	assert.Equal(t, filepath.Join("/var/lib/vidload", "tmp"), c.TempDir())
}

func TestDownloadConfig_MaxBytesFor(t *testing.T) {
	c := &DownloadConfig{
		MaxFileSizeMB: 500,
		PlatformMaxMB: map[string]int64{
			string(PlatformTikTok): 100,
		},
	}

	assert.Equal(t, int64(100*1024*1024), c.MaxBytesFor(PlatformTikTok))
	assert.Equal(t, int64(500*1024*1024), c.MaxBytesFor(PlatformYouTube), "global cap applies without a platform entry")

	unlimited := &DownloadConfig{}
	assert.Equal(t, int64(0), unlimited.MaxBytesFor(PlatformYouTube))
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 2, c.Download.ConcurrentLimit)
	assert.NotEmpty(t, c.Download.PlatformMaxMB)
	assert.Equal(t, "yt-dlp", c.Extractor.Binary)
}
