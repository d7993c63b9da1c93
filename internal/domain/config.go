package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Download  DownloadConfig  `mapstructure:"download"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir         string           `mapstructure:"base_dir"`
	DatabasePath    string           `mapstructure:"database_path"`
	MaxFileSizeMB   int64            `mapstructure:"max_file_size_mb"`
	PlatformMaxMB   map[string]int64 `mapstructure:"platform_max_mb"`
	MaxRetries      int              `mapstructure:"max_retries"`
	RetryDelay      time.Duration    `mapstructure:"retry_delay"`
	ConcurrentLimit int              `mapstructure:"concurrent_limit"`
	RetentionDays   int              `mapstructure:"retention_days"`
}

// ArtifactsDir is where verified artifacts live
func (c *DownloadConfig) ArtifactsDir() string {
	return filepath.Join(c.BaseDir, "artifacts")
}

// TempDir is where partial downloads are written before the atomic
// rename into ArtifactsDir
func (c *DownloadConfig) TempDir() string {
	return filepath.Join(c.BaseDir, "tmp")
}

// MaxBytesFor returns the size cap for a platform in bytes, preferring
// the per-platform entry over the global cap. Zero means unlimited.
func (c *DownloadConfig) MaxBytesFor(platform Platform) int64 {
	if mb, ok := c.PlatformMaxMB[string(platform)]; ok && mb > 0 {
		return mb * 1024 * 1024
	}
	if c.MaxFileSizeMB > 0 {
		return c.MaxFileSizeMB * 1024 * 1024
	}
	return 0
}

// ExtractorConfig contains extraction collaborator configuration
type ExtractorConfig struct {
	Binary         string        `mapstructure:"binary"`
	CookieFile     string        `mapstructure:"cookie_file"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			BaseDir:       "$HOME/Downloads/video-downloader",
			DatabasePath:  "$HOME/Downloads/video-downloader/history.db",
			MaxFileSizeMB: 500,
			PlatformMaxMB: map[string]int64{
				string(PlatformYouTube):   500,
				string(PlatformFacebook):  200,
				string(PlatformTikTok):    100,
				string(PlatformInstagram): 150,
				string(PlatformTwitter):   100,
			},
			MaxRetries:      3,
			RetryDelay:      5 * time.Second,
			ConcurrentLimit: 2,
			RetentionDays:   30,
		},
		Extractor: ExtractorConfig{
			Binary:         "yt-dlp",
			CookieFile:     "",
			ResolveTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
