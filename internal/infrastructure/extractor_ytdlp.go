package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/domain"
)

const defaultResolveTimeout = 30 * time.Second

// YTDLPExtractor implements domain.Extractor by shelling out to yt-dlp
type YTDLPExtractor struct {
	config *domain.ExtractorConfig
	logger *zap.Logger
}

// NewYTDLPExtractor creates a new yt-dlp backed extractor
func NewYTDLPExtractor(config *domain.ExtractorConfig, logger *zap.Logger) *YTDLPExtractor {
	return &YTDLPExtractor{config: config, logger: logger}
}

// ytdlpFormat mirrors the subset of yt-dlp's format objects we read
type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	Height         int     `json:"height"`
	VCodec         string  `json:"vcodec"`
	Ext            string  `json:"ext"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

// ytdlpInfo mirrors the subset of yt-dlp's -J output we read. Extra
// fields from the extractor are dropped here, at the boundary.
type ytdlpInfo struct {
	Title          string        `json:"title"`
	Duration       float64       `json:"duration"`
	Thumbnail      string        `json:"thumbnail"`
	Formats        []ytdlpFormat `json:"formats"`
	FilesizeApprox float64       `json:"filesize_approx"`
}

// Resolve fetches metadata for a URL under a hard wall-clock timeout.
// yt-dlp can hang on slow extractors, so the call is cancelled and
// reported as a timeout rather than blocking the orchestrator.
func (e *YTDLPExtractor) Resolve(ctx context.Context, url string) (*domain.VideoMetadata, error) {
	timeout := e.config.ResolveTimeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-J", "--no-playlist", "--no-warnings"}
	args = e.appendCookies(args)
	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if e.logger != nil {
		e.logger.Debug("Resolving metadata",
			zap.String("url", url),
			zap.String("command", ShellEscapeCommand(e.binary(), args...)))
	}

	if err := cmd.Run(); err != nil {
		return nil, e.classifyFailure(ctx, err, stderr.String())
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, domain.NewDownloadError(domain.ErrKindInternal,
			"extractor returned unparseable metadata", err)
	}

	return normalizeInfo(&info), nil
}

// Fetch downloads the selected variant to destPath and returns the
// number of bytes written. Cancellation arrives through ctx; yt-dlp is
// killed and the partial file cleaned up by the caller.
func (e *YTDLPExtractor) Fetch(ctx context.Context, url string, variant domain.QualityVariant, destPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, domain.NewDownloadError(domain.ErrKindInternal, "failed to create download directory", err)
	}

	args := []string{
		"-f", formatSpec(variant),
		"-o", destPath,
		"--no-playlist",
		"--no-warnings",
		"--no-part",
	}
	args = e.appendCookies(args)
	args = append(args, url)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if e.logger != nil {
		e.logger.Info("Starting transfer",
			zap.String("url", url),
			zap.String("format", formatSpec(variant)),
			zap.String("command", ShellEscapeCommand(e.binary(), args...)))
	}

	if err := cmd.Run(); err != nil {
		return 0, e.classifyFailure(ctx, err, stderr.String())
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return 0, domain.NewDownloadError(domain.ErrKindInternal, "extractor produced no file", err)
	}
	return stat.Size(), nil
}

func (e *YTDLPExtractor) binary() string {
	if e.config.Binary != "" {
		return e.config.Binary
	}
	return "yt-dlp"
}

func (e *YTDLPExtractor) appendCookies(args []string) []string {
	if e.config.CookieFile != "" && fileExists(e.config.CookieFile) {
		return append(args, "--cookies", e.config.CookieFile)
	}
	return args
}

// formatSpec builds the yt-dlp format selector for a variant,
// preferring mp4 at or below the variant's height
func formatSpec(variant domain.QualityVariant) string {
	if variant.FormatID != "" {
		return variant.FormatID + "+bestaudio/" + variant.FormatID + "/best"
	}
	if h := variant.Height; h > 0 {
		return fmt.Sprintf("best[height<=%d][ext=mp4]/best[height<=%d]/best", h, h)
	}
	return "best[ext=mp4]/best"
}

// classifyFailure maps an extractor failure onto the error taxonomy.
// Cancellation and deadline take precedence over stderr contents.
func (e *YTDLPExtractor) classifyFailure(ctx context.Context, err error, stderr string) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewDownloadError(domain.ErrKindTimeout, "extractor exceeded its deadline", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return domain.NewDownloadError(domain.ErrKindCancelled, "extractor cancelled", err)
	}

	detail := lastStderrLine(stderr)
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "unsupported url"), strings.Contains(lower, "no suitable extractor"):
		return domain.NewDownloadError(domain.ErrKindURLUnsupported, detail, err)
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "has been removed"),
		strings.Contains(lower, "not available in your country"),
		strings.Contains(lower, "members-only"),
		strings.Contains(lower, "account associated"):
		return domain.NewDownloadError(domain.ErrKindUnavailable, detail, err)
	case strings.Contains(lower, "unable to download"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "temporary failure"),
		strings.Contains(lower, "getaddrinfo"),
		strings.Contains(lower, "network"):
		return domain.NewDownloadError(domain.ErrKindNetworkFailure, detail, err)
	}
	return domain.NewDownloadError(domain.ErrKindInternal, detail, err)
}

// lastStderrLine returns the final non-empty stderr line, which is
// where yt-dlp puts its ERROR: summary
func lastStderrLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "extractor failed"
}

// normalizeInfo converts raw yt-dlp metadata into the fixed
// VideoMetadata shape, one variant per distinct rendition height
func normalizeInfo(info *ytdlpInfo) *domain.VideoMetadata {
	meta := &domain.VideoMetadata{
		Title:           info.Title,
		DurationSeconds: int64(info.Duration),
		ThumbnailURL:    info.Thumbnail,
	}

	byHeight := make(map[int]domain.QualityVariant)
	for _, f := range info.Formats {
		if f.Height <= 0 || f.VCodec == "none" || f.VCodec == "" {
			continue
		}
		size := f.Filesize
		if size == 0 {
			size = int64(f.FilesizeApprox)
		}
		existing, seen := byHeight[f.Height]
		// Prefer mp4 renditions and keep the largest size estimate per height
		if !seen || (f.Ext == "mp4" && existing.FormatID == "") || size > existing.EstimatedSizeBytes {
			byHeight[f.Height] = domain.QualityVariant{
				Tier:               domain.TierForHeight(f.Height),
				Height:             f.Height,
				FormatID:           f.FormatID,
				EstimatedSizeBytes: size,
			}
		}
	}

	for _, v := range byHeight {
		meta.AvailableQualities = append(meta.AvailableQualities, v)
	}
	sort.Slice(meta.AvailableQualities, func(i, j int) bool {
		return meta.AvailableQualities[i].Height < meta.AvailableQualities[j].Height
	})

	// Some extractors report no per-format heights at all. Surface one
	// unbounded variant so quality selection still has something to pick.
	if len(meta.AvailableQualities) == 0 {
		meta.AvailableQualities = []domain.QualityVariant{{
			Tier:               domain.QualityHighest,
			EstimatedSizeBytes: int64(info.FilesizeApprox),
		}}
	}

	return meta
}
