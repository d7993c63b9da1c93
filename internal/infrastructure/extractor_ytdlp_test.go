package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matkids/Video-Downloader/internal/domain"
)

func TestFormatSpec(t *testing.T) {
	assert.Equal(t, "137+bestaudio/137/best",
		formatSpec(domain.QualityVariant{FormatID: "137", Height: 1080}))
	assert.Equal(t, "best[height<=720][ext=mp4]/best[height<=720]/best",
		formatSpec(domain.QualityVariant{Height: 720}))
	assert.Equal(t, "best[ext=mp4]/best", formatSpec(domain.QualityVariant{}))
}

func TestLastStderrLine(t *testing.T) {
	assert.Equal(t, "ERROR: Video unavailable",
		lastStderrLine("[youtube] extracting\nWARNING: noise\nERROR: Video unavailable\n"))
	assert.Equal(t, "ERROR: boom", lastStderrLine("ERROR: boom\n\n  \n"))
	assert.Equal(t, "extractor failed", lastStderrLine(""))
}

func TestClassifyFailure(t *testing.T) {
	e := NewYTDLPExtractor(&domain.ExtractorConfig{}, nil)
	cause := errors.New("exit status 1")

	tests := []struct {
		name   string
		stderr string
		kind   domain.ErrorKind
	}{
		{"unsupported url", "ERROR: Unsupported URL: https://example.com/page", domain.ErrKindURLUnsupported},
		{"video unavailable", "ERROR: Video unavailable", domain.ErrKindUnavailable},
		{"private video", "ERROR: Private video. Sign in if you've been granted access", domain.ErrKindUnavailable},
		{"geo restricted", "ERROR: This video is not available in your country", domain.ErrKindUnavailable},
		{"connection reset", "ERROR: Unable to download webpage: Connection reset by peer", domain.ErrKindNetworkFailure},
		{"dns failure", "ERROR: getaddrinfo failed", domain.ErrKindNetworkFailure},
		{"unclassified", "ERROR: something novel", domain.ErrKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.classifyFailure(context.Background(), cause, tt.stderr)
			var de *domain.DownloadError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.kind, de.Kind)
		})
	}
}

func TestClassifyFailure_DeadlineWinsOverStderr(t *testing.T) {
	e := NewYTDLPExtractor(&domain.ExtractorConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := e.classifyFailure(ctx, errors.New("signal: killed"), "ERROR: Video unavailable")
	var de *domain.DownloadError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrKindTimeout, de.Kind)
}

func TestClassifyFailure_Cancelled(t *testing.T) {
	e := NewYTDLPExtractor(&domain.ExtractorConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.classifyFailure(ctx, errors.New("signal: killed"), "")
	var de *domain.DownloadError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrKindCancelled, de.Kind)
}

func TestNormalizeInfo(t *testing.T) {
	info := &ytdlpInfo{
		Title:     "Test Clip",
		Duration:  212.4,
		Thumbnail: "https://example.com/thumb.jpg",
		Formats: []ytdlpFormat{
			{FormatID: "audio", Height: 0, VCodec: "none", Ext: "m4a", Filesize: 1024},
			{FormatID: "18", Height: 360, VCodec: "avc1", Ext: "mp4", Filesize: 5_000_000},
			{FormatID: "247", Height: 720, VCodec: "vp9", Ext: "webm", Filesize: 9_000_000},
			{FormatID: "22", Height: 720, VCodec: "avc1", Ext: "mp4", Filesize: 12_000_000},
			{FormatID: "137", Height: 1080, VCodec: "avc1", Ext: "mp4", FilesizeApprox: 25_000_000},
		},
	}

	meta := normalizeInfo(info)
	assert.Equal(t, "Test Clip", meta.Title)
	assert.Equal(t, int64(212), meta.DurationSeconds)
	assert.Equal(t, "https://example.com/thumb.jpg", meta.ThumbnailURL)

	require.Len(t, meta.AvailableQualities, 3)
	assert.Equal(t, 360, meta.AvailableQualities[0].Height)
	assert.Equal(t, domain.QualityLow, meta.AvailableQualities[0].Tier)
	assert.Equal(t, 720, meta.AvailableQualities[1].Height)
	assert.Equal(t, "22", meta.AvailableQualities[1].FormatID)
	assert.Equal(t, int64(12_000_000), meta.AvailableQualities[1].EstimatedSizeBytes)
	assert.Equal(t, 1080, meta.AvailableQualities[2].Height)
	assert.Equal(t, int64(25_000_000), meta.AvailableQualities[2].EstimatedSizeBytes)
}

func TestNormalizeInfo_NoFormatHeights(t *testing.T) {
	info := &ytdlpInfo{Title: "Opaque", FilesizeApprox: 3_000_000}

	meta := normalizeInfo(info)
	require.Len(t, meta.AvailableQualities, 1)
	assert.Equal(t, domain.QualityHighest, meta.AvailableQualities[0].Tier)
	assert.Equal(t, int64(3_000_000), meta.AvailableQualities[0].EstimatedSizeBytes)
}
