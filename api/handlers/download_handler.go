package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/internal/app"
	"github.com/Matkids/Video-Downloader/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	orchestrator *app.Orchestrator
	artifacts    *app.ArtifactServer
	cleaner      *app.Cleaner
	logger       *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(orchestrator *app.Orchestrator, artifacts *app.ArtifactServer, cleaner *app.Cleaner, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		orchestrator: orchestrator,
		artifacts:    artifacts,
		cleaner:      cleaner,
		logger:       logger,
	}
}

// SubmitRequest represents a request to submit a download
type SubmitRequest struct {
	URL      string `json:"original_url" binding:"required"`
	Platform string `json:"platform,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// Submit handles POST /api/v1/downloads
func (h *DownloadHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	download, err := h.orchestrator.Submit(req.URL, domain.Platform(req.Platform), domain.Quality(req.Quality))
	if err != nil {
		h.logger.Error("Failed to submit download", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, download)
}

// Get handles GET /api/v1/downloads/:id
func (h *DownloadHandler) Get(c *gin.Context) {
	download, err := h.orchestrator.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}
	c.JSON(http.StatusOK, download)
}

// List handles GET /api/v1/downloads
func (h *DownloadHandler) List(c *gin.Context) {
	filters := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if platform := c.Query("platform"); platform != "" {
		filters["platform"] = platform
	}

	downloads, err := h.orchestrator.List(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, downloads)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.orchestrator.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cancel handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) Cancel(c *gin.Context) {
	download, err := h.orchestrator.Cancel(c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, download)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
	case errors.Is(err, domain.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "download already in a terminal state",
			"download": download,
		})
	default:
		h.logger.Error("Failed to cancel download", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Delete handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) Delete(c *gin.Context) {
	err := h.orchestrator.Delete(c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "download deleted"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
	case errors.Is(err, domain.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "download is active; cancel it first"})
	default:
		h.logger.Error("Failed to delete download", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ServeArtifact handles GET /api/v1/downloads/:id/file
func (h *DownloadHandler) ServeArtifact(c *gin.Context) {
	id := c.Param("id")
	artifact, err := h.artifacts.Open(id)
	if err != nil {
		h.writeServeError(c, id, err)
		return
	}
	defer artifact.File.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", artifact.Filename),
	}
	c.DataFromReader(http.StatusOK, artifact.Size, "video/mp4", artifact.File, extraHeaders)
}

func (h *DownloadHandler) writeServeError(c *gin.Context, id string, err error) {
	var de *domain.DownloadError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
	case errors.Is(err, domain.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "download not ready"})
	case errors.As(err, &de) && de.Kind == domain.ErrKindArtifactMissing:
		c.JSON(http.StatusGone, gin.H{"error": de.Error()})
	default:
		h.logger.Error("Failed to serve artifact", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Cleanup handles POST /api/v1/maintenance/cleanup
func (h *DownloadHandler) Cleanup(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
		return
	}
	keepReady := c.Query("keep_ready") == "true"
	dryRun := c.Query("dry_run") == "true"

	result, err := h.cleaner.Purge(time.Duration(days)*24*time.Hour, keepReady, dryRun)
	if err != nil {
		h.logger.Error("Cleanup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
