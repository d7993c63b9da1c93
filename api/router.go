package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/api/handlers"
	"github.com/Matkids/Video-Downloader/api/middleware"
	"github.com/Matkids/Video-Downloader/internal/app"
	"github.com/Matkids/Video-Downloader/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	orchestrator *app.Orchestrator,
	artifacts *app.ArtifactServer,
	cleaner *app.Cleaner,
	events *app.EventHub,
	repo domain.DownloadRepository,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(repo)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(orchestrator, artifacts, cleaner, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.Submit)
			downloads.GET("", downloadHandler.List)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.Get)
			downloads.GET("/:id/file", downloadHandler.ServeArtifact)
			downloads.POST("/:id/cancel", downloadHandler.Cancel)
			downloads.DELETE("/:id", downloadHandler.Delete)
		}

		maintenance := v1.Group("/maintenance")
		{
			maintenance.POST("/cleanup", downloadHandler.Cleanup)
		}

		eventsHandler := handlers.NewEventsWebSocketHandler(events, log)
		v1.GET("/events", eventsHandler.HandleWebSocket)
	}

	return router
}
