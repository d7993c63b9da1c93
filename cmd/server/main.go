package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Matkids/Video-Downloader/api"
	"github.com/Matkids/Video-Downloader/internal/app"
	"github.com/Matkids/Video-Downloader/internal/infrastructure"
	"github.com/Matkids/Video-Downloader/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting video downloader server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("base_dir", config.Download.BaseDir))

	for _, dir := range []string{
		config.Download.BaseDir,
		config.Download.ArtifactsDir(),
		config.Download.TempDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Download.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Rows left in-flight by a previous process can never complete.
	if reset, err := repo.ResetOrphanedInFlight(); err != nil {
		log.Warn("Failed to reset orphaned downloads", zap.Error(err))
	} else if reset > 0 {
		log.Info("Reset orphaned in-flight downloads", zap.Int64("count", reset))
	}

	extractor := infrastructure.NewYTDLPExtractor(&config.Extractor, log)
	events := app.NewEventHub()
	orchestrator := app.NewOrchestrator(repo, extractor, &config.Download, events, log)
	artifacts := app.NewArtifactServer(repo, events, log)
	cleaner := app.NewCleaner(repo, log)

	router := api.SetupRouter(orchestrator, artifacts, cleaner, events, repo, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Error("Workers did not finish in time", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
