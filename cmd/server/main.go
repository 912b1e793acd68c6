// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/shelflife/backend-go/internal/api"
	"github.com/andresuchdata/shelflife/backend-go/internal/bootstrap"
	"github.com/andresuchdata/shelflife/backend-go/internal/cache"
	"github.com/andresuchdata/shelflife/backend-go/internal/config"
	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/shelflife/backend-go/internal/service"
	"github.com/andresuchdata/shelflife/backend-go/internal/storage"
	"github.com/andresuchdata/shelflife/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON()
	}

	ctx := context.Background()

	// Initialize database
	var db *postgres.DB
	if cfg.Operations.DataSource != bootstrap.SourceCSV {
		var err error
		db, err = postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	inputs, err := bootstrap.NewInputs(cfg, db)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize data sources")
	}

	// Model handle
	modelStore, err := storage.NewModelStoreFromConfig(cfg.Model)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize model store")
	}
	registry := forecast.NewRegistry(nil)
	if m, err := modelStore.Load(ctx); err == nil {
		registry.Swap(m)
	} else if errors.Is(err, domain.ErrModelNotTrained) {
		logger.Log.Warn().Msg("No trained model found; predictions fall back to last-known-good forecasts")
	} else {
		logger.Log.Fatal().Err(err).Msg("Failed to load model")
	}

	// Caches
	archive, err := cache.NewForecastArchive(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Forecast archive unavailable, continuing without it")
		archive = cache.NewNoopForecastArchive()
	}
	reports, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reports = cache.NewNoopReportCache()
	}

	// Initialize services
	orchestrator := bootstrap.NewOrchestrator(cfg, registry, inputs, archive)
	opsService := service.NewOperationsService(registry, orchestrator, modelStore, reports)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{Operations: opsService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
