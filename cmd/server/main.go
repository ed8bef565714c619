package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-analytics/internal/api"
	"github.com/ndewijer/portfolio-analytics/internal/config"
	"github.com/ndewijer/portfolio-analytics/internal/database"
	"github.com/ndewijer/portfolio-analytics/internal/logging"
	"github.com/ndewijer/portfolio-analytics/internal/scheduler"
	"github.com/ndewijer/portfolio-analytics/internal/service"
)

// snapshotJobTimeout bounds one run of the daily snapshot job.
const snapshotJobTimeout = 30 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logging.SetGlobalLogger(logger)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	applied, err := database.Migrate(context.Background(), db)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}
	logger.Info().
		Str("path", cfg.Database.Path).
		Int("migrations_applied", len(applied)).
		Msg("Connected to database")

	// Create services
	services := service.NewServices(db, service.SettingsFromConfig(cfg.Valuation), logger)

	// Daily snapshot job
	sched := scheduler.New(logger)
	if cfg.Scheduler.Enabled {
		job := scheduler.NewSnapshotJob(services.Valuation, snapshotJobTimeout)
		if err := sched.AddJob(cfg.Scheduler.SnapshotSchedule, job); err != nil {
			logger.Fatal().Err(err).Msg("Failed to schedule snapshot job")
		}
		sched.Start()
		defer sched.Stop()
	}

	// Create router
	router := api.NewRouter(services, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("base_currency", cfg.Valuation.BaseCurrency).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	logger.Info().Msg("Server exited")
}
