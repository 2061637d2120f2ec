package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantex/analytics/internal/config"
	"github.com/quantex/analytics/internal/database"
	"github.com/quantex/analytics/internal/modules/analysis"
	"github.com/quantex/analytics/internal/modules/frontier"
	"github.com/quantex/analytics/internal/modules/optimization"
	"github.com/quantex/analytics/internal/modules/returns"
	"github.com/quantex/analytics/internal/modules/risk"
	"github.com/quantex/analytics/internal/modules/riskmodel"
	"github.com/quantex/analytics/internal/scheduler"
	"github.com/quantex/analytics/internal/server"
	"github.com/quantex/analytics/internal/services"
	"github.com/quantex/analytics/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting portfolio analytics engine")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	seriesRepo := returns.NewSeriesRepository(db.Conn(), log)
	snapshotRepo := analysis.NewSnapshotRepository(db.Conn(), log)

	// Analytics pipeline
	model := riskmodel.New(log)
	optimizer := optimization.New(model, log)
	generator := frontier.New(optimizer, model, log)
	analyzer := risk.New(log)
	analysisService := analysis.NewService(model, optimizer, generator, analyzer, snapshotRepo, log)

	// HTTP handlers
	returnsHandler := returns.NewHandler(seriesRepo, log)
	analysisHandler := analysis.NewHandler(analysisService, seriesRepo, snapshotRepo, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, snapshotRepo, cfg, db, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:            cfg.Port,
		Log:             log,
		DB:              db,
		Config:          cfg,
		DevMode:         cfg.DevMode,
		ReturnsHandler:  returnsHandler,
		AnalysisHandler: analysisHandler,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	snapshots *analysis.SnapshotRepository,
	cfg *config.Config,
	db *database.DB,
	log zerolog.Logger,
) error {
	if err := sched.AddJob("@hourly", scheduler.NewSnapshotPruneJob(snapshots, cfg.SnapshotsToKeep, log)); err != nil {
		return err
	}

	if cfg.BackupEnabled {
		backup, err := services.NewBackupService(context.Background(), cfg.BackupBucket, cfg.BackupPrefix, db.Path(), log)
		if err != nil {
			return err
		}
		if err := sched.AddJob(cfg.BackupSchedule, scheduler.NewBackupJob(backup)); err != nil {
			return err
		}
	}

	return nil
}
