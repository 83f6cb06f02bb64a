// Package main is the entry point for the Eigenspin service: an HTTP API for
// building spin Hamiltonians, evaluating their expectation values over
// parameterized kernels, and minimizing them variationally.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/avramidis/eigenspin/internal/config"
	"github.com/avramidis/eigenspin/internal/database"
	"github.com/avramidis/eigenspin/internal/events"
	"github.com/avramidis/eigenspin/internal/modules/runs"
	"github.com/avramidis/eigenspin/internal/modules/vqe"
	"github.com/avramidis/eigenspin/internal/scheduler"
	"github.com/avramidis/eigenspin/internal/server"
	"github.com/avramidis/eigenspin/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting Eigenspin")

	// Runs database
	runsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileStandard,
		Name:    "runs",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open runs database")
	}
	defer runsDB.Close()

	runRepo := runs.NewRepository(runsDB, log)
	if err := runRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize runs schema")
	}

	// Event bus and VQE service
	eventBus := events.NewBus(log)
	vqeService := vqe.NewService(runRepo, eventBus, vqe.Options{
		MaxIterations: cfg.OptimizerMaxIterations,
		Tolerance:     cfg.OptimizerTolerance,
	}, log)

	// Maintenance jobs
	walCheckpointJob := scheduler.NewWALCheckpointJob(runsDB, log)
	pruneRunsJob := scheduler.NewPruneRunsJob(
		runRepo,
		time.Duration(cfg.RunRetentionDays)*24*time.Hour,
		log,
	)

	sched := scheduler.New(log)
	if err := sched.AddJob("0 0 * * * *", walCheckpointJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register WAL checkpoint job")
	}
	if err := sched.AddJob("0 30 3 * * *", pruneRunsJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register run pruning job")
	}
	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:        log,
		Config:     cfg,
		RunsDB:     runsDB,
		RunRepo:    runRepo,
		VQEService: vqeService,
		EventBus:   eventBus,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
	})
	srv.SetJobs(walCheckpointJob, pruneRunsJob)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	// Graceful shutdown with a bounded wait for in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Flush the WAL so the next startup begins from a clean file
	if err := runsDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().Msg("Server stopped")
}
