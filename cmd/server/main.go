// Package main is the entry point for the crypto price-path simulator.
// It serves stored Monte Carlo simulation results over HTTP and runs
// simulation batches on demand or on a cron schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/cryptosim/internal/config"
	"github.com/aristath/cryptosim/internal/di"
	"github.com/aristath/cryptosim/internal/server"
	"github.com/aristath/cryptosim/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env optional)
// 2. Initializes logging
// 3. Wires all dependencies (databases, repositories, services, jobs)
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully
//
// Databases:
// - simulations.db: latest result set (fully replaced per batch) and batch history
// - cache.db: Yahoo quote/history cache
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger so the configuration error is still reported
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Strs("symbols", cfg.Simulation.Symbols).
		Str("model", cfg.Simulation.VolatilityModel).
		Msg("Starting cryptosim")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Stops the scheduler and closes databases so WAL checkpoints are written
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests (including a triggered batch) get 10 seconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
