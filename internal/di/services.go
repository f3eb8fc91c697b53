// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/cryptosim/internal/clients/yahoo"
	"github.com/aristath/cryptosim/internal/config"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/aristath/cryptosim/internal/reliability"
	"github.com/aristath/cryptosim/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices creates all services and stores them in the container
// This is the SINGLE SOURCE OF TRUTH for all service creation
// Services are created in dependency order to ensure all dependencies exist
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// ==========================================
	// STEP 1: Initialize Clients
	// ==========================================

	container.YahooClient = yahoo.NewClient(log)

	// ==========================================
	// STEP 2: Market data (seed collaborator)
	// ==========================================

	simCfg := cfg.Simulation
	container.MarketDataService = services.NewMarketDataService(
		container.YahooClient,
		container.ClientDataRepo,
		simCfg.HistoryPeriod,
		simCfg.HistoryInterval,
		log,
	)

	// ==========================================
	// STEP 3: Simulation core
	// ==========================================

	container.SimulationEngine = simulation.NewEngine(log)
	container.Estimator = simulation.NewEstimator(simCfg.Policy(), simCfg.FallbackMu, simCfg.FallbackSigma)
	container.SimulationService = simulation.NewService(
		container.SimulationEngine,
		container.Estimator,
		container.MarketDataService,
		container.SimulationRepo,
		simCfg.ToBatchConfig(),
		log,
	)

	// ==========================================
	// STEP 4: Optional archive
	// ==========================================

	if cfg.Archive.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s3Client, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:          cfg.Archive.Bucket,
			Endpoint:        cfg.Archive.Endpoint,
			Region:          cfg.Archive.Region,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create archive client: %w", err)
		}

		container.ArchiveService = reliability.NewArchiveService(s3Client, cfg.Archive.Prefix, log)
		container.SimulationService.SetArchiver(container.ArchiveService)
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Batch archiving enabled")
	} else {
		log.Info().Msg("Batch archiving disabled (ARCHIVE_S3_BUCKET not set)")
	}

	log.Info().Msg("All services initialized")

	return nil
}
