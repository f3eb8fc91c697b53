// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/cryptosim/internal/config"
	"github.com/aristath/cryptosim/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. simulations.db - batch results (fully replaced every batch) and batch history
	simulationsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "simulations.db"),
		Profile: database.ProfileStandard,
		Name:    "simulations",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize simulations database: %w", err)
	}
	container.SimulationsDB = simulationsDB

	// 2. cache.db - Yahoo quote and history responses
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache, // Maximum speed for ephemeral data
		Name:    "cache",
	})
	if err != nil {
		simulationsDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// Apply schemas to all databases (single source of truth)
	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
