// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/cryptosim/internal/clientdata"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Client data repository - Yahoo response cache (cache.db)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	// Simulation repository - results and batch records (simulations.db)
	container.SimulationRepo = simulation.NewRepository(container.SimulationsDB.Conn(), log)

	log.Info().Msg("All repositories initialized")

	return nil
}
