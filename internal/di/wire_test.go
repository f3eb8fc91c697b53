package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(container.Close)

	// Verify container is fully populated
	assert.NotNil(t, container.SimulationsDB)
	assert.NotNil(t, container.CacheDB)
	assert.NotNil(t, container.ClientDataRepo)
	assert.NotNil(t, container.SimulationRepo)
	assert.NotNil(t, container.YahooClient)
	assert.NotNil(t, container.MarketDataService)
	assert.NotNil(t, container.SimulationEngine)
	assert.NotNil(t, container.Estimator)
	assert.NotNil(t, container.SimulationService)
	assert.Nil(t, container.ArchiveService)
	assert.NotNil(t, container.Scheduler)

	assert.False(t, container.SimulationService.Running())
}

func TestWire_WithArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Bucket = "sims"
	cfg.Archive.Endpoint = "http://127.0.0.1:9000"
	cfg.Archive.AccessKeyID = "id"
	cfg.Archive.SecretAccessKey = "secret"
	cfg.Archive.RetentionDays = 30

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	assert.NotNil(t, container.ArchiveService)
	assert.NotNil(t, jobs.ArchiveRotation)
}

func TestWire_InvalidDataDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataDir = unwritableDir(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
	assert.Nil(t, jobs)
}
