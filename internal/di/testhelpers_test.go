package di

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/cryptosim/internal/config"
)

// testConfig returns a fully populated configuration rooted at a temp dir
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		DataDir:  t.TempDir(),
		LogLevel: "info",
		Port:     8001,
		Simulation: &config.SimulationConfig{
			Symbols:          []string{"BTC-USD", "ETH-USD"},
			Days:             30,
			Simulations:      10,
			Lambda:           0.1,
			JumpMu:           0.1,
			JumpSigma:        0.2,
			VolatilityModel:  "constant",
			FirstCandle:      "flat",
			InsufficientData: "abort",
			FallbackMu:       0.1,
			FallbackSigma:    0.2,
			HighBandMin:      0.02,
			HighBandMax:      0.1,
			LowBandMin:       0.02,
			LowBandMax:       0.1,
			Workers:          2,
			HistoryPeriod:    "1mo",
			HistoryInterval:  "1h",
			BatchTimeout:     time.Minute,
		},
		Archive: &config.ArchiveConfig{Region: "auto", Prefix: "simulations/"},
	}
}

// unwritableDir returns a path below a regular file, so no directory can be created there
func unwritableDir(t *testing.T) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}
	return filepath.Join(file, "data")
}
