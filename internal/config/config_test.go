package config

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv("CRYPTOSIM_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)

	s := cfg.Simulation
	assert.Equal(t, DefaultSymbols, s.Symbols)
	assert.Equal(t, 30, s.Days)
	assert.Equal(t, 10, s.Simulations)
	assert.Equal(t, 0.1, s.Lambda)
	assert.Equal(t, 0.1, s.JumpMu)
	assert.Equal(t, 0.2, s.JumpSigma)
	assert.Equal(t, "constant", s.VolatilityModel)
	assert.Equal(t, "flat", s.FirstCandle)
	assert.Equal(t, simulation.PolicyAbort, s.Policy())
	assert.Equal(t, uint64(0), s.Seed)
	assert.Equal(t, runtime.NumCPU(), s.Workers)
	assert.Equal(t, "1mo", s.HistoryPeriod)
	assert.Equal(t, "1h", s.HistoryInterval)
	assert.Empty(t, s.Schedule)
	assert.Equal(t, 5*time.Minute, s.BatchTimeout)
	assert.Equal(t, simulation.DefaultPreviewMaxCandles, s.PreviewMax)
	assert.Equal(t, 0.02, s.HighBandMin)
	assert.Equal(t, 0.1, s.LowBandMax)

	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, "auto", cfg.Archive.Region)
	assert.Equal(t, "simulations/", cfg.Archive.Prefix)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CRYPTOSIM_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9000")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("SIM_SYMBOLS", " BTC-USD, ,ETH-USD ")
	t.Setenv("SIM_DAYS", "5")
	t.Setenv("SIM_VOLATILITY_MODEL", "stochastic")
	t.Setenv("SIM_FIRST_CANDLE", "banded")
	t.Setenv("SIM_INSUFFICIENT_DATA", "fallback")
	t.Setenv("SIM_SEED", "18446744073709551615")
	t.Setenv("SIM_BATCH_TIMEOUT", "90s")
	t.Setenv("SIM_LOW_BAND_MAX", "0.05")
	t.Setenv("ARCHIVE_S3_BUCKET", "sims")
	t.Setenv("ARCHIVE_S3_ACCESS_KEY_ID", "id")
	t.Setenv("ARCHIVE_S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.DevMode)

	s := cfg.Simulation
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, s.Symbols)
	assert.Equal(t, 5, s.Days)
	assert.Equal(t, uint64(18446744073709551615), s.Seed)
	assert.Equal(t, 90*time.Second, s.BatchTimeout)
	assert.Equal(t, simulation.PolicyFallback, s.Policy())

	// stochastic band defaults, with one override
	assert.Equal(t, 0.009, s.HighBandMin)
	assert.Equal(t, 0.025, s.HighBandMax)
	assert.Equal(t, 0.009, s.LowBandMin)
	assert.Equal(t, 0.05, s.LowBandMax)

	assert.True(t, cfg.Archive.Enabled())
}

func TestLoad_SymbolsNormalizedAndDeduplicated(t *testing.T) {
	t.Setenv("CRYPTOSIM_DATA_DIR", t.TempDir())
	t.Setenv("SIM_SYMBOLS", "BTC-USD,eth/usd,btc-usd,ETH-USD")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Simulation.Symbols)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CRYPTOSIM_DATA_DIR", t.TempDir())
	t.Setenv("SIM_DAYS", "thirty")
	t.Setenv("SIM_LAMBDA", "lots")
	t.Setenv("SIM_BATCH_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Simulation.Days)
	assert.Equal(t, 0.1, cfg.Simulation.Lambda)
	assert.Equal(t, 5*time.Minute, cfg.Simulation.BatchTimeout)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"unknown model", "SIM_VOLATILITY_MODEL", "heston", "SIM_VOLATILITY_MODEL"},
		{"unknown first candle", "SIM_FIRST_CANDLE", "wild", "SIM_FIRST_CANDLE"},
		{"unknown policy", "SIM_INSUFFICIENT_DATA", "guess", "SIM_INSUFFICIENT_DATA"},
		{"negative days", "SIM_DAYS", "-1", "must not be negative"},
		{"negative workers", "SIM_WORKERS", "-4", "must not be negative"},
		{"bad port", "GO_PORT", "70000", "GO_PORT"},
		{"zero preview limit", "SIM_PREVIEW_MAX_CANDLES", "0", "SIM_PREVIEW_MAX_CANDLES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CRYPTOSIM_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ArchiveCredentialsTogether(t *testing.T) {
	t.Setenv("CRYPTOSIM_DATA_DIR", t.TempDir())
	t.Setenv("ARCHIVE_S3_BUCKET", "sims")
	t.Setenv("ARCHIVE_S3_ACCESS_KEY_ID", "id")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestSimulationConfig_ToBatchConfig(t *testing.T) {
	s := &SimulationConfig{
		Symbols:         []string{"BTC-USD"},
		Days:            30,
		Simulations:     10,
		Lambda:          0.1,
		JumpMu:          0.1,
		JumpSigma:       0.2,
		VolatilityModel: "constant",
		FirstCandle:     "flat",
		Kappa:           2,
		Theta:           0.04,
		VolOfVol:        0.3,
		HighBandMin:     0.02,
		HighBandMax:     0.1,
		LowBandMin:      0.02,
		LowBandMax:      0.1,
		Seed:            7,
		Workers:         3,
		PreviewMax:      500,
	}

	bc := s.ToBatchConfig()
	assert.Equal(t, []string{"BTC-USD"}, bc.Symbols)
	assert.Equal(t, 3, bc.Workers)
	assert.Equal(t, uint64(7), bc.Seed)
	assert.Equal(t, 500, bc.PreviewMaxCandles)
	assert.Equal(t, simulation.ModelConstant, bc.Params.Model)
	assert.Equal(t, simulation.DefaultBands(simulation.ModelConstant), bc.Params.Bands)
	// variance process settings only travel with the stochastic model
	assert.Zero(t, bc.Params.Kappa)
	require.NoError(t, bc.Params.Validate(1))

	s.VolatilityModel = "stochastic"
	p := s.Parameters()
	assert.Equal(t, 2.0, p.Kappa)
	assert.Equal(t, 0.04, p.Theta)
	assert.Equal(t, 0.3, p.VolOfVol)
}
