// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/aristath/cryptosim/internal/utils"
	"github.com/joho/godotenv"
)

// DefaultSymbols is the symbol set simulated when SIM_SYMBOLS is unset
var DefaultSymbols = []string{"BTC-USD", "ETH-USD", "BNB-USD", "ADA-USD", "XRP-USD", "LTC-USD"}

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for all databases (defaults to "./data", always absolute)
	LogLevel   string
	Port       int
	DevMode    bool
	Simulation *SimulationConfig
	Archive    *ArchiveConfig
}

// SimulationConfig holds batch simulation settings
type SimulationConfig struct {
	Symbols          []string
	Days             int
	Simulations      int
	Lambda           float64
	JumpMu           float64
	JumpSigma        float64
	VolatilityModel  string
	FirstCandle      string
	InsufficientData string
	FallbackMu       float64
	FallbackSigma    float64
	Kappa            float64
	Theta            float64
	VolOfVol         float64
	HighBandMin      float64
	HighBandMax      float64
	LowBandMin       float64
	LowBandMax       float64
	Seed             uint64 // 0 = derive from clock per batch
	Workers          int
	HistoryPeriod    string
	HistoryInterval  string
	Schedule         string // cron spec, empty disables scheduled batches
	BatchTimeout     time.Duration
	PreviewMax       int // days*simulations limit for preview runs
}

// ArchiveConfig holds the optional S3 snapshot settings
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int
}

// Enabled reports whether batch snapshots should be archived
func (a *ArchiveConfig) Enabled() bool {
	return a != nil && a.Bucket != ""
}

// Parameters converts the simulation block into shared engine parameters.
// Mu and Sigma are left zero; they are estimated per symbol.
func (c *SimulationConfig) Parameters() simulation.Parameters {
	p := simulation.Parameters{
		Lambda:      c.Lambda,
		JumpMu:      c.JumpMu,
		JumpSigma:   c.JumpSigma,
		Days:        c.Days,
		Simulations: c.Simulations,
		Model:       simulation.VolatilityModel(c.VolatilityModel),
		FirstCandle: simulation.FirstCandlePolicy(c.FirstCandle),
		Bands: simulation.Bands{
			High: simulation.Band{Min: c.HighBandMin, Max: c.HighBandMax},
			Low:  simulation.Band{Min: c.LowBandMin, Max: c.LowBandMax},
		},
	}
	if p.Model == simulation.ModelStochastic {
		p.Kappa = c.Kappa
		p.Theta = c.Theta
		p.VolOfVol = c.VolOfVol
	}
	return p
}

// ToBatchConfig converts the simulation block into a batch configuration
func (c *SimulationConfig) ToBatchConfig() simulation.BatchConfig {
	return simulation.BatchConfig{
		Symbols:           c.Symbols,
		Params:            c.Parameters(),
		Workers:           c.Workers,
		Seed:              c.Seed,
		PreviewMaxCandles: c.PreviewMax,
	}
}

// Policy returns the insufficient-data policy
func (c *SimulationConfig) Policy() simulation.InsufficientDataPolicy {
	return simulation.InsufficientDataPolicy(c.InsufficientData)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Always resolve to absolute path and make sure it exists
	dataDir := getEnv("CRYPTOSIM_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:    absDataDir,
		Port:       getEnvAsInt("GO_PORT", 8001),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Simulation: loadSimulationConfig(),
		Archive:    loadArchiveConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects malformed values. Engine-level ranges (days >= 1 and so
// on) are checked again at the start of every batch.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}

	s := c.Simulation
	if s == nil {
		return fmt.Errorf("simulation configuration is missing")
	}
	if len(s.Symbols) == 0 {
		return fmt.Errorf("SIM_SYMBOLS must name at least one symbol")
	}
	switch simulation.VolatilityModel(s.VolatilityModel) {
	case simulation.ModelConstant, simulation.ModelStochastic:
	default:
		return fmt.Errorf("invalid SIM_VOLATILITY_MODEL %q (want constant or stochastic)", s.VolatilityModel)
	}
	switch simulation.FirstCandlePolicy(s.FirstCandle) {
	case simulation.FirstCandleFlat, simulation.FirstCandleBanded:
	default:
		return fmt.Errorf("invalid SIM_FIRST_CANDLE %q (want flat or banded)", s.FirstCandle)
	}
	switch s.Policy() {
	case simulation.PolicyAbort, simulation.PolicyFallback:
	default:
		return fmt.Errorf("invalid SIM_INSUFFICIENT_DATA %q (want abort or fallback)", s.InsufficientData)
	}
	if s.Days < 0 || s.Simulations < 0 || s.Workers < 0 {
		return fmt.Errorf("SIM_DAYS, SIM_SIMULATIONS and SIM_WORKERS must not be negative")
	}
	if s.PreviewMax < 1 {
		return fmt.Errorf("SIM_PREVIEW_MAX_CANDLES must be positive")
	}
	if s.BatchTimeout < 0 {
		return fmt.Errorf("SIM_BATCH_TIMEOUT must not be negative")
	}

	if c.Archive.Enabled() {
		if (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
			return fmt.Errorf("ARCHIVE_S3_ACCESS_KEY_ID and ARCHIVE_S3_SECRET_ACCESS_KEY must be set together")
		}
		if c.Archive.RetentionDays < 0 {
			return fmt.Errorf("ARCHIVE_RETENTION_DAYS must not be negative")
		}
	}

	return nil
}

func loadSimulationConfig() *SimulationConfig {
	model := getEnv("SIM_VOLATILITY_MODEL", string(simulation.ModelConstant))
	bands := simulation.DefaultBands(simulation.VolatilityModel(model))

	return &SimulationConfig{
		Symbols:          getEnvAsList("SIM_SYMBOLS", DefaultSymbols),
		Days:             getEnvAsInt("SIM_DAYS", 30),
		Simulations:      getEnvAsInt("SIM_SIMULATIONS", 10),
		Lambda:           getEnvAsFloat("SIM_LAMBDA", 0.1),
		JumpMu:           getEnvAsFloat("SIM_JUMP_MU", 0.1),
		JumpSigma:        getEnvAsFloat("SIM_JUMP_SIGMA", 0.2),
		VolatilityModel:  model,
		FirstCandle:      getEnv("SIM_FIRST_CANDLE", string(simulation.FirstCandleFlat)),
		InsufficientData: getEnv("SIM_INSUFFICIENT_DATA", string(simulation.PolicyAbort)),
		FallbackMu:       getEnvAsFloat("SIM_FALLBACK_MU", 0.1),
		FallbackSigma:    getEnvAsFloat("SIM_FALLBACK_SIGMA", 0.2),
		Kappa:            getEnvAsFloat("SIM_KAPPA", 2.0),
		Theta:            getEnvAsFloat("SIM_THETA", 0.04),
		VolOfVol:         getEnvAsFloat("SIM_VOL_OF_VOL", 0.3),
		HighBandMin:      getEnvAsFloat("SIM_HIGH_BAND_MIN", bands.High.Min),
		HighBandMax:      getEnvAsFloat("SIM_HIGH_BAND_MAX", bands.High.Max),
		LowBandMin:       getEnvAsFloat("SIM_LOW_BAND_MIN", bands.Low.Min),
		LowBandMax:       getEnvAsFloat("SIM_LOW_BAND_MAX", bands.Low.Max),
		Seed:             getEnvAsUint64("SIM_SEED", 0),
		Workers:          getEnvAsInt("SIM_WORKERS", runtime.NumCPU()),
		HistoryPeriod:    getEnv("SIM_HISTORY_PERIOD", "1mo"),
		HistoryInterval:  getEnv("SIM_HISTORY_INTERVAL", "1h"),
		Schedule:         getEnv("SIM_SCHEDULE", ""),
		BatchTimeout:     getEnvAsDuration("SIM_BATCH_TIMEOUT", 5*time.Minute),
		PreviewMax:       getEnvAsInt("SIM_PREVIEW_MAX_CANDLES", simulation.DefaultPreviewMaxCandles),
	}
}

func loadArchiveConfig() *ArchiveConfig {
	return &ArchiveConfig{
		Bucket:          getEnv("ARCHIVE_S3_BUCKET", ""),
		Endpoint:        getEnv("ARCHIVE_S3_ENDPOINT", ""),
		Region:          getEnv("ARCHIVE_S3_REGION", "auto"),
		AccessKeyID:     getEnv("ARCHIVE_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("ARCHIVE_S3_PREFIX", "simulations/"),
		RetentionDays:   getEnvAsInt("ARCHIVE_RETENTION_DAYS", 30),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList reads a symbol list, see utils.ParseSymbolList
func getEnvAsList(key string, defaultValue []string) []string {
	if items := utils.ParseSymbolList(os.Getenv(key)); len(items) > 0 {
		return items
	}
	return append([]string(nil), defaultValue...)
}
