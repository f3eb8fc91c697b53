package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aristath/cryptosim/internal/domain"
	"github.com/aristath/cryptosim/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrBatchInProgress is returned when a batch is triggered while another runs.
var ErrBatchInProgress = errors.New("simulation batch already in progress")

// DefaultPreviewMaxCandles bounds days*simulations of a preview run.
const DefaultPreviewMaxCandles = 100_000

// Skip reasons recorded in BatchReport.
const (
	SkipDataUnavailable  = "data_unavailable"
	SkipInsufficientData = "insufficient_data"
	SkipInvalidParameter = "invalid_parameter"
	SkipFailed           = "failed"
)

// SkippedSymbol records why a symbol produced no result.
type SkippedSymbol struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// BatchReport is the single outcome reported for a batch run.
type BatchReport struct {
	BatchID       string          `json:"batch_id"`
	Seed          uint64          `json:"seed"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
	Succeeded     []string        `json:"succeeded"`
	Skipped       []SkippedSymbol `json:"skipped"`
	ClampedPrices int             `json:"clamped_prices"`
}

// BatchConfig is the shared configuration of every batch.
// Params.Mu and Params.Sigma are replaced per symbol.
type BatchConfig struct {
	Symbols []string
	Params  Parameters
	Workers int
	Seed    uint64 // 0 derives a seed from the clock for every batch

	// PreviewMaxCandles caps days*simulations of caller-supplied preview
	// parameters. Zero means DefaultPreviewMaxCandles.
	PreviewMaxCandles int
}

// ResultStore persists batch output.
type ResultStore interface {
	ReplaceAll(ctx context.Context, batch *BatchReport, results []StoredResult) error
	GetBySymbol(ctx context.Context, symbol string) (*StoredResult, error)
	List(ctx context.Context) ([]StoredResult, error)
	LatestBatch(ctx context.Context) (*BatchReport, error)
}

// Archiver keeps an off-site copy of a finished batch.
type Archiver interface {
	Archive(ctx context.Context, batch *BatchReport, results []domain.SimulationResult) error
}

// Service runs simulation batches and serves stored results.
type Service struct {
	engine    *Engine
	estimator *Estimator
	seeds     domain.SeedProvider
	store     ResultStore
	archiver  Archiver
	cfg       BatchConfig
	running   atomic.Bool
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a new simulation service
func NewService(
	engine *Engine,
	estimator *Estimator,
	seeds domain.SeedProvider,
	store ResultStore,
	cfg BatchConfig,
	log zerolog.Logger,
) *Service {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PreviewMaxCandles < 1 {
		cfg.PreviewMaxCandles = DefaultPreviewMaxCandles
	}
	cfg.Params = cfg.Params.WithDefaults()

	log = log.With().Str("service", "simulation").Logger()

	// Results are keyed by symbol, so a repeated symbol would collide on write.
	symbols := uniqueSymbols(cfg.Symbols)
	if len(symbols) < len(cfg.Symbols) {
		log.Warn().
			Strs("configured", cfg.Symbols).
			Strs("symbols", symbols).
			Msg("Ignoring duplicate symbols")
	}
	cfg.Symbols = symbols

	return &Service{
		engine:    engine,
		estimator: estimator,
		seeds:     seeds,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// uniqueSymbols drops repeated symbols, keeping first-seen order.
func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}

// SetArchiver enables archiving of finished batches.
func (s *Service) SetArchiver(a Archiver) {
	s.archiver = a
}

// Running reports whether a batch is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

type symbolOutcome struct {
	stored  *StoredResult
	skipped *SkippedSymbol
	clamped int
}

// RunBatch simulates every configured symbol and replaces all stored
// results with the new set. Per-symbol failures are reported as skipped.
// Invalid shared configuration, cancellation and storage failures fail
// the whole batch.
func (s *Service) RunBatch(ctx context.Context) (*BatchReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}
	defer s.running.Store(false)

	// Shared settings are checked once, with neutral drift and volatility, before any fetch.
	shared := s.cfg.Params
	shared.Mu, shared.Sigma = 0, 0
	if err := shared.Validate(1); err != nil {
		s.log.Error().Err(err).Msg("Invalid batch configuration")
		return nil, fmt.Errorf("invalid batch configuration: %w", err)
	}

	report := &BatchReport{
		BatchID:   uuid.New().String(),
		Seed:      s.cfg.Seed,
		StartedAt: s.now().UTC(),
		Succeeded: []string{},
		Skipped:   []SkippedSymbol{},
	}
	if report.Seed == 0 {
		report.Seed = uint64(report.StartedAt.UnixNano())
	}

	s.log.Info().
		Str("batch_id", report.BatchID).
		Uint64("seed", report.Seed).
		Int("symbols", len(s.cfg.Symbols)).
		Msg("Starting simulation batch")

	outcomes := make([]symbolOutcome, len(s.cfg.Symbols))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, symbol := range s.cfg.Symbols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.runSymbol(ctx, symbol, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Str("batch_id", report.BatchID).Msg("Simulation batch cancelled")
		return nil, fmt.Errorf("simulation batch cancelled: %w", err)
	}

	stored := make([]StoredResult, 0, len(outcomes))
	results := make([]domain.SimulationResult, 0, len(outcomes))
	for _, o := range outcomes {
		report.ClampedPrices += o.clamped
		if o.skipped != nil {
			report.Skipped = append(report.Skipped, *o.skipped)
			continue
		}
		report.Succeeded = append(report.Succeeded, o.stored.Result.Symbol)
		stored = append(stored, *o.stored)
		results = append(results, o.stored.Result)
	}
	report.CompletedAt = s.now().UTC()

	if err := s.store.ReplaceAll(ctx, report, stored); err != nil {
		s.log.Error().Err(err).Str("batch_id", report.BatchID).Msg("Failed to store simulation results")
		return nil, fmt.Errorf("failed to store simulation results: %w", err)
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, report, results); err != nil {
			s.log.Warn().Err(err).Str("batch_id", report.BatchID).Msg("Failed to archive simulation batch")
		}
	}

	s.log.Info().
		Str("batch_id", report.BatchID).
		Int("succeeded", len(report.Succeeded)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.CompletedAt.Sub(report.StartedAt)).
		Msg("Simulation batch completed")

	return report, nil
}

func (s *Service) runSymbol(ctx context.Context, symbol string, report *BatchReport) symbolOutcome {
	log := s.log.With().Str("symbol", symbol).Logger()
	defer utils.OperationTimer("simulate_symbol", log)()

	seed, err := s.seeds.FetchSeed(ctx, symbol)
	if err != nil {
		return s.skip(log, symbol, err)
	}

	est, err := s.estimator.Resolve(seed.History)
	if err != nil {
		return s.skip(log, symbol, err)
	}
	if est.Fallback {
		log.Warn().Int("points", est.Points).Msg("Insufficient history, using fallback drift and volatility")
	}

	params := s.cfg.Params
	params.Mu, params.Sigma = est.Mu, est.Sigma

	rng := NewRandomSource(report.Seed, SymbolStream(symbol))
	paths, runReport, err := s.engine.RunWithReport(seed.Price, params, rng)
	if err != nil {
		return s.skip(log, symbol, err)
	}

	log.Info().
		Float64("seed_price", seed.Price).
		Float64("mu", est.Mu).
		Float64("sigma", est.Sigma).
		Int("paths", len(paths)).
		Msg("Simulated symbol")

	return symbolOutcome{
		stored: &StoredResult{
			Result:     Aggregate(symbol, paths),
			Parameters: params,
			BatchID:    report.BatchID,
			CreatedAt:  report.StartedAt,
		},
		clamped: len(runReport.Clamped),
	}
}

func (s *Service) skip(log zerolog.Logger, symbol string, err error) symbolOutcome {
	kind := classify(err)
	log.Warn().Err(err).Str("kind", kind).Msg("Skipping symbol")
	return symbolOutcome{
		skipped: &SkippedSymbol{Symbol: symbol, Kind: kind, Reason: err.Error()},
	}
}

func classify(err error) string {
	var (
		dataErr    *domain.DataUnavailableError
		shortErr   *domain.InsufficientDataError
		invalidErr *domain.InvalidParameterError
	)
	switch {
	case errors.As(err, &dataErr):
		return SkipDataUnavailable
	case errors.As(err, &shortErr):
		return SkipInsufficientData
	case errors.As(err, &invalidErr):
		return SkipInvalidParameter
	default:
		return SkipFailed
	}
}

// PreviewRequest is an ad-hoc run that is never stored.
type PreviewRequest struct {
	InitialPrice float64    `json:"initial_price"`
	Parameters   Parameters `json:"parameters"`
	Seed         uint64     `json:"seed"`
}

// Preview runs the engine once for req without touching stored results.
// A zero seed derives one from the clock. Runs larger than
// PreviewMaxCandles are rejected before anything is allocated.
func (s *Service) Preview(req PreviewRequest) ([]domain.PricePath, error) {
	limit := s.cfg.PreviewMaxCandles
	if p := req.Parameters; p.Days > 0 && p.Simulations > 0 && p.Days > limit/p.Simulations {
		return nil, &domain.InvalidParameterError{
			Field:  "days*simulations",
			Value:  float64(p.Days) * float64(p.Simulations),
			Reason: fmt.Sprintf("preview is limited to %d candles", limit),
		}
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(s.now().UnixNano())
	}
	return s.engine.Run(req.InitialPrice, req.Parameters, NewRandomSource(seed, 0))
}

// Result returns the stored document for symbol.
func (s *Service) Result(ctx context.Context, symbol string) (*StoredResult, error) {
	return s.store.GetBySymbol(ctx, symbol)
}

// Results returns every stored document.
func (s *Service) Results(ctx context.Context) ([]StoredResult, error) {
	return s.store.List(ctx)
}

// Summary returns distribution statistics for symbol's stored paths.
func (s *Service) Summary(ctx context.Context, symbol string) (*Summary, error) {
	res, err := s.store.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	summary := Summarize(res.Result)
	return &summary, nil
}

// LatestBatch returns the last completed batch, nil if none.
func (s *Service) LatestBatch(ctx context.Context) (*BatchReport, error) {
	return s.store.LatestBatch(ctx)
}
