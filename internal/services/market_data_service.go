package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/aristath/cryptosim/internal/clientdata"
	"github.com/aristath/cryptosim/internal/domain"
	"github.com/rs/zerolog"
)

// QuoteProvider fetches live prices and close history.
type QuoteProvider interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
	GetCloseHistory(ctx context.Context, symbol, period, interval string) ([]float64, error)
}

// cachedQuote is the structure stored in yahoo_quotes
type cachedQuote struct {
	Price float64 `json:"price"`
}

// cachedHistory is the structure stored in yahoo_history
type cachedHistory struct {
	Period   string    `json:"period"`
	Interval string    `json:"interval"`
	Closes   []float64 `json:"closes"`
}

// MarketDataService supplies simulation seeds. It implements domain.SeedProvider.
type MarketDataService struct {
	provider QuoteProvider
	cache    *clientdata.Repository
	period   string
	interval string
	log      zerolog.Logger
}

// NewMarketDataService creates a new market data service.
// cache is optional - if nil, caching is disabled.
func NewMarketDataService(
	provider QuoteProvider,
	cache *clientdata.Repository,
	period string,
	interval string,
	log zerolog.Logger,
) *MarketDataService {
	return &MarketDataService{
		provider: provider,
		cache:    cache,
		period:   period,
		interval: interval,
		log:      log.With().Str("service", "market_data").Logger(),
	}
}

// FetchSeed returns the close history for symbol and a seed price taken from
// its last close, or from a live quote when no history is available.
// History failures alone are not fatal; the estimator decides what to do
// with a short series.
func (s *MarketDataService) FetchSeed(ctx context.Context, symbol string) (domain.SeedData, error) {
	seed := domain.SeedData{Symbol: symbol}

	history, histErr := s.getHistory(ctx, symbol)
	if histErr != nil {
		s.log.Warn().Err(histErr).Str("symbol", symbol).Msg("History unavailable, falling back to quote")
	}
	seed.History = history

	if len(history) > 0 {
		seed.Price = history[len(history)-1]
	} else {
		price, err := s.getQuote(ctx, symbol)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.SeedData{}, ctxErr
			}
			return domain.SeedData{}, &domain.DataUnavailableError{
				Symbol: symbol,
				Reason: "no history and no quote",
				Err:    errors.Join(histErr, err),
			}
		}
		seed.Price = price
	}

	if !(seed.Price > 0) || math.IsInf(seed.Price, 0) {
		return domain.SeedData{}, &domain.DataUnavailableError{
			Symbol: symbol,
			Reason: fmt.Sprintf("invalid seed price %v", seed.Price),
		}
	}

	return seed, nil
}

func (s *MarketDataService) getHistory(ctx context.Context, symbol string) ([]float64, error) {
	if cached, ok := s.cachedHistory(symbol, true); ok {
		s.log.Debug().Str("symbol", symbol).Int("points", len(cached)).Msg("History cache hit")
		return cached, nil
	}

	closes, err := s.provider.GetCloseHistory(ctx, symbol, s.period, s.interval)
	if err != nil {
		// Stale data is better than no data
		if stale, ok := s.cachedHistory(symbol, false); ok {
			s.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Int("points", len(stale)).
				Msg("Provider failed, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	if s.cache != nil && len(closes) > 0 {
		entry := cachedHistory{Period: s.period, Interval: s.interval, Closes: closes}
		if err := s.cache.Store(clientdata.TableYahooHistory, symbol, entry, clientdata.TTLYahooHistory); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache history")
		}
	}

	return closes, nil
}

func (s *MarketDataService) cachedHistory(symbol string, freshOnly bool) ([]float64, bool) {
	if s.cache == nil {
		return nil, false
	}

	get := s.cache.Get
	if freshOnly {
		get = s.cache.GetIfFresh
	}
	data, err := get(clientdata.TableYahooHistory, symbol)
	if err != nil || data == nil {
		return nil, false
	}

	var entry cachedHistory
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	// A cached series for another window would skew the estimate
	if entry.Period != s.period || entry.Interval != s.interval || len(entry.Closes) == 0 {
		return nil, false
	}
	return entry.Closes, true
}

func (s *MarketDataService) getQuote(ctx context.Context, symbol string) (float64, error) {
	if price, ok := s.cachedQuote(symbol, true); ok {
		s.log.Debug().Str("symbol", symbol).Float64("price", price).Msg("Quote cache hit")
		return price, nil
	}

	price, err := s.provider.GetCurrentPrice(ctx, symbol)
	if err != nil {
		if stale, ok := s.cachedQuote(symbol, false); ok {
			s.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Float64("price", stale).
				Msg("Provider failed, using stale cached quote")
			return stale, nil
		}
		return 0, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	if s.cache != nil {
		if err := s.cache.Store(clientdata.TableYahooQuotes, symbol, cachedQuote{Price: price}, clientdata.TTLYahooQuote); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	return price, nil
}

func (s *MarketDataService) cachedQuote(symbol string, freshOnly bool) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}

	get := s.cache.Get
	if freshOnly {
		get = s.cache.GetIfFresh
	}
	data, err := get(clientdata.TableYahooQuotes, symbol)
	if err != nil || data == nil {
		return 0, false
	}

	var entry cachedQuote
	if err := json.Unmarshal(data, &entry); err != nil || entry.Price <= 0 {
		return 0, false
	}
	return entry.Price, true
}
