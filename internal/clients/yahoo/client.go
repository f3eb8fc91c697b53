// Package yahoo fetches seed prices and close history from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/cryptosim/internal/utils"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

const defaultMaxRetries = 3

// Client wraps go-yfinance with retries and symbol normalisation.
type Client struct {
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		maxRetries: defaultMaxRetries,
		backoff:    exponentialBackoff,
		log:        log.With().Str("client", "yahoo").Logger(),
	}
}

// exponentialBackoff waits 1s, 2s, 4s, ... between attempts.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// GetCurrentPrice returns the latest market price for symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	yahooSymbol := utils.NormalizeSymbol(symbol)

	var price float64
	err := c.retry(ctx, yahooSymbol, func() error {
		t, err := ticker.New(yahooSymbol)
		if err != nil {
			return fmt.Errorf("failed to create ticker: %w", err)
		}
		defer t.Close()

		quote, err := t.Quote()
		if err != nil {
			return fmt.Errorf("failed to get quote: %w", err)
		}
		if quote == nil {
			return fmt.Errorf("empty quote")
		}

		for _, candidate := range []float64{quote.RegularMarketPrice, quote.PreMarketPrice, quote.PostMarketPrice} {
			if candidate > 0 && !math.IsInf(candidate, 0) {
				price = candidate
				return nil
			}
		}
		return fmt.Errorf("quote has no valid price")
	})
	if err != nil {
		return 0, err
	}

	return price, nil
}

// GetCloseHistory returns time-ascending closes for period at interval
// (e.g. "1mo" of "1h" bars). Non-finite and non-positive closes are dropped.
func (c *Client) GetCloseHistory(ctx context.Context, symbol, period, interval string) ([]float64, error) {
	yahooSymbol := utils.NormalizeSymbol(symbol)

	var closes []float64
	err := c.retry(ctx, yahooSymbol, func() error {
		t, err := ticker.New(yahooSymbol)
		if err != nil {
			return fmt.Errorf("failed to create ticker: %w", err)
		}
		defer t.Close()

		bars, err := t.History(models.HistoryParams{
			Period:     period,
			Interval:   interval,
			AutoAdjust: true,
		})
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		closes = make([]float64, 0, len(bars))
		for _, bar := range bars {
			closes = append(closes, bar.Close)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return CleanCloses(closes), nil
}

// CleanCloses drops NaN, infinite and non-positive closes, keeping order.
func CleanCloses(closes []float64) []float64 {
	cleaned := make([]float64, 0, len(closes))
	for _, c := range closes {
		if c > 0 && !math.IsInf(c, 0) {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}

// retry runs fn up to maxRetries times with backoff between attempts.
// It stops early when ctx is done.
func (c *Client) retry(ctx context.Context, symbol string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < c.maxRetries-1 {
			wait := c.backoff(attempt)
			c.log.Warn().
				Err(lastErr).
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("Retrying")

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", symbol, c.maxRetries, lastErr)
}
