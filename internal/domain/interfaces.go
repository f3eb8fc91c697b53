package domain

import (
	"context"
)

// SeedProvider supplies the seed price and close history for a symbol.
// Implementations return *DataUnavailableError when neither can be obtained.
type SeedProvider interface {
	FetchSeed(ctx context.Context, symbol string) (SeedData, error)
}
