package testing

import (
	"context"
	"sync"

	"github.com/aristath/cryptosim/internal/domain"
)

// MockSeedProvider is a mock implementation of domain.SeedProvider for testing
type MockSeedProvider struct {
	mu     sync.Mutex
	seeds  map[string]domain.SeedData
	errors map[string]error
	calls  []string
}

// NewMockSeedProvider creates a mock that serves seeds and fails for every
// symbol without one.
func NewMockSeedProvider(seeds map[string]domain.SeedData) *MockSeedProvider {
	if seeds == nil {
		seeds = make(map[string]domain.SeedData)
	}
	return &MockSeedProvider{
		seeds:  seeds,
		errors: make(map[string]error),
	}
}

// SetSeed sets the seed returned for symbol
func (m *MockSeedProvider) SetSeed(seed domain.SeedData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds[seed.Symbol] = seed
}

// SetError makes FetchSeed fail with err for symbol
func (m *MockSeedProvider) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[symbol] = err
}

// FetchSeed implements domain.SeedProvider
func (m *MockSeedProvider) FetchSeed(_ context.Context, symbol string) (domain.SeedData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, symbol)
	if err, ok := m.errors[symbol]; ok {
		return domain.SeedData{}, err
	}
	seed, ok := m.seeds[symbol]
	if !ok {
		return domain.SeedData{}, &domain.DataUnavailableError{Symbol: symbol, Reason: "no seed configured"}
	}
	return seed, nil
}

// Calls returns the symbols requested so far
func (m *MockSeedProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
