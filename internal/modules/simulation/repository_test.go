package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/cryptosim/internal/domain"
	testingpkg "github.com/aristath/cryptosim/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, cleanup := testingpkg.NewTestDB(t, "simulations")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func storedFixture(symbol, batchID string, paths []domain.PricePath) StoredResult {
	return StoredResult{
		Result:     Aggregate(symbol, paths),
		Parameters: nominalParams().WithDefaults(),
		BatchID:    batchID,
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

func batchFixture(id string, completed time.Time, succeeded ...string) *BatchReport {
	return &BatchReport{
		BatchID:     id,
		Seed:        1<<63 + 5,
		StartedAt:   completed.Add(-time.Second),
		CompletedAt: completed,
		Succeeded:   succeeded,
		Skipped:     []SkippedSymbol{},
	}
}

func TestRepository_ReplaceAllAndRead(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	paths, err := newTestEngine().Run(50000, nominalParams(), NewRandomSource(1, 1))
	require.NoError(t, err)

	now := time.Unix(1700000100, 0).UTC()
	batch := batchFixture("batch-1", now, "BTC-USD", "ETH-USD")
	err = repo.ReplaceAll(ctx, batch, []StoredResult{
		storedFixture("ETH-USD", "batch-1", paths[:2]),
		storedFixture("BTC-USD", "batch-1", paths),
	})
	require.NoError(t, err)

	got, err := repo.GetBySymbol(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, paths, got.Result.Paths)
	assert.Equal(t, "batch-1", got.BatchID)
	assert.Equal(t, nominalParams().WithDefaults(), got.Parameters)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.CreatedAt)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BTC-USD", all[0].Result.Symbol)
	assert.Equal(t, "ETH-USD", all[1].Result.Symbol)
	assert.Len(t, all[1].Result.Paths, 2)

	latest, err := repo.LatestBatch(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "batch-1", latest.BatchID)
	assert.Equal(t, batch.Seed, latest.Seed)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, latest.Succeeded)
}

func TestRepository_ReplaceAllClearsPreviousResults(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	path := []domain.PricePath{flatPath(10, 11, 12)}

	first := time.Unix(1700000000, 0).UTC()
	require.NoError(t, repo.ReplaceAll(ctx, batchFixture("batch-1", first, "BTC-USD", "ETH-USD"), []StoredResult{
		storedFixture("BTC-USD", "batch-1", path),
		storedFixture("ETH-USD", "batch-1", path),
	}))

	require.NoError(t, repo.ReplaceAll(ctx, batchFixture("batch-2", first.Add(time.Hour), "LTC-USD"), []StoredResult{
		storedFixture("LTC-USD", "batch-2", path),
	}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "LTC-USD", all[0].Result.Symbol)

	_, err = repo.GetBySymbol(ctx, "BTC-USD")
	assert.ErrorIs(t, err, ErrResultNotFound)

	latest, err := repo.LatestBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "batch-2", latest.BatchID)
}

func TestRepository_ReplaceAllWithNoResults(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, batchFixture("batch-1", time.Now(), "BTC-USD"), []StoredResult{
		storedFixture("BTC-USD", "batch-1", []domain.PricePath{flatPath(10)}),
	}))
	require.NoError(t, repo.ReplaceAll(ctx, batchFixture("batch-2", time.Now().Add(time.Minute)), nil))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepository_FailedReplaceKeepsPreviousResults(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	path := []domain.PricePath{flatPath(10, 11)}

	require.NoError(t, repo.ReplaceAll(ctx, batchFixture("batch-1", time.Now(), "BTC-USD"), []StoredResult{
		storedFixture("BTC-USD", "batch-1", path),
	}))

	// duplicate symbols violate the primary key mid-transaction
	err := repo.ReplaceAll(ctx, batchFixture("batch-2", time.Now(), "ETH-USD"), []StoredResult{
		storedFixture("ETH-USD", "batch-2", path),
		storedFixture("ETH-USD", "batch-2", path),
	})
	require.Error(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "BTC-USD", all[0].Result.Symbol)
}

func TestRepository_EmptyStore(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetBySymbol(ctx, "BTC-USD")
	assert.ErrorIs(t, err, ErrResultNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	latest, err := repo.LatestBatch(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}
