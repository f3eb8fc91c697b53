package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/cryptosim/internal/database"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	testingpkg "github.com/aristath/cryptosim/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchStatus struct {
	running bool
	batch   *simulation.BatchReport
	err     error
}

func (f *fakeBatchStatus) Running() bool { return f.running }

func (f *fakeBatchStatus) LatestBatch(context.Context) (*simulation.BatchReport, error) {
	return f.batch, f.err
}

type fakeJob struct {
	name string
	err  error
	runs int
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Run() error {
	j.runs++
	return j.err
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	completed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     *fakeBatchStatus
		wantStatus string
		validate   func(t *testing.T, response SystemStatusResponse)
	}{
		{
			name:       "no batch yet",
			status:     &fakeBatchStatus{},
			wantStatus: "healthy",
			validate: func(t *testing.T, response SystemStatusResponse) {
				assert.Nil(t, response.LastBatch)
				assert.False(t, response.BatchRunning)
			},
		},
		{
			name: "includes last batch",
			status: &fakeBatchStatus{
				running: true,
				batch: &simulation.BatchReport{
					BatchID:     "b-1",
					CompletedAt: completed,
					Succeeded:   []string{"BTC-USD"},
				},
			},
			wantStatus: "healthy",
			validate: func(t *testing.T, response SystemStatusResponse) {
				require.NotNil(t, response.LastBatch)
				assert.Equal(t, "b-1", response.LastBatch.BatchID)
				assert.True(t, response.LastBatch.CompletedAt.Equal(completed))
				assert.True(t, response.BatchRunning)
			},
		},
		{
			name:       "store failure degrades status",
			status:     &fakeBatchStatus{err: errors.New("disk I/O error")},
			wantStatus: "degraded",
			validate: func(t *testing.T, response SystemStatusResponse) {
				assert.Nil(t, response.LastBatch)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), tt.status, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
			rec := httptest.NewRecorder()
			handlers.HandleSystemStatus(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var response SystemStatusResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.GreaterOrEqual(t, response.RAMPercent, 0.0)
			tt.validate(t, response)
		})
	}
}

func TestSystemHandlers_Jobs(t *testing.T) {
	ok := &fakeJob{name: "check_wal_checkpoints"}
	failing := &fakeJob{name: "weekly_maintenance", err: errors.New("vacuum failed")}

	handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, nil)
	handlers.SetJobs(ok, nil, failing)

	t.Run("lists registered jobs", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handlers.HandleJobsStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))

		var response JobsStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, []string{"check_wal_checkpoints", "weekly_maintenance"}, response.Jobs)
	})

	tests := []struct {
		name       string
		job        string
		wantStatus int
	}{
		{"runs job", "check_wal_checkpoints", http.StatusOK},
		{"job error", "weekly_maintenance", http.StatusInternalServerError},
		{"unknown job", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/system/jobs/"+tt.job, nil)
			handlers.HandleTriggerJob(rec, req, tt.job)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	simDB, cleanupSim := testingpkg.NewTestDB(t, "simulations")
	defer cleanupSim()
	cacheDB, cleanupCache := testingpkg.NewTestDB(t, "cache")
	defer cleanupCache()

	handlers := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, []*database.DB{simDB, cacheDB})

	rec := httptest.NewRecorder()
	handlers.HandleDatabaseStats(rec, httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Databases, 2)
	assert.Equal(t, "simulations", response.Databases[0].Name)
	assert.Equal(t, "cache", response.Databases[1].Name)
	for _, db := range response.Databases {
		assert.True(t, db.Healthy, db.Error)
	}
	assert.Greater(t, response.TotalSizeMB, 0.0)
}
