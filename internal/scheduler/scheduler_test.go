package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/cryptosim/internal/modules/simulation"
	testingpkg "github.com/aristath/cryptosim/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

type stubRunner struct {
	report   *simulation.BatchReport
	err      error
	deadline bool
}

func (r *stubRunner) RunBatch(ctx context.Context) (*simulation.BatchReport, error) {
	_, r.deadline = ctx.Deadline()
	return r.report, r.err
}

func TestScheduler_AddJob(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"six fields", "0 0 */6 * * *", false},
		{"descriptor", "@hourly", false},
		{"every", "@every 30m", false},
		{"garbage", "not a schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(log)
			err := s.AddJob(tt.schedule, &countingJob{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0, s.Jobs())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, s.Jobs())
		})
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())

	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	failing := &countingJob{err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))

	s.Start()
	s.Stop()
}

func TestSimulationBatchJob_Run(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	report := &simulation.BatchReport{
		BatchID:     "b-1",
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
		Succeeded:   []string{"BTC-USD"},
	}

	t.Run("success with timeout", func(t *testing.T) {
		runner := &stubRunner{report: report}
		job := NewSimulationBatchJob(runner, time.Minute, zerolog.Nop())

		assert.Equal(t, "simulation_batch", job.Name())
		require.NoError(t, job.Run())
		assert.True(t, runner.deadline)
	})

	t.Run("no timeout", func(t *testing.T) {
		runner := &stubRunner{report: report}
		job := NewSimulationBatchJob(runner, 0, zerolog.Nop())

		require.NoError(t, job.Run())
		assert.False(t, runner.deadline)
	})

	t.Run("failure is wrapped", func(t *testing.T) {
		runner := &stubRunner{err: simulation.ErrBatchInProgress}
		job := NewSimulationBatchJob(runner, time.Minute, zerolog.Nop())

		err := job.Run()
		require.Error(t, err)
		assert.ErrorIs(t, err, simulation.ErrBatchInProgress)
	})
}

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := NewCheckWALCheckpointsJob(zerolog.Nop())
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(log, nil, nil)

	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	simDB, cleanupSim := testingpkg.NewTestDB(t, "simulations")
	defer cleanupSim()
	cacheDB, cleanupCache := testingpkg.NewTestDB(t, "cache")
	defer cleanupCache()

	job := NewCheckWALCheckpointsJob(zerolog.Nop(), simDB, cacheDB)
	assert.NoError(t, job.Run())

	// Closed databases only produce a warning
	cleanupCache()
	assert.NoError(t, job.Run())
}
