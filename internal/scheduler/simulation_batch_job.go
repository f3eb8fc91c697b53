package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// BatchRunner runs one full simulation batch
type BatchRunner interface {
	RunBatch(ctx context.Context) (*simulation.BatchReport, error)
}

// SimulationBatchJob triggers a full batch on schedule
type SimulationBatchJob struct {
	runner  BatchRunner
	timeout time.Duration
	log     zerolog.Logger
}

// NewSimulationBatchJob creates a new SimulationBatchJob. A zero timeout
// leaves the batch unbounded.
func NewSimulationBatchJob(runner BatchRunner, timeout time.Duration, log zerolog.Logger) *SimulationBatchJob {
	return &SimulationBatchJob{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("job", "simulation_batch").Logger(),
	}
}

// Name returns the job name
func (j *SimulationBatchJob) Name() string {
	return "simulation_batch"
}

// Run executes one batch
func (j *SimulationBatchJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.runner.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("simulation batch failed: %w", err)
	}

	j.log.Info().
		Str("batch_id", report.BatchID).
		Int("succeeded", len(report.Succeeded)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.CompletedAt.Sub(report.StartedAt)).
		Msg("Scheduled batch completed")

	return nil
}
