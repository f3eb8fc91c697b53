// Package di provides dependency injection for background jobs.
package di

import (
	"fmt"

	"github.com/aristath/cryptosim/internal/clientdata"
	"github.com/aristath/cryptosim/internal/config"
	"github.com/aristath/cryptosim/internal/reliability"
	"github.com/aristath/cryptosim/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed maintenance schedules (seconds field first)
const (
	walCheckSchedule        = "0 */30 * * * *" // every 30 minutes
	cacheCleanupSchedule    = "0 15 * * * *"   // hourly at :15
	weeklyMaintenanceSched  = "0 0 3 * * SUN"  // Sunday 3 AM
	archiveRotationSchedule = "0 30 2 * * *"   // daily 2:30 AM
)

// RegisterJobs creates all jobs and registers them with the scheduler.
// The scheduler is created but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	container.Scheduler = sched
	jobs := &JobInstances{}

	if cfg.Simulation.Schedule != "" {
		jobs.SimulationBatch = scheduler.NewSimulationBatchJob(container.SimulationService, cfg.Simulation.BatchTimeout, log)
		if err := sched.AddJob(cfg.Simulation.Schedule, jobs.SimulationBatch); err != nil {
			return nil, fmt.Errorf("invalid SIM_SCHEDULE %q: %w", cfg.Simulation.Schedule, err)
		}
	}

	jobs.CheckWALCheckpoints = scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...)
	if err := sched.AddJob(walCheckSchedule, jobs.CheckWALCheckpoints); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.CheckWALCheckpoints.Name(), err)
	}

	jobs.ClientDataCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := sched.AddJob(cacheCleanupSchedule, jobs.ClientDataCleanup); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.ClientDataCleanup.Name(), err)
	}

	jobs.WeeklyMaintenance = reliability.NewWeeklyMaintenanceJob(log, container.Databases()...)
	if err := sched.AddJob(weeklyMaintenanceSched, jobs.WeeklyMaintenance); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.WeeklyMaintenance.Name(), err)
	}

	if container.ArchiveService != nil {
		jobs.ArchiveRotation = reliability.NewArchiveRotationJob(container.ArchiveService, cfg.Archive.RetentionDays, log)
		if err := sched.AddJob(archiveRotationSchedule, jobs.ArchiveRotation); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", jobs.ArchiveRotation.Name(), err)
		}
	}

	log.Info().Int("jobs", sched.Jobs()).Msg("Jobs registered")

	return jobs, nil
}
