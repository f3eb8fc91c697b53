/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/cryptosim/internal/clientdata"
	"github.com/aristath/cryptosim/internal/clients/yahoo"
	"github.com/aristath/cryptosim/internal/database"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/aristath/cryptosim/internal/reliability"
	"github.com/aristath/cryptosim/internal/scheduler"
	"github.com/aristath/cryptosim/internal/services"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	SimulationsDB *database.DB // simulation results and batch records
	CacheDB       *database.DB // quote/history cache (ephemeral)

	// Repositories
	ClientDataRepo *clientdata.Repository
	SimulationRepo *simulation.Repository

	// Clients
	YahooClient *yahoo.Client

	// Services
	MarketDataService *services.MarketDataService
	SimulationEngine  *simulation.Engine
	Estimator         *simulation.Estimator
	SimulationService *simulation.Service
	ArchiveService    *reliability.ArchiveService // nil when archiving is disabled

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds every registered job so it can also be triggered by hand
type JobInstances struct {
	SimulationBatch     scheduler.Job // nil when SIM_SCHEDULE is empty
	CheckWALCheckpoints scheduler.Job
	WeeklyMaintenance   scheduler.Job
	ClientDataCleanup   scheduler.Job
	ArchiveRotation     scheduler.Job // nil when archiving is disabled
}

// All returns the non-nil jobs
func (j *JobInstances) All() []scheduler.Job {
	var jobs []scheduler.Job
	for _, job := range []scheduler.Job{
		j.SimulationBatch,
		j.CheckWALCheckpoints,
		j.WeeklyMaintenance,
		j.ClientDataCleanup,
		j.ArchiveRotation,
	} {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Databases returns the open databases
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.SimulationsDB, c.CacheDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close stops the scheduler and closes every database
func (c *Container) Close() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}
