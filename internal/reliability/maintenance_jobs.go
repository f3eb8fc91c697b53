package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/cryptosim/internal/database"
	"github.com/rs/zerolog"
)

// ArchiveRotationJob prunes old batch archives (daily)
type ArchiveRotationJob struct {
	archive       *ArchiveService
	retentionDays int
	log           zerolog.Logger
}

// NewArchiveRotationJob creates a new archive rotation job
func NewArchiveRotationJob(archive *ArchiveService, retentionDays int, log zerolog.Logger) *ArchiveRotationJob {
	return &ArchiveRotationJob{
		archive:       archive,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "archive_rotation").Logger(),
	}
}

// Run executes the archive rotation job
func (j *ArchiveRotationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deleted, err := j.archive.RotateOldArchives(ctx, j.retentionDays)
	if err != nil {
		return fmt.Errorf("archive rotation failed: %w", err)
	}

	j.log.Debug().Int("deleted", deleted).Msg("Archive rotation finished")
	return nil
}

// Name returns the job name for scheduler
func (j *ArchiveRotationJob) Name() string {
	return "archive_rotation"
}

// WeeklyMaintenanceJob compacts databases (Sunday 3 AM)
type WeeklyMaintenanceJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWeeklyMaintenanceJob creates a new weekly maintenance job
func NewWeeklyMaintenanceJob(log zerolog.Logger, databases ...*database.DB) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "weekly_maintenance").Logger(),
	}
}

// Run executes the weekly maintenance job
func (j *WeeklyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting weekly maintenance")
	startTime := time.Now()

	failed := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.HealthCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed, skipping VACUUM")
			failed++
			continue
		}

		if err := j.vacuumDatabase(db); err != nil {
			j.log.Error().
				Str("database", db.Name()).
				Err(err).
				Msg("VACUUM failed")
			failed++
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Int("failed", failed).
		Msg("Weekly maintenance completed")

	if failed > 0 {
		return fmt.Errorf("weekly maintenance failed for %d database(s)", failed)
	}
	return nil
}

// Name returns the job name for scheduler
func (j *WeeklyMaintenanceJob) Name() string {
	return "weekly_maintenance"
}

// vacuumDatabase performs VACUUM on a database
func (j *WeeklyMaintenanceJob) vacuumDatabase(db *database.DB) error {
	sizeBefore := databaseSizeMB(db)

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	sizeAfter := databaseSizeMB(db)
	j.log.Info().
		Str("database", db.Name()).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")

	return nil
}

func databaseSizeMB(db *database.DB) float64 {
	var pageCount, pageSize int
	_ = db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	_ = db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize)
	return float64(pageCount*pageSize) / 1024 / 1024
}
