package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/cryptosim/internal/database"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/aristath/cryptosim/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// BatchStatus is the part of the simulation service the status page reads
type BatchStatus interface {
	Running() bool
	LatestBatch(ctx context.Context) (*simulation.BatchReport, error)
}

// SystemHandlers handles system-wide monitoring and operations requests
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	batches     BatchStatus
	databases   []*database.DB
	jobs        map[string]scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	batches BatchStatus,
	databases []*database.DB,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		batches:     batches,
		databases:   databases,
		jobs:        make(map[string]scheduler.Job),
	}
}

// SetJobs registers job instances for manual triggering via API
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	for _, job := range jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	CPUPercent    float64                 `json:"cpu_percent"`
	RAMPercent    float64                 `json:"ram_percent"`
	BatchRunning  bool                    `json:"batch_running"`
	LastBatch     *simulation.BatchReport `json:"last_batch"`
	Timestamp     string                  `json:"timestamp"`
}

// JobsStatusResponse lists the jobs that can be triggered by hand
type JobsStatusResponse struct {
	Jobs []string `json:"jobs"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DBInfo represents information about a database
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if h.batches != nil {
		response.BatchRunning = h.batches.Running()

		batch, err := h.batches.LatestBatch(r.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to load latest batch")
			response.Status = "degraded"
		}
		response.LastBatch = batch
	}

	h.writeJSON(w, response)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	h.writeJSON(w, JobsStatusResponse{Jobs: names})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request, name string) {
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Job not registered", http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"status": "success", "message": name + " completed"})
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(h.databases)),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Path: db.Path(), Healthy: true}

		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
			response.TotalSizeMB += info.SizeMB
		}

		if err := db.HealthCheck(r.Context()); err != nil {
			info.Healthy = false
			info.Error = err.Error()
		}

		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, response)
}

// HandleDiskUsage handles GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")
	h.writeJSON(w, DiskUsageResponse{DataDirMB: h.getDirSize(h.dataDir)})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
