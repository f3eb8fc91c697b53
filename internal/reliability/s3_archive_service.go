package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/cryptosim/internal/domain"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/rs/zerolog"
)

const (
	archiveKeyPrefix = "batch-"
	archiveKeySuffix = ".json.gz"
	archiveTimeFmt   = "2006-01-02-150405"

	// minArchivesToKeep survive rotation regardless of age
	minArchivesToKeep = 3
)

// Snapshot is the archived form of one batch
type Snapshot struct {
	Batch   *simulation.BatchReport   `json:"batch"`
	Results []domain.SimulationResult `json:"results"`
}

// ArchiveInfo describes one archived batch
type ArchiveInfo struct {
	Key       string    `json:"key"`
	BatchID   string    `json:"batch_id"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// ArchiveService writes gzip JSON snapshots of completed batches to a bucket
type ArchiveService struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewArchiveService creates a new archive service. prefix is prepended to
// every key ("simulations/" gives simulations/batch-...).
func NewArchiveService(store ObjectStore, prefix string, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		store:  store,
		prefix: prefix,
		now:    time.Now,
		log:    log.With().Str("service", "s3_archive").Logger(),
	}
}

// Archive uploads the snapshot of batch
func (s *ArchiveService) Archive(ctx context.Context, batch *simulation.BatchReport, results []domain.SimulationResult) error {
	if batch == nil {
		return fmt.Errorf("batch report is required")
	}
	startTime := time.Now()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(Snapshot{Batch: batch, Results: results}); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}

	key := s.key(batch)
	size := buf.Len()
	if err := s.store.Upload(ctx, key, "application/gzip", &buf); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Str("batch_id", batch.BatchID).
		Int("results", len(results)).
		Int("size_bytes", size).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Batch archived")

	return nil
}

func (s *ArchiveService) key(batch *simulation.BatchReport) string {
	return s.prefix + archiveKeyPrefix + batch.StartedAt.UTC().Format(archiveTimeFmt) +
		"-" + batch.BatchID + archiveKeySuffix
}

// parseKey extracts the timestamp and batch id from an archive key
func (s *ArchiveService) parseKey(key string) (time.Time, string, bool) {
	name := strings.TrimPrefix(key, s.prefix)
	if !strings.HasPrefix(name, archiveKeyPrefix) || !strings.HasSuffix(name, archiveKeySuffix) {
		return time.Time{}, "", false
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, archiveKeyPrefix), archiveKeySuffix)
	if len(name) < len(archiveTimeFmt)+2 {
		return time.Time{}, "", false
	}

	ts, err := time.Parse(archiveTimeFmt, name[:len(archiveTimeFmt)])
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, name[len(archiveTimeFmt)+1:], true
}

// ListArchives lists archived batches, newest first
func (s *ArchiveService) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+archiveKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	now := s.now()
	archives := make([]ArchiveInfo, 0, len(objects))
	for _, obj := range objects {
		ts, batchID, ok := s.parseKey(obj.Key)
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Skipping unrecognised archive key")
			continue
		}
		archives = append(archives, ArchiveInfo{
			Key:       obj.Key,
			BatchID:   batchID,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})

	return archives, nil
}

// RotateOldArchives deletes archives older than retentionDays, keeping at
// least the newest three. retentionDays <= 0 keeps everything.
func (s *ArchiveService) RotateOldArchives(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	archives, err := s.ListArchives(ctx)
	if err != nil {
		return 0, err
	}
	if len(archives) <= minArchivesToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, archive := range archives[minArchivesToKeep:] {
		if !archive.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, archive.Key); err != nil {
			s.log.Error().Err(err).Str("key", archive.Key).Msg("Failed to delete old archive")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(archives)-deleted).
		Msg("Archive rotation completed")

	return deleted, nil
}
