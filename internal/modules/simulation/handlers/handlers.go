// Package handlers provides HTTP handlers for simulation runs and results.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/cryptosim/internal/domain"
	"github.com/aristath/cryptosim/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// maxPreviewBody caps preview request bodies.
const maxPreviewBody = 1 << 20

// SimulationService is the part of simulation.Service the handlers use.
type SimulationService interface {
	RunBatch(ctx context.Context) (*simulation.BatchReport, error)
	Preview(req simulation.PreviewRequest) ([]domain.PricePath, error)
	Result(ctx context.Context, symbol string) (*simulation.StoredResult, error)
	Results(ctx context.Context) ([]simulation.StoredResult, error)
	Summary(ctx context.Context, symbol string) (*simulation.Summary, error)
	LatestBatch(ctx context.Context) (*simulation.BatchReport, error)
}

// Handler handles simulation HTTP requests
type Handler struct {
	service      SimulationService
	batchTimeout time.Duration
	log          zerolog.Logger
}

// NewHandler creates a new simulation handler.
// batchTimeout bounds a triggered batch; zero means no extra bound.
func NewHandler(service SimulationService, batchTimeout time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		batchTimeout: batchTimeout,
		log:          log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleRunBatch handles POST /api/simulations/run
func (h *Handler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	// The batch must finish even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	if h.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.batchTimeout)
		defer cancel()
	}

	report, err := h.service.RunBatch(ctx)
	if err != nil {
		var invalid *domain.InvalidParameterError
		switch {
		case errors.Is(err, simulation.ErrBatchInProgress):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &invalid):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Simulation batch failed")
			h.writeError(w, http.StatusInternalServerError, "Simulation batch failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report, nil))
}

// HandleListResults handles GET /api/simulations
func (h *Handler) HandleListResults(w http.ResponseWriter, r *http.Request) {
	stored, err := h.service.Results(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list simulation results")
		h.writeError(w, http.StatusInternalServerError, "Failed to list simulation results")
		return
	}

	documents := make([]domain.SimulationResult, 0, len(stored))
	for _, res := range stored {
		documents = append(documents, res.Result)
	}

	h.writeJSON(w, http.StatusOK, envelope(documents, map[string]interface{}{
		"count": len(documents),
	}))
}

// HandleGetResult handles GET /api/simulations/{symbol}
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request, symbol string) {
	res, err := h.service.Result(r.Context(), symbol)
	if err != nil {
		h.handleLookupError(w, err, symbol)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(res.Result, map[string]interface{}{
		"batch_id":   res.BatchID,
		"created_at": res.CreatedAt.Format(time.RFC3339),
		"parameters": res.Parameters,
	}))
}

// HandleGetSummary handles GET /api/simulations/{symbol}/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request, symbol string) {
	summary, err := h.service.Summary(r.Context(), symbol)
	if err != nil {
		h.handleLookupError(w, err, symbol)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(summary, nil))
}

// HandleGetLatestBatch handles GET /api/simulations/batches/latest
func (h *Handler) HandleGetLatestBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.LatestBatch(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get latest batch")
		h.writeError(w, http.StatusInternalServerError, "Failed to get latest batch")
		return
	}
	if batch == nil {
		h.writeError(w, http.StatusNotFound, "No simulation batch has run yet")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(batch, nil))
}

// HandlePreview handles POST /api/simulations/preview
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req simulation.PreviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	paths, err := h.service.Preview(req)
	if err != nil {
		var invalid *domain.InvalidParameterError
		if errors.As(err, &invalid) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Preview run failed")
		h.writeError(w, http.StatusInternalServerError, "Preview run failed")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"simulation": paths,
	}, nil))
}

func (h *Handler) handleLookupError(w http.ResponseWriter, err error, symbol string) {
	if errors.Is(err, simulation.ErrResultNotFound) {
		h.writeError(w, http.StatusNotFound, "No simulation result for "+symbol)
		return
	}
	h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get simulation result")
	h.writeError(w, http.StatusInternalServerError, "Failed to get simulation result")
}

func envelope(data interface{}, metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata["timestamp"] = time.Now().Format(time.RFC3339)
	return map[string]interface{}{
		"data":     data,
		"metadata": metadata,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
