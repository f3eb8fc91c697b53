package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/cryptosim/internal/config"
	"github.com/aristath/cryptosim/internal/di"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir: t.TempDir(),
		Port:    8001,
		DevMode: true,
		Simulation: &config.SimulationConfig{
			Symbols:          []string{"BTC-USD"},
			Days:             30,
			Simulations:      10,
			VolatilityModel:  "constant",
			FirstCandle:      "flat",
			InsufficientData: "abort",
			Workers:          1,
			HistoryPeriod:    "1mo",
			HistoryInterval:  "1h",
			BatchTimeout:     5 * time.Minute,
		},
		Archive: &config.ArchiveConfig{},
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container, Jobs: jobs})
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"system status", http.MethodGet, "/api/system/status", "", http.StatusOK},
		{"database stats", http.MethodGet, "/api/system/database/stats", "", http.StatusOK},
		{"disk usage", http.MethodGet, "/api/system/disk", "", http.StatusOK},
		{"jobs", http.MethodGet, "/api/system/jobs", "", http.StatusOK},
		{"trigger wal check", http.MethodPost, "/api/system/jobs/check_wal_checkpoints", "", http.StatusOK},
		{"list results", http.MethodGet, "/api/simulations", "", http.StatusOK},
		{"missing result", http.MethodGet, "/api/simulations/BTC-USD", "", http.StatusNotFound},
		{"no batch yet", http.MethodGet, "/api/simulations/batches/latest", "", http.StatusNotFound},
		{
			"preview", http.MethodPost, "/api/simulations/preview",
			`{"initial_price":100,"seed":7,"parameters":{"mu":0.01,"sigma":0.2,"lambda":0.1,"jump_mu":0.1,"jump_sigma":0.2,"days":3,"simulations":2}}`,
			http.StatusOK,
		},
		{"invalid preview", http.MethodPost, "/api/simulations/preview", `{"initial_price":0}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "cryptosim", body["service"])
}

func TestServer_RequestTimeoutCoversBatch(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, 5*time.Minute+10*time.Second, srv.requestTimeout)
	assert.Equal(t, srv.requestTimeout+5*time.Second, srv.server.WriteTimeout)
}
