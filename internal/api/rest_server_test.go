package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/stream"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus stream.Status

func (f fixedStatus) Status() stream.Status { return stream.Status(f) }

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRestServer_Health(t *testing.T) {
	rs := NewRestServer(Config{})
	rec := doGet(t, rs.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRestServer_Status(t *testing.T) {
	src := fixedStatus{Frame: 42, PlayerChunk: vec.Vec2{X: 3, Y: -1}, Active: 9, PendingJobs: 2}
	rs := NewRestServer(Config{Source: src})

	rec := doGet(t, rs.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    stream.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(42), resp.Data.Frame)
	assert.Equal(t, vec.Vec2{X: 3, Y: -1}, resp.Data.PlayerChunk)
	assert.Equal(t, 9, resp.Data.Active)
}

func TestRestServer_StatusWithoutSource(t *testing.T) {
	rs := NewRestServer(Config{})
	assert.Equal(t, http.StatusServiceUnavailable, doGet(t, rs.Handler(), "/api/status").Code)
	assert.Equal(t, http.StatusNotFound, doGet(t, rs.Handler(), "/api/level").Code)
}

func TestRestServer_Level(t *testing.T) {
	level := &storage.LevelInfo{WorldID: "w-1", Seed: 5, ChunkWidth: 16, ChunkHeight: 128}
	rs := NewRestServer(Config{Level: level})

	rec := doGet(t, rs.Handler(), "/api/level")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"world_id":"w-1"`)
}

func TestRestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStreamMetrics(reg)
	m.ChunkRequested()

	rs := NewRestServer(Config{Registry: reg})
	doGet(t, rs.Handler(), "/health")

	rec := doGet(t, rs.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "voxel_stream_chunks_requested_total"), body)
	assert.Contains(t, body, "voxel_api_http_request_duration_seconds")
}
