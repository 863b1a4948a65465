package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())

	r.GET("/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/error", func(c *gin.Context) { c.JSON(500, gin.H{"error": "test error"}) })

	assert.Equal(t, 200, serve(r, "/test", nil).Code)
	assert.Equal(t, 500, serve(r, "/error", nil).Code)
	assert.Equal(t, 404, serve(r, "/missing/123", nil).Code)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			// /test, /error и один ряд для всех несовпавших путей
			assert.Len(t, mf.Metric, 3)
		case "test_http_request_errors_total":
			errorsFound = true
			assert.Len(t, mf.Metric, 2)
		case "test_http_requests_inflight":
			assert.Equal(t, float64(0), mf.Metric[0].GetGauge().GetValue())
		}
	}

	assert.True(t, durationFound, "Duration metric not found")
	assert.True(t, errorsFound, "Errors metric not found")
}

func TestPrometheusMiddleware_MetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("endpoint", registry)
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r, registry)

	serve(r, "/metrics", nil)
	w := serve(r, "/metrics", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `endpoint_http_request_duration_seconds_count{method="GET",path="/metrics",status="200"} 1`)
}

func TestRequestLogger_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger(logging.NewNopLogger()).Handler())

	var captured string
	r.GET("/test", func(c *gin.Context) {
		id, exists := c.Get("request_id")
		require.True(t, exists, "request_id should be set in context")
		captured = id.(string)
		c.JSON(200, gin.H{"request_id": captured})
	})

	w := serve(r, "/test", nil)
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get(RequestHeaderID))

	w = serve(r, "/test", http.Header{RequestHeaderID: []string{"client-42"}})
	assert.Equal(t, "client-42", captured, "ID клиента сохраняется")
	assert.Equal(t, "client-42", w.Header().Get(RequestHeaderID))
}

func TestRequestLogger_LogFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("api", &buf, logging.DEBUG)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRequestLogger(logger).Handler())
	r.GET("/api/status", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, "/api/status", http.Header{RequestHeaderID: []string{"abc"}})

	out := buf.String()
	assert.Contains(t, out, "[HTTP] GET /api/status 204")
	assert.Contains(t, out, "id=abc")
}
