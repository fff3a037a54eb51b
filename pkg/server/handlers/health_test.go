package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker struct {
	err error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }

func serve(t *testing.T, method, path string, register func(r *gin.Engine), body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := gin.New()
	register(r)

	req := httptest.NewRequest(method, path, stringsReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return w, response
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(nil)
	w, response := serve(t, http.MethodGet, "/health", func(r *gin.Engine) { r.GET("/health", h.HealthCheck) }, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "schemagraph", response["service"])
	assert.Contains(t, response, "timestamp")
	assert.Equal(t, Version, response["version"])
}

func TestLivenessCheck(t *testing.T) {
	h := NewHealthHandler(nil)
	w, response := serve(t, http.MethodGet, "/live", func(r *gin.Engine) { r.GET("/live", h.LivenessCheck) }, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", response["status"])
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name    string
		checker *fakeChecker
		code    int
		status  string
	}{
		{name: "no client", code: http.StatusServiceUnavailable, status: "not_ready"},
		{name: "store down", checker: &fakeChecker{err: errors.New("connection refused")}, code: http.StatusServiceUnavailable, status: "not_ready"},
		{name: "ready", checker: &fakeChecker{}, code: http.StatusOK, status: "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(nil)
			if tt.checker != nil {
				h = NewHealthHandler(*tt.checker)
			}
			w, response := serve(t, http.MethodGet, "/ready", func(r *gin.Engine) { r.GET("/ready", h.ReadinessCheck) }, "")

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.status, response["status"])
			checks, ok := response["checks"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, checks, "database")
		})
	}
}

func TestReadinessReportsStoreError(t *testing.T) {
	h := NewHealthHandler(fakeChecker{err: errors.New("connection refused")})
	_, response := serve(t, http.MethodGet, "/ready", func(r *gin.Engine) { r.GET("/ready", h.ReadinessCheck) }, "")

	db := response["checks"].(map[string]any)["database"].(map[string]any)
	assert.Equal(t, "unhealthy", db["status"])
	assert.Equal(t, "connection refused", db["error"])
}

func TestDetailedHealthCheck(t *testing.T) {
	h := NewHealthHandler(fakeChecker{})
	w, response := serve(t, http.MethodGet, "/health/detailed", func(r *gin.Engine) { r.GET("/health/detailed", h.DetailedHealthCheck) }, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", response["status"])
	assert.Contains(t, response, "build_info")
	assert.Contains(t, response, "metrics")

	system := response["checks"].(map[string]any)["system"].(map[string]any)
	assert.Greater(t, system["goroutines"], float64(0))

	h = NewHealthHandler(nil)
	w, response = serve(t, http.MethodGet, "/health/detailed", func(r *gin.Engine) { r.GET("/health/detailed", h.DetailedHealthCheck) }, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", response["status"])
}

func TestGetSystemMetrics(t *testing.T) {
	m := NewHealthHandler(nil).getSystemMetrics()
	assert.Positive(t, m.Goroutines)
	assert.Contains(t, m.MemoryUsage, "MB")
	assert.Contains(t, m.StackUsage, "MB")
}
