package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	pingErr error
	ctx     context.Context
}

func (f *fakeBackend) Retrieve(ctx context.Context, query string, hints types.Hints) (*types.SchemaSearchResult, error) {
	f.ctx = ctx
	return types.NewSchemaSearchResult(query, hints), nil
}

func (f *fakeBackend) SearchByLabelText(ctx context.Context, label types.Label, text string, topK int, threshold float64, database string) ([]types.ScoredItem, error) {
	f.ctx = ctx
	return nil, nil
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: gin.TestMode,
		},
	}
}

func newTestServer(backend Backend) *Server {
	s := New(testConfig(), backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Setup()
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, nil, nil)
	require.NotNil(t, s)
	assert.Same(t, cfg, s.config)
	assert.NotNil(t, s.logger)
}

func TestSetup(t *testing.T) {
	s := newTestServer(nil)
	require.NotNil(t, s.router)
	require.NotNil(t, s.server)
	assert.Equal(t, "localhost:8080", s.server.Addr)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(nil)
	for _, path := range []string{"/health", "/healthcheck", "/live"} {
		w := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := do(s, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready without a backend")

	s = newTestServer(&fakeBackend{})
	w = do(s, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSchemaSearchRoute(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestServer(backend)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schema/search", strings.NewReader(`{"query": "account balances"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u-1")
	req.Header.Set(RequestIDHeader, "req-7")
	w := do(s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-7", w.Header().Get(RequestIDHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "search_metadata")

	require.NotNil(t, backend.ctx)
	assert.Equal(t, "req-7", backend.ctx.Value(types.ContextKeyRequestID))
	assert.Equal(t, "u-1", backend.ctx.Value(types.ContextKeyUserID))
	assert.Equal(t, "server", backend.ctx.Value(types.ContextKeyRequestSource))
}

func TestSearchByLabelRoute(t *testing.T) {
	s := newTestServer(&fakeBackend{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schema/search-by-label", strings.NewReader(`{"label": "Table", "text": "accounts"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(s, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRequestIDIsGenerated(t *testing.T) {
	s := newTestServer(nil)
	w := do(s, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(nil)
	w := do(s, httptest.NewRequest(http.MethodOptions, "/api/v1/schema/search", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(nil)
	w := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/ingest/messages", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
