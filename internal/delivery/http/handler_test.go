package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unpackeat/backend/config"
	"github.com/unpackeat/backend/internal/domain"
	"github.com/unpackeat/backend/internal/infrastructure/metrics"
	"github.com/unpackeat/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// MockResolver is a mock implementation of ProductResolver
type MockResolver struct {
	result  *domain.ResolutionResult
	err     error
	lastArg string
}

func (m *MockResolver) Resolve(ctx context.Context, barcode string) (*domain.ResolutionResult, error) {
	m.lastArg = barcode
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
	}
}

func setupTestRouter(resolver ProductResolver, scans ScanSessions) *gin.Engine {
	if scans == nil {
		scans = usecase.NewScanService(usecase.ScanServiceConfig{Threshold: 3})
	}
	return SetupRouter(testConfig(), NewHandler(resolver, scans), nil)
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(&MockResolver{}, nil)

	w := doRequest(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "unpackeat-backend", body["service"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveResolution(string(domain.SourceInternalStore))

	router := SetupRouter(testConfig(), NewHandler(&MockResolver{}, nil), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	w := doRequest(router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `unpackeat_resolutions_total{source="internal-store"} 1`)
}

func TestGetProduct_Found(t *testing.T) {
	resolver := &MockResolver{result: &domain.ResolutionResult{
		Found:  true,
		Source: domain.SourceInternalStore,
		Record: &domain.ProductRecord{Barcode: "3017620422003", Payload: json.RawMessage(`{"name":"Nutella"}`)},
	}}
	router := setupTestRouter(resolver, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/products/3017620422003", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3017620422003", resolver.lastArg)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "internal-store", body["source"])
	assert.Equal(t, map[string]any{"name": "Nutella"}, body["record"])
	assert.NotContains(t, body, "persisted")
}

func TestGetProduct_RemoteHitReportsPersistence(t *testing.T) {
	testCases := []struct {
		name       string
		persistErr error
		want       bool
	}{
		{name: "persisted", want: true},
		{name: "write failed", persistErr: domain.ErrPersistenceWriteFailed, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &MockResolver{result: &domain.ResolutionResult{
				Found:      true,
				Source:     domain.SourceRemoteService,
				Record:     &domain.ProductRecord{Barcode: "3017620422003", Payload: json.RawMessage(`{}`)},
				PersistErr: tc.persistErr,
			}}
			router := setupTestRouter(resolver, nil)

			w := doRequest(router, http.MethodGet, "/api/v1/products/3017620422003", "")

			assert.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tc.want, body["persisted"])
			assert.Equal(t, "remote-service", body["source"])
		})
	}
}

func TestGetProduct_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid barcode",
			path:       "/api/v1/products?barcode=",
			err:        domain.ErrInvalidInput,
			wantStatus: http.StatusBadRequest,
			wantError:  "Barcode is required",
		},
		{
			name: "not found anywhere",
			path: "/api/v1/products/0000000000000",
			err: &domain.ResolutionFailedError{
				Barcode:   "0000000000000",
				Attempted: []domain.Source{domain.SourceInternalStore, domain.SourceRemoteService, domain.SourceFallbackStore},
			},
			wantStatus: http.StatusNotFound,
			wantError:  "Product (0000000000000) not found. Please try another barcode.",
		},
		{
			name:       "unexpected error",
			path:       "/api/v1/products/123",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Something went wrong. Please try again later.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupTestRouter(&MockResolver{err: tc.err}, nil)

			w := doRequest(router, http.MethodGet, tc.path, "")

			assert.Equal(t, tc.wantStatus, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tc.wantError, body["error"])
			assert.NotContains(t, w.Body.String(), "internal-store", "attempted sources stay out of responses")
		})
	}
}

func TestGetProduct_QueryParameter(t *testing.T) {
	resolver := &MockResolver{result: &domain.ResolutionResult{
		Found:  true,
		Source: domain.SourceFallbackStore,
		Record: &domain.ProductRecord{Barcode: "96385074", Payload: json.RawMessage(`{}`)},
	}}
	router := setupTestRouter(resolver, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/products?barcode=96385074", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "96385074", resolver.lastArg)
}

func TestScanSessionFlow(t *testing.T) {
	router := setupTestRouter(&MockResolver{}, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/scan/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id, ok := decodeBody(t, w)["sessionId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	observe := func(code string) *httptest.ResponseRecorder {
		return doRequest(router, http.MethodPost, "/api/v1/scan/sessions/"+id+"/observations", `{"code":"`+code+`"}`)
	}

	for _, code := range []string{"3017620422003", "3017620422008", "3017620422003"} {
		w := observe(code)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["confirmed"])
	}

	w = observe("3017620422003")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["confirmed"])
	assert.Equal(t, "3017620422003", body["barcode"])
	assert.Equal(t, "/api/v1/products/3017620422003", body["redirect"])

	// The session is disarmed by the confirmation
	w = observe("3017620422003")
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestObserveScan_HasOwnRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{PerIP: 2, ScanPerIP: 600}
	scans := usecase.NewScanService(usecase.ScanServiceConfig{Threshold: 100})
	resolver := &MockResolver{err: &domain.ResolutionFailedError{Barcode: "3017620422003"}}
	router := SetupRouter(cfg, NewHandler(resolver, scans), nil)

	w := doRequest(router, http.MethodPost, "/api/v1/scan/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["sessionId"].(string)

	// Far more frames than the general per-IP budget allows
	for i := 0; i < 20; i++ {
		w := doRequest(router, http.MethodPost, "/api/v1/scan/sessions/"+id+"/observations", `{"code":"3017620422003"}`)
		require.Equal(t, http.StatusOK, w.Code, "observation %d", i)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/products/3017620422003", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "observations do not spend the general budget")

	w = doRequest(router, http.MethodGet, "/api/v1/products/3017620422003", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestObserveScan_BadRequest(t *testing.T) {
	router := setupTestRouter(&MockResolver{}, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/scan/sessions/abc/observations", `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteScanSession(t *testing.T) {
	router := setupTestRouter(&MockResolver{}, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/scan/sessions", "")
	id := decodeBody(t, w)["sessionId"].(string)

	w = doRequest(router, http.MethodDelete, "/api/v1/scan/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/v1/scan/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/scan/sessions/"+id+"/observations", `{"code":"123"}`)
	assert.Equal(t, http.StatusGone, w.Code)
}
