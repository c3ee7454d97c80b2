package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatch/airwatch/internal/api/middleware"
)

func TestNewMetrics(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestMetrics_Middleware_Success(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test/path", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMetrics_Middleware_Error(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("error"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/resource", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetrics_Middleware_BadRequest(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad request"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/resource", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics_Middleware_DefaultStatusCode(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Don't explicitly call WriteHeader - should default to 200
		_, _ = w.Write([]byte("response"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetrics_Middleware_UnderRouter(t *testing.T) {
	metrics, err := middleware.NewMetrics()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/aqi", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, target := range []string{"/v1/aqi?latitude=52.1&longitude=4.3", "/v1/missing"} {
		req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotZero(t, w.Code)
	}
}
