package response_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatch/airwatch/internal/api/middleware"
	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
)

// requestWithContext creates an HTTP request that has been processed by the
// RequestID middleware to populate the context with a request ID.
func requestWithContext(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)

	var processedReq *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processedReq = r
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	return processedReq, httptest.NewRecorder()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	return problem
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/aqi")

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("X-Request-Id"), "req_")

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "hello", body["message"])
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/aqi", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
}

func TestJSON_NilData(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/test")

	response.JSON(rec, req, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCacheable(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Cacheable(rec, 5*time.Minute)
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	response.Cacheable(rec, 0)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestBadRequest_IncludesFieldErrors(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/heatmap")

	response.BadRequest(rec, req, "invalid query parameters", []models.FieldError{
		{Field: "north", Message: "is required", Code: models.CodeRequired},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.Equal(t, "/v1/heatmap", problem.Instance)
	assert.Contains(t, problem.TraceID, "req_")
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "north", problem.Errors[0].Field)
}

func TestNotFound(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/aqi")

	response.NotFound(rec, req, "no station found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
	assert.Equal(t, "no station found", problem.Detail)
}

func TestInternalError(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/aqi")

	response.InternalError(rec, req, "unexpected")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, models.ProblemTypeInternal, decodeProblem(t, rec).Type)
}

func TestServiceUnavailable_RetryAfter(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/aqi")

	response.ServiceUnavailable(rec, req, "provider down", 30*time.Second)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, models.ProblemTypeUnavailable, decodeProblem(t, rec).Type)

	req, rec = requestWithContext(t, http.MethodGet, "/v1/aqi")
	response.ServiceUnavailable(rec, req, "provider down", 0)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestRequestIDPropagation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("X-Request-Id", "client-request-123")

	var processedReq *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processedReq = r
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "client-request-123", middleware.GetRequestID(processedReq.Context()))

	rec := httptest.NewRecorder()
	response.JSON(rec, processedReq, http.StatusOK, map[string]string{"status": "ok"})
	assert.Equal(t, "client-request-123", rec.Header().Get("X-Request-Id"))
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))
}
