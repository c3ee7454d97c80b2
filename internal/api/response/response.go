// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/airwatch/airwatch/internal/api/middleware"
	"github.com/airwatch/airwatch/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Cacheable marks the response as shareable by caches for maxAge. Non-positive
// ages disable caching.
func Cacheable(w http.ResponseWriter, maxAge time.Duration) {
	if maxAge <= 0 {
		w.Header().Set("Cache-Control", "no-store")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
// retryAfter, when positive, is sent as Retry-After in seconds.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}
