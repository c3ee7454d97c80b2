// Package middleware provides HTTP middleware for the AirWatch API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// maxRequestIDLength caps client-supplied request IDs.
const maxRequestIDLength = 64

// requestIDKey is the context key for the request ID.
type requestIDKey struct{}

// RequestID adds a request ID to the context and the X-Request-Id response
// header. A well-formed incoming X-Request-Id is kept; anything else is
// replaced with a generated one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !validRequestID(requestID) {
			requestID = "req_" + uuid.New().String()[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts short IDs made of letters, digits, '-', '_' and '.'.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
