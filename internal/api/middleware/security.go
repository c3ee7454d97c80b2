package middleware

import (
	"net/http"
	"strings"

	"github.com/airwatch/airwatch/internal/api/models"
)

// SecurityHeaders adds standard security headers to all HTTP responses.
// Headers set:
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Strict-Transport-Security: max-age=31536000; includeSubDomains
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Referrer-Policy: strict-origin-when-cross-origin
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// CORS allows the listed browser origins to call the read-only API. An entry
// of "*" allows any origin. Preflight requests are answered directly.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAny = true
		}
		allowed[strings.TrimSuffix(o, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!allowAny && !allowed[origin]) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if allowAny {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Expose-Headers", "X-Request-Id, Retry-After")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireTLS rejects requests that a load balancer forwarded over plain HTTP.
// It checks the X-Forwarded-Proto header; requests without it (direct
// connections, local development) pass.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto != "" && proto != "https" {
				problem := models.NewProblem(
					models.ProblemTypeTLSRequired,
					"TLS required",
					http.StatusForbidden,
					GetRequestID(r.Context()),
				)
				problem.Detail = "This endpoint requires HTTPS"
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
