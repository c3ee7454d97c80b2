package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder wraps http.ResponseWriter to capture the status code and
// body size.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger returns a middleware that writes one access log line per request.
// Server errors log at error level, client errors at warn.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			var traceID, spanID string
			if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			var event *zerolog.Event
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				event = log.Error()
			case wrapped.statusCode >= http.StatusBadRequest:
				event = log.Warn()
			default:
				event = log.Info()
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}
