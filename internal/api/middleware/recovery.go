package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/api/models"
)

// Recovery turns a handler panic into a 500 Problem carrying the request id
// and the matched route. http.ErrAbortHandler is re-raised so the server can
// drop the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				route := routePattern(r)

				log.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("route", route).
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				models.NewInternalError(requestID, "an unexpected error occurred").
					WithInstance(r.URL.Path).
					WithRoute(route).
					Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
