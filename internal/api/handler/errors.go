package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/api/middleware"
	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
	"github.com/airwatch/airwatch/internal/heatmap"
	"github.com/airwatch/airwatch/internal/weather"
)

// providerRetryAfter is suggested to clients when a provider is down.
const providerRetryAfter = 30 * time.Second

// writeError maps domain errors to Problem responses. Unexpected errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, airquality.ErrInvalidCoordinates),
		errors.Is(err, weather.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates are out of range", nil)
	case errors.Is(err, heatmap.ErrInvalidViewport),
		errors.Is(err, heatmap.ErrInvalidResolution),
		errors.Is(err, heatmap.ErrGridTooLarge):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, airquality.ErrStationNotFound):
		response.NotFound(w, r, "no monitoring station found near this location")
	case errors.Is(err, airquality.ErrProviderUnavailable),
		errors.Is(err, weather.ErrProviderUnavailable):
		log.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("provider unavailable")
		response.ServiceUnavailable(w, r, "data provider is temporarily unavailable", providerRetryAfter)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		response.ServiceUnavailable(w, r, "request did not complete in time", 0)
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

// NotFound answers unknown routes with a Problem.
func NotFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, r, "no such endpoint")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := models.NewProblem(models.ProblemTypeMethodNotAllowed, "Method not allowed",
		http.StatusMethodNotAllowed, middleware.GetRequestID(r.Context()))
	problem.Detail = r.Method + " is not supported on this endpoint"
	response.Error(w, r, problem)
}
