package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
	"github.com/airwatch/airwatch/internal/weather"
)

// WeatherService provides current conditions and hourly forecasts.
type WeatherService interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
	ProviderName() string
}

// WeatherHandler serves current weather and forecasts.
type WeatherHandler struct {
	service WeatherService
	logger  zerolog.Logger
	maxAge  time.Duration
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service WeatherService, logger zerolog.Logger, maxAge time.Duration) *WeatherHandler {
	return &WeatherHandler{service: service, logger: logger, maxAge: maxAge}
}

// GetCurrent handles GET /v1/weather/current.
func (h *WeatherHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	lat, lon := q.coordinates()
	if !q.valid() {
		response.BadRequest(w, r, "invalid query parameters", q.errors)
		return
	}

	obs, err := h.service.CurrentWeather(r.Context(), lat, lon)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Cacheable(w, h.maxAge)
	response.JSON(w, r, http.StatusOK, models.NewWeatherResponse(obs, h.service.ProviderName()))
}

// GetForecast handles GET /v1/weather/forecast.
func (h *WeatherHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	lat, lon := q.coordinates()
	if !q.valid() {
		response.BadRequest(w, r, "invalid query parameters", q.errors)
		return
	}

	forecast, err := h.service.Forecast(r.Context(), lat, lon)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Cacheable(w, h.maxAge)
	response.JSON(w, r, http.StatusOK, models.NewForecastResponse(forecast, h.service.ProviderName()))
}
