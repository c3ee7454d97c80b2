package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
)

// AirQualityService is the station-backed point computation.
type AirQualityService interface {
	PointAQI(ctx context.Context, lat, lon float64) (*airquality.PointResult, error)
	NearbyStations(ctx context.Context, lat, lon float64) ([]*airquality.Station, error)
	ProviderName() string
	SearchRadius() float64
}

// AirQualityHandler serves point AQI and station data.
type AirQualityHandler struct {
	service AirQualityService
	logger  zerolog.Logger
	maxAge  time.Duration
}

// NewAirQualityHandler creates a new AirQualityHandler. maxAge is advertised
// in Cache-Control and should match the service cache TTL.
func NewAirQualityHandler(service AirQualityService, logger zerolog.Logger, maxAge time.Duration) *AirQualityHandler {
	return &AirQualityHandler{service: service, logger: logger, maxAge: maxAge}
}

// GetAQI handles GET /v1/aqi.
func (h *AirQualityHandler) GetAQI(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	lat, lon := q.coordinates()
	if !q.valid() {
		response.BadRequest(w, r, "invalid query parameters", q.errors)
		return
	}

	result, err := h.service.PointAQI(r.Context(), lat, lon)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Cacheable(w, h.maxAge)
	response.JSON(w, r, http.StatusOK, models.NewAQIResponse(result, h.service.ProviderName()))
}

// GetReadings handles GET /v1/air-quality - latest raw readings of the
// nearest station.
func (h *AirQualityHandler) GetReadings(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	lat, lon := q.coordinates()
	if !q.valid() {
		response.BadRequest(w, r, "invalid query parameters", q.errors)
		return
	}

	result, err := h.service.PointAQI(r.Context(), lat, lon)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Cacheable(w, h.maxAge)
	response.JSON(w, r, http.StatusOK, models.NewAirQualityResponse(result, h.service.ProviderName()))
}

// ListStations handles GET /v1/air-quality/stations - candidate stations
// around a point, nearest first.
func (h *AirQualityHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	lat, lon := q.coordinates()
	if !q.valid() {
		response.BadRequest(w, r, "invalid query parameters", q.errors)
		return
	}

	stations, err := h.service.NearbyStations(r.Context(), lat, lon)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if s != nil {
			items = append(items, models.NewStation(s, lat, lon))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DistanceMeters < items[j].DistanceMeters
	})

	response.Cacheable(w, h.maxAge)
	response.JSON(w, r, http.StatusOK, models.NewStationsResponse(
		lat, lon, h.service.SearchRadius(), items, h.service.ProviderName(), time.Now(),
	))
}
