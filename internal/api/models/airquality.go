package models

import (
	"time"

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/aqi"
)

// AirQualityResponse lists the latest raw readings of the nearest station.
type AirQualityResponse struct {
	Station  StationSummary   `json:"station"`
	Readings []PollutantValue `json:"readings"`
	Provider string           `json:"provider"`
}

// PollutantValue is the latest reading of one pollutant. Value is null when
// the sensor reported nothing.
type PollutantValue struct {
	Pollutant  aqi.Pollutant `json:"pollutant"`
	SensorID   string        `json:"sensorId"`
	Value      *float64      `json:"value"`
	Unit       string        `json:"unit"`
	SourceUnit string        `json:"sourceUnit,omitempty"`
	ObservedAt Timestamp     `json:"observedAt"`
}

// NewAirQualityResponse lists readings in canonical pollutant order.
func NewAirQualityResponse(result *airquality.PointResult, provider string) AirQualityResponse {
	s := result.Station
	resp := AirQualityResponse{
		Station: StationSummary{
			StationID:      s.ID,
			Name:           s.Name,
			Point:          Point{Lat: s.Lat, Lon: s.Lon},
			DistanceMeters: result.DistanceMeters,
			UpdatedAt:      Timestamp(s.LastUpdated),
		},
		Readings: make([]PollutantValue, 0, len(result.Readings)),
		Provider: provider,
	}

	for _, p := range aqi.Pollutants {
		r, ok := result.Readings[p]
		if !ok {
			continue
		}
		resp.Readings = append(resp.Readings, PollutantValue{
			Pollutant:  p,
			SensorID:   r.SensorID,
			Value:      r.Concentration,
			Unit:       ConcentrationUnit,
			SourceUnit: s.Units[r.SensorID],
			ObservedAt: Timestamp(r.ObservedAt),
		})
	}

	return resp
}

// Station is a candidate monitoring station.
type Station struct {
	StationID      string          `json:"stationId"`
	Name           string          `json:"name"`
	Point          Point           `json:"point"`
	Pollutants     []aqi.Pollutant `json:"pollutants"`
	DistanceMeters float64         `json:"distanceMeters"`
	UpdatedAt      Timestamp       `json:"updatedAt"`
}

// StationsResponse lists stations around a point, nearest first.
type StationsResponse struct {
	Point        Point     `json:"point"`
	RadiusMeters float64   `json:"radiusMeters"`
	Items        []Station `json:"items"`
	Provider     string    `json:"provider"`
	FetchedAt    Timestamp `json:"fetchedAt"`
}

// NewStation converts a station, measuring distance from (lat, lon).
func NewStation(s *airquality.Station, lat, lon float64) Station {
	pollutants := s.Pollutants()
	if pollutants == nil {
		pollutants = []aqi.Pollutant{}
	}
	return Station{
		StationID:      s.ID,
		Name:           s.Name,
		Point:          Point{Lat: s.Lat, Lon: s.Lon},
		Pollutants:     pollutants,
		DistanceMeters: airquality.HaversineDistance(lat, lon, s.Lat, s.Lon),
		UpdatedAt:      Timestamp(s.LastUpdated),
	}
}

// NewStationsResponse builds the station list at fetchedAt.
func NewStationsResponse(lat, lon, radius float64, stations []Station, provider string, fetchedAt time.Time) StationsResponse {
	return StationsResponse{
		Point:        Point{Lat: lat, Lon: lon},
		RadiusMeters: radius,
		Items:        stations,
		Provider:     provider,
		FetchedAt:    Timestamp(fetchedAt),
	}
}
