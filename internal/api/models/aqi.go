package models

import (
	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/aqi"
)

// AQIResponse is the AQI at a query point.
type AQIResponse struct {
	Point             Point              `json:"point"`
	AQI               int                `json:"aqi"`
	Category          aqi.Category       `json:"category"`
	DominantPollutant *aqi.Pollutant     `json:"dominantPollutant"`
	Color             string             `json:"color"`
	Recommendation    string             `json:"recommendation"`
	Concentrations    map[string]float64 `json:"concentrations"`
	SubIndices        []SubIndex         `json:"subIndices"`
	Station           *StationSummary    `json:"station"`
	Provider          string             `json:"provider"`
}

// SubIndex is one pollutant's contribution to the AQI.
type SubIndex struct {
	Pollutant     aqi.Pollutant `json:"pollutant"`
	Index         int           `json:"index"`
	Concentration float64       `json:"concentration"`
	Unit          string        `json:"unit"`
}

// StationSummary identifies the station an AQI was computed from.
type StationSummary struct {
	StationID      string    `json:"stationId"`
	Name           string    `json:"name"`
	Point          Point     `json:"point"`
	DistanceMeters float64   `json:"distanceMeters"`
	UpdatedAt      Timestamp `json:"updatedAt"`
}

// ConcentrationUnit is the unit of every concentration in responses.
const ConcentrationUnit = "µg/m³"

// NewAQIResponse converts a point result into its response shape.
func NewAQIResponse(result *airquality.PointResult, provider string) AQIResponse {
	band := result.AQI.Band()
	concentrations := result.Concentrations()

	resp := AQIResponse{
		Point:          Point{Lat: result.Lat, Lon: result.Lon},
		AQI:            result.AQI.Value,
		Category:       result.AQI.Category,
		Color:          band.Color,
		Recommendation: band.Recommendation,
		Concentrations: make(map[string]float64, len(concentrations)),
		SubIndices:     make([]SubIndex, 0, len(result.AQI.SubIndices)),
		Provider:       provider,
	}

	if result.AQI.HasData() {
		dominant := result.AQI.Dominant
		resp.DominantPollutant = &dominant
	}

	for p, c := range concentrations {
		resp.Concentrations[string(p)] = c
	}
	for _, si := range result.AQI.SubIndices {
		resp.SubIndices = append(resp.SubIndices, SubIndex{
			Pollutant:     si.Pollutant,
			Index:         si.Index,
			Concentration: concentrations[si.Pollutant],
			Unit:          ConcentrationUnit,
		})
	}

	if s := result.Station; s != nil {
		resp.Station = &StationSummary{
			StationID:      s.ID,
			Name:           s.Name,
			Point:          Point{Lat: s.Lat, Lon: s.Lon},
			DistanceMeters: result.DistanceMeters,
			UpdatedAt:      Timestamp(s.LastUpdated),
		}
	}

	return resp
}
