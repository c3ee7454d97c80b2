package models

import (
	"github.com/airwatch/airwatch/internal/aqi"
	"github.com/airwatch/airwatch/internal/heatmap"
)

// HeatmapResponse is an AQI grid over a viewport, row-major from the
// north-west corner.
type HeatmapResponse struct {
	Viewport   heatmap.Viewport   `json:"viewport"`
	Resolution heatmap.Resolution `json:"resolution"`
	Rows       int                `json:"rows"`
	Cols       int                `json:"cols"`
	Points     []HeatmapPoint     `json:"points"`
	Provider   string             `json:"provider"`
}

// HeatmapPoint is one sampled cell.
type HeatmapPoint struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	AQI       int            `json:"aqi"`
	Category  aqi.Category   `json:"category"`
	Dominant  *aqi.Pollutant `json:"dominantPollutant"`
	Color     string         `json:"color"`
	StationID string         `json:"stationId,omitempty"`
}

// NewHeatmapResponse converts sampled cells into the response shape.
func NewHeatmapResponse(v heatmap.Viewport, grid heatmap.Grid, cells []heatmap.Cell, provider string) HeatmapResponse {
	resp := HeatmapResponse{
		Viewport: v,
		Rows:     grid.Rows,
		Cols:     grid.Cols,
		Points:   make([]HeatmapPoint, len(cells)),
		Provider: provider,
	}

	for i, c := range cells {
		p := HeatmapPoint{
			Latitude:  c.Lat,
			Longitude: c.Lon,
			AQI:       c.AQI.Value,
			Category:  c.AQI.Category,
			Color:     c.AQI.Band().Color,
			StationID: c.StationID,
		}
		if c.AQI.HasData() {
			dominant := c.AQI.Dominant
			p.Dominant = &dominant
		}
		resp.Points[i] = p
	}

	return resp
}
