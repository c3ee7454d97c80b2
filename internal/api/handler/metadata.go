package handler

import (
	"net/http"

	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
	"github.com/airwatch/airwatch/internal/aqi"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Pollutants: append([]aqi.Pollutant(nil), aqi.Pollutants...),
		Categories: []aqi.Category{aqi.CategoryNoData},
	}
	for _, b := range aqi.Bands() {
		enums.Categories = append(enums.Categories, b.Category)
	}
	enums.Categories = append(enums.Categories, aqi.CategoryOffScale)

	response.JSON(w, r, http.StatusOK, enums)
}

// GetBreakpoints handles GET /v1/metadata/breakpoints.
func (h *MetadataHandler) GetBreakpoints(w http.ResponseWriter, r *http.Request) {
	resp := models.BreakpointsResponse{
		MaxIndex:    aqi.MaxIndex,
		Breakpoints: make([]models.BreakpointTable, 0, len(aqi.Pollutants)),
		Bands:       aqi.Bands(),
	}
	for _, p := range aqi.Pollutants {
		resp.Breakpoints = append(resp.Breakpoints, models.BreakpointTable{
			Pollutant: p,
			Unit:      models.ConcentrationUnit,
			Rows:      aqi.Breakpoints(p),
		})
	}

	response.JSON(w, r, http.StatusOK, resp)
}
