package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
	"github.com/airwatch/airwatch/internal/heatmap"
)

// Sampler samples the AQI over a viewport.
type Sampler interface {
	Sample(ctx context.Context, v heatmap.Viewport, r heatmap.Resolution) ([]heatmap.Cell, error)
}

// HeatmapHandler serves AQI grids.
type HeatmapHandler struct {
	sampler  Sampler
	provider string
	logger   zerolog.Logger
	maxAge   time.Duration
}

// NewHeatmapHandler creates a new HeatmapHandler.
func NewHeatmapHandler(sampler Sampler, provider string, logger zerolog.Logger, maxAge time.Duration) *HeatmapHandler {
	return &HeatmapHandler{sampler: sampler, provider: provider, logger: logger, maxAge: maxAge}
}

// GetHeatmap handles GET /v1/heatmap. Resolution is either steps (an N x N
// grid) or stepDegrees; giving neither uses the server default.
func (h *HeatmapHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	viewport := heatmap.Viewport{
		North: q.float("north", -90, 90),
		South: q.float("south", -90, 90),
		East:  q.float("east", -180, 180),
		West:  q.float("west", -180, 180),
	}
	resolution := heatmap.Resolution{
		StepCount:   q.optionalInt("steps"),
		StepDegrees: q.optionalFloat("stepDegrees"),
	}
	if resolution.StepCount > 0 && resolution.StepDegrees > 0 {
		q.fail("steps", models.CodeConflict, "steps and stepDegrees are mutually exclusive")
	}
	if !q.valid() {
		response.BadRequest(w, r, "invalid query parameters", q.errors)
		return
	}

	cells, err := h.sampler.Sample(r.Context(), viewport, resolution)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	grid := heatmap.Grid{}
	if n := len(cells); n > 0 {
		grid.Rows = cells[n-1].Row + 1
		grid.Cols = cells[n-1].Col + 1
	}

	resp := models.NewHeatmapResponse(viewport, grid, cells, h.provider)
	resp.Resolution = resolution
	if resolution.IsZero() {
		resp.Resolution = heatmap.Resolution{StepCount: grid.Rows}
	}

	response.Cacheable(w, h.maxAge)
	response.JSON(w, r, http.StatusOK, resp)
}
