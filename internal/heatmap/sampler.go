package heatmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/aqi"
	"github.com/airwatch/airwatch/internal/telemetry"
)

const tracerName = "github.com/airwatch/airwatch/internal/heatmap"

// Defaults for SamplerConfig.
const (
	DefaultSteps       = 10
	DefaultMaxPoints   = 2500
	DefaultConcurrency = 8
)

// PointSource computes the AQI at a single point. *airquality.Service
// implements it.
type PointSource interface {
	PointAQI(ctx context.Context, lat, lon float64) (*airquality.PointResult, error)
}

// SamplerConfig holds configuration for the sampler.
type SamplerConfig struct {
	// Source resolves each lattice point.
	Source PointSource

	// Logger for sampler operations.
	Logger zerolog.Logger

	// Concurrency bounds the number of points resolved at once (default: 8).
	Concurrency int

	// MaxPoints rejects larger lattices with ErrGridTooLarge (default: 2500).
	MaxPoints int

	// DefaultSteps is used when a request sets no resolution (default: 10).
	DefaultSteps int
}

// Cell is the AQI at one lattice point.
type Cell struct {
	Row       int
	Col       int
	Lat       float64
	Lon       float64
	StationID string // empty when no station was in range
	AQI       aqi.Result
}

// Sampler evaluates the AQI over a lattice with bounded parallelism.
type Sampler struct {
	source       PointSource
	logger       zerolog.Logger
	tracer       trace.Tracer
	concurrency  int
	maxPoints    int
	defaultSteps int
}

// NewSampler creates a new heatmap sampler.
func NewSampler(cfg SamplerConfig) *Sampler {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	maxPoints := cfg.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	defaultSteps := cfg.DefaultSteps
	if defaultSteps <= 0 {
		defaultSteps = DefaultSteps
	}

	return &Sampler{
		source:       cfg.Source,
		logger:       cfg.Logger,
		tracer:       telemetry.Tracer(tracerName),
		concurrency:  concurrency,
		maxPoints:    maxPoints,
		defaultSteps: defaultSteps,
	}
}

// MaxPoints returns the largest lattice the sampler accepts.
func (s *Sampler) MaxPoints() int {
	return s.maxPoints
}

// Plan validates the request and builds its lattice. A zero resolution uses
// the default step count.
func (s *Sampler) Plan(v Viewport, r Resolution) (Grid, error) {
	if r.IsZero() {
		r = Resolution{StepCount: s.defaultSteps}
	}
	if err := v.Validate(); err != nil {
		return Grid{}, err
	}
	if err := r.Validate(); err != nil {
		return Grid{}, err
	}

	rows, cols := Size(v, r)
	if rows > s.maxPoints || cols > s.maxPoints || rows*cols > s.maxPoints {
		return Grid{}, fmt.Errorf("%w: %d x %d exceeds %d points", ErrGridTooLarge, rows, cols, s.maxPoints)
	}

	return NewGrid(v, r)
}

// Sample resolves every lattice point and returns the cells row-major. Points
// without a station in range become no-data cells. Any other failure, or
// cancellation of ctx, aborts the whole grid and no cells are returned.
func (s *Sampler) Sample(ctx context.Context, v Viewport, r Resolution) ([]Cell, error) {
	grid, err := s.Plan(v, r)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "heatmap.Sample", trace.WithAttributes(
		attribute.Int("heatmap.rows", grid.Rows),
		attribute.Int("heatmap.cols", grid.Cols),
		attribute.Int("heatmap.concurrency", s.concurrency),
	))
	defer span.End()

	start := time.Now()
	cells, err := s.sample(ctx, grid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).
			Int("points", len(grid.Points)).
			Dur("duration", time.Since(start)).
			Msg("heatmap sampling aborted")
		return nil, err
	}

	s.logger.Debug().
		Int("rows", grid.Rows).
		Int("cols", grid.Cols).
		Dur("duration", time.Since(start)).
		Msg("heatmap sampled")

	return cells, nil
}

func (s *Sampler) sample(ctx context.Context, grid Grid) ([]Cell, error) {
	cells := make([]Cell, len(grid.Points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, p := range grid.Points {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			cell, err := s.evaluate(gctx, p)
			if err != nil {
				return err
			}
			// Each goroutine owns one slot.
			cells[i] = cell
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return cells, nil
}

func (s *Sampler) evaluate(ctx context.Context, p Point) (Cell, error) {
	cell := Cell{Row: p.Row, Col: p.Col, Lat: p.Lat, Lon: p.Lon}

	result, err := s.source.PointAQI(ctx, p.Lat, p.Lon)
	switch {
	case errors.Is(err, airquality.ErrStationNotFound):
		cell.AQI = aqi.NoData()
		return cell, nil
	case err != nil:
		return Cell{}, fmt.Errorf("sample %.5f,%.5f: %w", p.Lat, p.Lon, err)
	}

	cell.AQI = result.AQI
	if result.Station != nil {
		cell.StationID = result.Station.ID
	}
	return cell, nil
}
