// Package heatmap samples the point AQI over a rectangular viewport.
package heatmap

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned for bad input. All of them are caller errors.
var (
	ErrInvalidViewport   = errors.New("invalid viewport")
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrGridTooLarge      = errors.New("grid has too many points")
)

// eps absorbs float noise when dividing a span by a step size.
const eps = 1e-9

// Viewport is a latitude/longitude rectangle. It never wraps the antimeridian.
type Viewport struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate checks bounds and orientation.
func (v Viewport) Validate() error {
	for _, lat := range []float64{v.North, v.South} {
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			return fmt.Errorf("%w: latitude %v out of range", ErrInvalidViewport, lat)
		}
	}
	for _, lon := range []float64{v.East, v.West} {
		if math.IsNaN(lon) || lon < -180 || lon > 180 {
			return fmt.Errorf("%w: longitude %v out of range", ErrInvalidViewport, lon)
		}
	}
	if v.North <= v.South {
		return fmt.Errorf("%w: north must be greater than south", ErrInvalidViewport)
	}
	if v.East <= v.West {
		return fmt.Errorf("%w: east must be greater than west", ErrInvalidViewport)
	}
	return nil
}

// Height returns the latitude span in degrees.
func (v Viewport) Height() float64 { return v.North - v.South }

// Width returns the longitude span in degrees.
func (v Viewport) Width() float64 { return v.East - v.West }

// Resolution selects the lattice density. Exactly one field is set; the zero
// value means "use the sampler default".
type Resolution struct {
	// StepCount yields a StepCount x StepCount lattice.
	StepCount int `json:"steps,omitempty"`

	// StepDegrees spaces points this many degrees apart in both directions.
	StepDegrees float64 `json:"stepDegrees,omitempty"`
}

// IsZero reports whether neither field is set.
func (r Resolution) IsZero() bool {
	return r.StepCount == 0 && r.StepDegrees == 0
}

// Validate checks that exactly one positive field is set.
func (r Resolution) Validate() error {
	switch {
	case r.StepCount != 0 && r.StepDegrees != 0:
		return fmt.Errorf("%w: steps and stepDegrees are mutually exclusive", ErrInvalidResolution)
	case r.StepCount < 0:
		return fmt.Errorf("%w: steps must be positive", ErrInvalidResolution)
	case math.IsNaN(r.StepDegrees) || math.IsInf(r.StepDegrees, 0) || r.StepDegrees < 0:
		return fmt.Errorf("%w: stepDegrees must be positive", ErrInvalidResolution)
	case r.IsZero():
		return fmt.Errorf("%w: steps or stepDegrees is required", ErrInvalidResolution)
	}
	return nil
}

// Point is one lattice position.
type Point struct {
	Row int
	Col int
	Lat float64
	Lon float64
}

// Grid is a lattice of cell centers laid out row-major, rows north to south
// and columns west to east.
type Grid struct {
	Rows   int
	Cols   int
	Points []Point
}

// Size returns the number of points a resolution yields for v without
// building the lattice.
func Size(v Viewport, r Resolution) (rows, cols int) {
	if r.StepCount > 0 {
		return r.StepCount, r.StepCount
	}
	return steps(v.Height(), r.StepDegrees), steps(v.Width(), r.StepDegrees)
}

// NewGrid builds the lattice for v at resolution r.
func NewGrid(v Viewport, r Resolution) (Grid, error) {
	if err := v.Validate(); err != nil {
		return Grid{}, err
	}
	if err := r.Validate(); err != nil {
		return Grid{}, err
	}

	rows, cols := Size(v, r)

	latStep, lonStep := r.StepDegrees, r.StepDegrees
	if r.StepCount > 0 {
		latStep = v.Height() / float64(rows)
		lonStep = v.Width() / float64(cols)
	}

	centerLat := (v.North + v.South) / 2
	centerLon := (v.East + v.West) / 2

	points := make([]Point, 0, rows*cols)
	for i := 0; i < rows; i++ {
		lat := centerLat + (float64(rows-1)/2-float64(i))*latStep
		for j := 0; j < cols; j++ {
			lon := centerLon + (float64(j)-float64(cols-1)/2)*lonStep
			points = append(points, Point{Row: i, Col: j, Lat: lat, Lon: lon})
		}
	}

	return Grid{Rows: rows, Cols: cols, Points: points}, nil
}

// steps is how many cells of size step fit in span, at least one.
func steps(span, step float64) int {
	n := math.Floor(span/step + eps)
	switch {
	case n < 1:
		return 1
	case n > math.MaxInt32:
		return math.MaxInt32
	}
	return int(n)
}
