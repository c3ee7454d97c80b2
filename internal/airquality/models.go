// Package airquality resolves monitoring stations around a point and turns
// their latest readings into an AQI.
package airquality

import (
	"errors"
	"math"
	"time"

	"github.com/airwatch/airwatch/internal/aqi"
)

// Provider errors.
var (
	ErrStationNotFound     = errors.New("no station found within search radius")
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Station is a physical or virtual monitoring point.
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`

	// Sensors maps a sensor ID to the pollutant it measures. Sensors for
	// pollutants outside the tracked set are left out by providers.
	Sensors map[string]aqi.Pollutant `json:"sensors"`

	// Units maps a sensor ID to the unit the provider reports it in. Readings
	// are converted to µg/m³ by the provider, this is kept for display.
	Units map[string]string `json:"units,omitempty"`

	// Readings holds the latest value reported by each sensor.
	Readings []Reading `json:"readings"`

	// LastUpdated is the station-level last activity timestamp, if known.
	LastUpdated time.Time `json:"lastUpdated"`
}

// Reading is one sensor value.
type Reading struct {
	SensorID string `json:"sensorId"`

	// Concentration is in µg/m³. Nil when the sensor reported no value.
	Concentration *float64 `json:"concentration"`

	// ObservedAt is zero when the provider did not report a timestamp.
	ObservedAt time.Time `json:"observedAt"`
}

// HasValue reports whether the reading carries a concentration.
func (r Reading) HasValue() bool {
	return r.Concentration != nil
}

// PollutantFor returns the pollutant measured by sensorID, or "" if the
// station does not know the sensor.
func (s *Station) PollutantFor(sensorID string) aqi.Pollutant {
	if s.Sensors == nil {
		return ""
	}
	return s.Sensors[sensorID]
}

// Pollutants returns the tracked pollutants this station has sensors for, in
// canonical order.
func (s *Station) Pollutants() []aqi.Pollutant {
	seen := make(map[aqi.Pollutant]bool, len(s.Sensors))
	for _, p := range s.Sensors {
		seen[p] = true
	}

	var out []aqi.Pollutant
	for _, p := range aqi.Pollutants {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// Float returns a pointer to v, for building readings.
func Float(v float64) *float64 {
	return &v
}

// PointResult is the AQI computed for a query point from its nearest station.
type PointResult struct {
	Lat float64
	Lon float64

	// Station is the resolved nearest station.
	Station *Station

	// DistanceMeters is the great-circle distance to Station. Informational
	// only, selection uses planar distance.
	DistanceMeters float64

	// Readings holds the latest reading per tracked pollutant. Pollutants
	// without a sensor are absent.
	Readings map[aqi.Pollutant]Reading

	AQI aqi.Result
}

// Concentrations returns the present concentrations of the point's readings.
func (r *PointResult) Concentrations() aqi.Concentrations {
	return ConcentrationsOf(r.Readings)
}

// ConcentrationsOf drops readings without a value.
func ConcentrationsOf(readings map[aqi.Pollutant]Reading) aqi.Concentrations {
	out := make(aqi.Concentrations, len(readings))
	for p, r := range readings {
		if r.HasValue() {
			out[p] = *r.Concentration
		}
	}
	return out
}

// ValidateCoordinates checks that lat/lon are within WGS84 bounds.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
