package airquality

import (
	"math"

	"github.com/airwatch/airwatch/internal/aqi"
)

// ResolveNearest returns the candidate closest to (lat, lon), or nil when
// there are no candidates.
//
// Distance is planar Euclidean on raw degrees. This distorts longitude away
// from the equator but is accurate enough within the ~10 km search radius the
// providers use, and it is what station selection has always been based on.
// Ties keep the first candidate in input order.
func ResolveNearest(lat, lon float64, candidates []*Station) *Station {
	var (
		nearest *Station
		minDist = math.MaxFloat64
	)

	for _, s := range candidates {
		if s == nil {
			continue
		}
		d := planarDistance(lat, lon, s.Lat, s.Lon)
		if d < minDist {
			minDist = d
			nearest = s
		}
	}

	return nearest
}

// LatestReadings picks, for each pollutant, the most recent reading among all
// sensors of the station that measure it. Readings without a timestamp are
// older than any timestamped one; equal timestamps keep the first reading.
// Pollutants with no sensor on the station are absent from the result.
func LatestReadings(station *Station, pollutants []aqi.Pollutant) map[aqi.Pollutant]Reading {
	latest := make(map[aqi.Pollutant]Reading, len(pollutants))
	if station == nil {
		return latest
	}

	wanted := make(map[aqi.Pollutant]bool, len(pollutants))
	for _, p := range pollutants {
		wanted[p] = true
	}

	for _, r := range station.Readings {
		p := station.PollutantFor(r.SensorID)
		if p == "" || !wanted[p] {
			continue
		}

		current, ok := latest[p]
		if !ok || newer(r, current) {
			latest[p] = r
		}
	}

	return latest
}

// newer reports whether a is strictly more recent than b.
func newer(a, b Reading) bool {
	if a.ObservedAt.IsZero() {
		return false
	}
	if b.ObservedAt.IsZero() {
		return true
	}
	return a.ObservedAt.After(b.ObservedAt)
}

// Evaluate resolves the nearest station and aggregates its latest readings.
// It returns ErrStationNotFound when candidates is empty.
func Evaluate(lat, lon float64, candidates []*Station) (*PointResult, error) {
	station := ResolveNearest(lat, lon, candidates)
	if station == nil {
		return nil, ErrStationNotFound
	}
	return Summarize(lat, lon, station), nil
}

// Summarize aggregates the latest readings of station for the query point.
func Summarize(lat, lon float64, station *Station) *PointResult {
	readings := LatestReadings(station, aqi.Pollutants)

	return &PointResult{
		Lat:            lat,
		Lon:            lon,
		Station:        station,
		DistanceMeters: HaversineDistance(lat, lon, station.Lat, station.Lon),
		Readings:       readings,
		AQI:            aqi.Aggregate(ConcentrationsOf(readings)),
	}
}

func planarDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return math.Hypot(lat1-lat2, lon1-lon2)
}

// HaversineDistance calculates the distance between two points in meters
// using the Haversine formula.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
