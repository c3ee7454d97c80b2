// Package aqi converts pollutant concentrations into a US EPA style Air
// Quality Index.
//
// Everything in this package is a pure function over static tables, so it is
// safe for concurrent use without locking.
package aqi

import "strings"

// Pollutant identifies a tracked pollutant.
type Pollutant string

const (
	PM25 Pollutant = "PM2.5"
	PM10 Pollutant = "PM10"
	NO2  Pollutant = "NO2"
	SO2  Pollutant = "SO2"
)

// Pollutants is the canonical pollutant order. Dominant pollutant ties are
// broken by position in this slice.
var Pollutants = []Pollutant{PM25, PM10, NO2, SO2}

// Known reports whether p has a breakpoint table.
func (p Pollutant) Known() bool {
	_, ok := breakpoints[p]
	return ok
}

// Rank returns the canonical position of p, or -1 for unknown pollutants.
func (p Pollutant) Rank() int {
	for i, known := range Pollutants {
		if known == p {
			return i
		}
	}
	return -1
}

// ParsePollutant maps provider parameter names ("pm25", "pm2_5",
// "nitrogen_dioxide", ...) to a Pollutant. It returns "" for anything outside
// the closed set.
func ParsePollutant(name string) Pollutant {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pm2.5", "pm25", "pm2_5":
		return PM25
	case "pm10":
		return PM10
	case "no2", "nitrogen_dioxide":
		return NO2
	case "so2", "sulphur_dioxide", "sulfur_dioxide":
		return SO2
	default:
		return ""
	}
}
