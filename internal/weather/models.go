// Package weather provides current weather conditions around a point.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation is the current weather at a point.
type Observation struct {
	Lat float64
	Lon float64

	// Temperature in Celsius
	Temperature float64

	// Relative humidity percentage (0-100)
	Humidity float64

	// WindSpeed at 10 m in m/s
	WindSpeed float64

	// WeatherCode is the WMO weather interpretation code.
	WeatherCode int
	Condition   Condition
	Description string

	ObservedAt time.Time
	FetchedAt  time.Time
}

// Forecast is an hourly forecast at a point, earliest hour first.
type Forecast struct {
	Lat float64
	Lon float64

	Hours []HourlyForecast

	FetchedAt time.Time
}

// HourlyForecast is the forecast for one hour.
type HourlyForecast struct {
	Time        time.Time
	Temperature float64
	Humidity    float64
	WindSpeed   float64

	// PrecipitationProbability is a percentage (0-100).
	PrecipitationProbability float64

	WeatherCode int
	Condition   Condition
	Description string
}

// WindCategory returns the wind category for the hour.
func (h *HourlyForecast) WindCategory() WindCategory {
	return windCategory(h.WindSpeed)
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionFog          Condition = "FOG"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionRain         Condition = "RAIN"
	ConditionSnow         Condition = "SNOW"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionUnknown      Condition = "UNKNOWN"
)

// WindCategory describes how well the wind disperses pollutants.
type WindCategory string

const (
	WindCalm     WindCategory = "CALM"     // < 1 m/s - pollutants accumulate
	WindLight    WindCategory = "LIGHT"    // 1-3 m/s - minimal dispersion
	WindModerate WindCategory = "MODERATE" // 3-8 m/s - good dispersion
	WindStrong   WindCategory = "STRONG"   // > 8 m/s - excellent dispersion
)

// WindCategory returns the wind category for the observation.
func (o *Observation) WindCategory() WindCategory {
	return windCategory(o.WindSpeed)
}

func windCategory(speed float64) WindCategory {
	switch {
	case speed < 1:
		return WindCalm
	case speed < 3:
		return WindLight
	case speed < 8:
		return WindModerate
	default:
		return WindStrong
	}
}
