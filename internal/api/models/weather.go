package models

import "github.com/airwatch/airwatch/internal/weather"

// WeatherResponse is the current weather at a point.
type WeatherResponse struct {
	Point        Point                `json:"point"`
	Temperature  float64              `json:"temperature"`
	Humidity     float64              `json:"humidity"`
	WindSpeed    float64              `json:"windSpeed"`
	WindCategory weather.WindCategory `json:"windCategory"`
	WeatherCode  int                  `json:"weatherCode"`
	Condition    weather.Condition    `json:"condition"`
	Description  string               `json:"description"`
	ObservedAt   Timestamp            `json:"observedAt"`
	Provider     string               `json:"provider"`
}

// NewWeatherResponse converts an observation.
func NewWeatherResponse(o *weather.Observation, provider string) WeatherResponse {
	return WeatherResponse{
		Point:        Point{Lat: o.Lat, Lon: o.Lon},
		Temperature:  o.Temperature,
		Humidity:     o.Humidity,
		WindSpeed:    o.WindSpeed,
		WindCategory: o.WindCategory(),
		WeatherCode:  o.WeatherCode,
		Condition:    o.Condition,
		Description:  o.Description,
		ObservedAt:   Timestamp(o.ObservedAt),
		Provider:     provider,
	}
}

// ForecastHour is one hour of a forecast.
type ForecastHour struct {
	Time                     Timestamp            `json:"time"`
	Temperature              float64              `json:"temperature"`
	Humidity                 float64              `json:"humidity"`
	WindSpeed                float64              `json:"windSpeed"`
	WindCategory             weather.WindCategory `json:"windCategory"`
	PrecipitationProbability float64              `json:"precipitationProbability"`
	WeatherCode              int                  `json:"weatherCode"`
	Condition                weather.Condition    `json:"condition"`
	Description              string               `json:"description"`
}

// ForecastResponse is the hourly forecast at a point.
type ForecastResponse struct {
	Point    Point          `json:"point"`
	Hours    []ForecastHour `json:"hours"`
	Provider string         `json:"provider"`
}

// NewForecastResponse converts a forecast.
func NewForecastResponse(f *weather.Forecast, provider string) ForecastResponse {
	hours := make([]ForecastHour, len(f.Hours))
	for i := range f.Hours {
		h := &f.Hours[i]
		hours[i] = ForecastHour{
			Time:                     Timestamp(h.Time),
			Temperature:              h.Temperature,
			Humidity:                 h.Humidity,
			WindSpeed:                h.WindSpeed,
			WindCategory:             h.WindCategory(),
			PrecipitationProbability: h.PrecipitationProbability,
			WeatherCode:              h.WeatherCode,
			Condition:                h.Condition,
			Description:              h.Description,
		}
	}
	return ForecastResponse{
		Point:    Point{Lat: f.Lat, Lon: f.Lon},
		Hours:    hours,
		Provider: provider,
	}
}
