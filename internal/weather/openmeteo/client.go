// Package openmeteo provides current weather and hourly forecasts from the
// Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airwatch/airwatch/internal/provider/resilience"
	"github.com/airwatch/airwatch/internal/weather"
)

const (
	// DefaultBaseURL is the base URL for the Open-Meteo forecast API.
	DefaultBaseURL = "https://api.open-meteo.com/v1"

	// ProviderName identifies this provider.
	ProviderName = "openmeteo-weather"

	// DefaultForecastHours is how many hours Forecast returns.
	DefaultForecastHours = 24

	timeLayout = "2006-01-02T15:04"
)

// ClientConfig holds configuration for the weather client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// ForecastHours is the forecast horizon (default: DefaultForecastHours).
	ForecastHours int

	// Registry receives the health of the default client. Optional.
	Registry *resilience.Registry

	// CircuitBreaker overrides the default client's breaker settings. Optional.
	CircuitBreaker *resilience.CircuitBreakerConfig
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Open-Meteo current weather client.
type Client struct {
	baseURL       string
	httpClient    HTTPDoer
	forecastHours int
}

// NewClient creates a new Open-Meteo weather client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			CircuitBreaker:  cfg.CircuitBreaker,
			Registry:        cfg.Registry,
		})
	}

	forecastHours := cfg.ForecastHours
	if forecastHours <= 0 {
		forecastHours = DefaultForecastHours
	}

	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    httpClient,
		forecastHours: forecastHours,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type forecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   struct {
		Time               string  `json:"time"`
		Temperature2m      float64 `json:"temperature_2m"`
		RelativeHumidity2m float64 `json:"relative_humidity_2m"`
		WindSpeed10m       float64 `json:"wind_speed_10m"`
		WeatherCode        int     `json:"weather_code"`
	} `json:"current"`
	Hourly struct {
		Time                     []string  `json:"time"`
		Temperature2m            []float64 `json:"temperature_2m"`
		RelativeHumidity2m       []float64 `json:"relative_humidity_2m"`
		WindSpeed10m             []float64 `json:"wind_speed_10m"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		WeatherCode              []int     `json:"weather_code"`
	} `json:"hourly"`
}

// CurrentWeather fetches the current conditions at a point.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	q := pointQuery(lat, lon)
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")

	var result forecastResponse
	if err := c.get(ctx, q, &result); err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	return toObservation(lat, lon, &result), nil
}

// Forecast fetches the hourly forecast at a point, starting with the current
// hour.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	q := pointQuery(lat, lon)
	q.Set("hourly", "temperature_2m,relative_humidity_2m,wind_speed_10m,precipitation_probability,weather_code")
	q.Set("forecast_hours", strconv.Itoa(c.forecastHours))

	var result forecastResponse
	if err := c.get(ctx, q, &result); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	return toForecast(lat, lon, &result)
}

func pointQuery(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("wind_speed_unit", "ms")
	q.Set("timezone", "GMT")
	return q
}

func (c *Client) get(ctx context.Context, q url.Values, out *forecastResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from forecast endpoint", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode forecast response: %w", err)
	}
	return nil
}

func toObservation(lat, lon float64, r *forecastResponse) *weather.Observation {
	if r.Latitude != 0 || r.Longitude != 0 {
		lat, lon = r.Latitude, r.Longitude
	}

	condition, description := weather.DescribeCode(r.Current.WeatherCode)
	obs := &weather.Observation{
		Lat:         lat,
		Lon:         lon,
		Temperature: r.Current.Temperature2m,
		Humidity:    r.Current.RelativeHumidity2m,
		WindSpeed:   r.Current.WindSpeed10m,
		WeatherCode: r.Current.WeatherCode,
		Condition:   condition,
		Description: description,
		FetchedAt:   time.Now(),
	}
	if t, err := time.Parse(timeLayout, r.Current.Time); err == nil {
		obs.ObservedAt = t
	}
	return obs
}

// toForecast zips the hourly columns. Columns shorter than the time axis
// leave their field at zero.
func toForecast(lat, lon float64, r *forecastResponse) (*weather.Forecast, error) {
	if r.Latitude != 0 || r.Longitude != 0 {
		lat, lon = r.Latitude, r.Longitude
	}

	h := r.Hourly
	hours := make([]weather.HourlyForecast, 0, len(h.Time))
	for i, raw := range h.Time {
		t, err := time.Parse(timeLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parse forecast hour %q: %w", raw, err)
		}

		hour := weather.HourlyForecast{
			Time:                     t,
			Temperature:              at(h.Temperature2m, i),
			Humidity:                 at(h.RelativeHumidity2m, i),
			WindSpeed:                at(h.WindSpeed10m, i),
			PrecipitationProbability: at(h.PrecipitationProbability, i),
		}
		if i < len(h.WeatherCode) {
			hour.WeatherCode = h.WeatherCode[i]
		}
		hour.Condition, hour.Description = weather.DescribeCode(hour.WeatherCode)
		hours = append(hours, hour)
	}

	return &weather.Forecast{
		Lat:       lat,
		Lon:       lon,
		Hours:     hours,
		FetchedAt: time.Now(),
	}, nil
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
