// Package openmeteo provides a modelled air quality provider backed by the
// Open-Meteo air quality API. Every query yields one virtual station at the
// model grid point nearest to the query.
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

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/aqi"
	"github.com/airwatch/airwatch/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the Open-Meteo air quality API.
	DefaultBaseURL = "https://air-quality-api.open-meteo.com/v1"

	// ProviderName identifies this provider.
	ProviderName = "openmeteo"
)

// Hourly variables requested from the API. The variable name doubles as the
// sensor ID on the virtual station.
var variables = []struct {
	name      string
	pollutant aqi.Pollutant
}{
	{"pm2_5", aqi.PM25},
	{"pm10", aqi.PM10},
	{"nitrogen_dioxide", aqi.NO2},
	{"sulphur_dioxide", aqi.SO2},
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry receives the health of the default client. Optional.
	Registry *resilience.Registry

	// CircuitBreaker overrides the default client's breaker settings. Optional.
	CircuitBreaker *resilience.CircuitBreakerConfig
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Open-Meteo air quality client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new Open-Meteo air quality client.
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

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type airQualityResponse struct {
	Latitude    float64                    `json:"latitude"`
	Longitude   float64                    `json:"longitude"`
	HourlyUnits map[string]string          `json:"hourly_units"`
	Hourly      map[string]json.RawMessage `json:"hourly"`
}

// FetchStations returns the virtual station for (lat, lon). The radius is
// ignored since the model covers every point.
func (c *Client) FetchStations(ctx context.Context, lat, lon, _ float64) ([]*airquality.Station, error) {
	station, err := c.fetch(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	return []*airquality.Station{station}, nil
}

// FetchReadings refreshes the readings of a virtual station.
func (c *Client) FetchReadings(ctx context.Context, station *airquality.Station) ([]airquality.Reading, error) {
	fresh, err := c.fetch(ctx, station.Lat, station.Lon)
	if err != nil {
		return nil, err
	}
	return fresh.Readings, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*airquality.Station, error) {
	names := make([]string, 0, len(variables))
	for _, v := range variables {
		names = append(names, v.name)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("hourly", strings.Join(names, ","))
	q.Set("timezone", "GMT")
	q.Set("forecast_days", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/air-quality?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch air quality: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from air quality endpoint", resp.StatusCode)
	}

	var result airQualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode air quality response: %w", err)
	}

	return toStation(lat, lon, &result)
}

// toStation builds the virtual station from the first hourly slot.
func toStation(lat, lon float64, r *airQualityResponse) (*airquality.Station, error) {
	if r.Latitude != 0 || r.Longitude != 0 {
		lat, lon = r.Latitude, r.Longitude
	}

	var times []string
	if raw, ok := r.Hourly["time"]; ok {
		if err := json.Unmarshal(raw, &times); err != nil {
			return nil, fmt.Errorf("decode hourly time: %w", err)
		}
	}

	var observedAt time.Time
	if len(times) > 0 {
		observedAt, _ = time.Parse("2006-01-02T15:04", times[0])
	}

	station := &airquality.Station{
		ID:          fmt.Sprintf("%s:%.2f,%.2f", ProviderName, lat, lon),
		Name:        "Open-Meteo model grid",
		Lat:         lat,
		Lon:         lon,
		Sensors:     make(map[string]aqi.Pollutant, len(variables)),
		Units:       make(map[string]string, len(variables)),
		LastUpdated: observedAt,
	}

	for _, v := range variables {
		raw, ok := r.Hourly[v.name]
		if !ok {
			continue
		}

		var values []*float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("decode hourly %s: %w", v.name, err)
		}

		unit := r.HourlyUnits[v.name]
		station.Sensors[v.name] = v.pollutant
		station.Units[v.name] = unit

		reading := airquality.Reading{SensorID: v.name, ObservedAt: observedAt}
		if len(values) > 0 && values[0] != nil {
			if c, ok := airquality.ToMicrograms(v.pollutant, *values[0], unit); ok {
				reading.Concentration = airquality.Float(c)
			}
		}
		station.Readings = append(station.Readings, reading)
	}

	return station, nil
}
