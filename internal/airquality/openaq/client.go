// Package openaq provides a station provider backed by the OpenAQ v3 API.
package openaq

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
	// DefaultBaseURL is the base URL for the OpenAQ API.
	DefaultBaseURL = "https://api.openaq.org/v3"

	// ProviderName identifies this provider.
	ProviderName = "openaq"

	// MaxRadius is the largest search radius OpenAQ accepts, in meters.
	MaxRadius = 25000

	defaultLimit = 100
)

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent in the X-API-Key header.
	APIKey string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry receives the health of the default client. Optional.
	Registry *resilience.Registry

	// CircuitBreaker overrides the default client's breaker settings. Optional.
	CircuitBreaker *resilience.CircuitBreakerConfig

	// Limit is the maximum number of locations per search (default: 100).
	Limit int
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenAQ API client.
type Client struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
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
		apiKey:     cfg.APIKey,
		limit:      limit,
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from OpenAQ v3).

type locationsResponse struct {
	Results []locationData `json:"results"`
}

type locationData struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Coordinates  coordinates  `json:"coordinates"`
	Sensors      []sensorData `json:"sensors"`
	DatetimeLast *datetime    `json:"datetimeLast"`
}

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type sensorData struct {
	ID        int64         `json:"id"`
	Parameter parameterData `json:"parameter"`
}

type parameterData struct {
	Name  string `json:"name"`
	Units string `json:"units"`
}

type datetime struct {
	UTC string `json:"utc"`
}

type latestResponse struct {
	Results []latestData `json:"results"`
}

type latestData struct {
	Datetime  *datetime `json:"datetime"`
	Value     *float64  `json:"value"`
	SensorsID int64     `json:"sensorsId"`
}

// FetchStations searches locations within radiusMeters of (lat, lon).
// Sensors for untracked parameters are dropped. Readings are left empty.
func (c *Client) FetchStations(ctx context.Context, lat, lon, radiusMeters float64) ([]*airquality.Station, error) {
	radius := int(radiusMeters)
	if radius <= 0 || radius > MaxRadius {
		radius = MaxRadius
	}

	q := url.Values{}
	q.Set("coordinates", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("radius", strconv.Itoa(radius))
	q.Set("limit", strconv.Itoa(c.limit))

	var result locationsResponse
	if err := c.get(ctx, "/locations?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("fetch locations: %w", err)
	}

	stations := make([]*airquality.Station, 0, len(result.Results))
	for i := range result.Results {
		stations = append(stations, toStation(&result.Results[i]))
	}

	return stations, nil
}

// FetchReadings retrieves the latest value of each sensor at a location.
// Values are converted to µg/m³; values in unknown units are dropped.
func (c *Client) FetchReadings(ctx context.Context, station *airquality.Station) ([]airquality.Reading, error) {
	var result latestResponse
	if err := c.get(ctx, "/locations/"+url.PathEscape(station.ID)+"/latest", &result); err != nil {
		return nil, fmt.Errorf("fetch latest for location %s: %w", station.ID, err)
	}

	readings := make([]airquality.Reading, 0, len(result.Results))
	for _, item := range result.Results {
		sensorID := strconv.FormatInt(item.SensorsID, 10)
		pollutant := station.PollutantFor(sensorID)
		if pollutant == "" {
			continue
		}

		reading := airquality.Reading{SensorID: sensorID}
		if item.Datetime != nil {
			reading.ObservedAt = parseTime(item.Datetime.UTC)
		}
		if item.Value != nil {
			if v, ok := airquality.ToMicrograms(pollutant, *item.Value, station.Units[sensorID]); ok {
				reading.Concentration = airquality.Float(v)
			}
		}

		readings = append(readings, reading)
	}

	return readings, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// toStation converts API location data to a domain Station.
func toStation(l *locationData) *airquality.Station {
	station := &airquality.Station{
		ID:      strconv.FormatInt(l.ID, 10),
		Name:    l.Name,
		Lat:     l.Coordinates.Latitude,
		Lon:     l.Coordinates.Longitude,
		Sensors: make(map[string]aqi.Pollutant, len(l.Sensors)),
		Units:   make(map[string]string, len(l.Sensors)),
	}

	for _, s := range l.Sensors {
		p := aqi.ParsePollutant(s.Parameter.Name)
		if p == "" {
			continue
		}
		id := strconv.FormatInt(s.ID, 10)
		station.Sensors[id] = p
		station.Units[id] = s.Parameter.Units
	}

	if l.DatetimeLast != nil {
		station.LastUpdated = parseTime(l.DatetimeLast.UTC)
	}

	return station
}

// parseTime returns the zero time for missing or malformed timestamps.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
