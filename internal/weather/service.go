package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// CurrentWeather fetches current conditions for a location.
	CurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)

	// Forecast fetches the hourly forecast for a location.
	Forecast(ctx context.Context, lat, lon float64) (*Forecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache weather data (default: 10 minutes).
	// Weather changes slower than AQ data, so longer cache is acceptable.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// FetchTimeout bounds a provider fetch shared by concurrent callers
	// (default: 30 seconds).
	FetchTimeout time.Duration
}

// Service provides weather data with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	fetchTimeout    time.Duration

	group singleflight.Group

	mu              sync.RWMutex
	cache           map[string]*cachedObservation
	forecasts       map[string]*cachedForecast
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedObservation struct {
	observation *Observation
	fetchedAt   time.Time
	expiresAt   time.Time
}

type cachedForecast struct {
	forecast  *Forecast
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		fetchTimeout:    fetchTimeout,
		cache:           make(map[string]*cachedObservation),
		forecasts:       make(map[string]*cachedForecast),
		cleanupInterval: 5 * time.Minute,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// CurrentWeather returns current weather for a location.
// Uses cached data if available and not expired.
func (s *Service) CurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.observation, nil
	}
	s.mu.RUnlock()

	v, err := s.do(ctx, "current:"+key, func(fctx context.Context) (interface{}, error) {
		return s.fetch(fctx, lat, lon, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Observation), nil
}

// Forecast returns the hourly forecast for a location, sharing the current
// weather's grid cells and TTLs.
func (s *Service) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.forecasts[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.forecast, nil
	}
	s.mu.RUnlock()

	v, err := s.do(ctx, "forecast:"+key, func(fctx context.Context) (interface{}, error) {
		return s.fetchForecast(fctx, lat, lon, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Forecast), nil
}

// do runs fn once per key across concurrent callers. The fetch outlives the
// caller that started it; each caller stops waiting when its own ctx is done.
func (s *Service) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return fn(fctx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch calls the provider and updates the cache.
func (s *Service) fetch(ctx context.Context, lat, lon float64, key string) (*Observation, error) {
	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	obs, err := s.provider.CurrentWeather(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch weather")

		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale weather data due to provider error")
			return cached.observation, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.cache[key] = &cachedObservation{
		observation: obs,
		fetchedAt:   now,
		expiresAt:   now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded()

	return obs, nil
}

// fetchForecast calls the provider and updates the forecast cache.
func (s *Service) fetchForecast(ctx context.Context, lat, lon float64, key string) (*Forecast, error) {
	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	forecast, err := s.provider.Forecast(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch forecast")

		s.mu.RLock()
		cached, ok := s.forecasts[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale forecast data due to provider error")
			return cached.forecast, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.forecasts[key] = &cachedForecast{
		forecast:  forecast,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded()

	return forecast, nil
}

// cacheKey groups nearby points into grid cells to reduce API calls.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// cleanupIfNeeded removes entries past the stale window. Caller holds mu.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}
	for key, cached := range s.forecasts {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.forecasts, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedObservation)
	s.forecasts = make(map[string]*cachedForecast)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	forecastFresh := 0
	for _, c := range s.forecasts {
		if now.Before(c.expiresAt) {
			forecastFresh++
		}
	}

	return CacheStats{
		Entries:              len(s.cache),
		FreshEntries:         fresh,
		ForecastEntries:      len(s.forecasts),
		ForecastFreshEntries: forecastFresh,
		Provider:             s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries              int
	FreshEntries         int
	ForecastEntries      int
	ForecastFreshEntries int
	Provider             string
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
