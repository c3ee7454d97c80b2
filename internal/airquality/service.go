package airquality

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/airwatch/airwatch/internal/telemetry"
)

// Provider fetches candidate stations from an external data source.
type Provider interface {
	// FetchStations returns stations within radiusMeters of (lat, lon) with
	// their sensors. Readings may be left empty and fetched on demand.
	FetchStations(ctx context.Context, lat, lon, radiusMeters float64) ([]*Station, error)

	// FetchReadings returns the latest reading of each sensor of a station.
	FetchReadings(ctx context.Context, station *Station) ([]Reading, error)

	// Name returns the provider name for logging.
	Name() string
}

// Cache is an optional shared store consulted after the in-process cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]*Station, bool, error)
	Set(ctx context.Context, key string, stations []*Station, ttl time.Duration) error
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the station data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Cache is an optional shared cache (e.g. Redis).
	Cache Cache

	// Metrics records provider calls and cache hits. Optional.
	Metrics *telemetry.ProviderMetrics

	// SearchRadius is the station search radius in meters (default: 10km).
	SearchRadius float64

	// CacheTTL is how long a station lookup is reused (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.01).
	// Query points within the same cell share one station lookup.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// FetchTimeout bounds a shared provider fetch (default: 30 seconds). The
	// fetch is detached from the caller that started it, so a cancelled
	// request does not fail the others waiting on the same key.
	FetchTimeout time.Duration
}

// Service looks up stations around query points, with caching, and computes
// point AQI values from them. It is safe for concurrent use.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	shared          Cache
	metrics         *telemetry.ProviderMetrics
	searchRadius    float64
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	fetchTimeout    time.Duration

	group singleflight.Group

	mu              sync.RWMutex
	cache           map[string]*cachedStations
	readings        map[string]*cachedReadings
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedStations struct {
	stations  []*Station
	fetchedAt time.Time
	expiresAt time.Time
}

type cachedReadings struct {
	readings  []Reading
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	searchRadius := cfg.SearchRadius
	if searchRadius <= 0 {
		searchRadius = 10000
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize <= 0 {
		cacheGridSize = 0.01 // ~1.1km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		shared:          cfg.Cache,
		metrics:         cfg.Metrics,
		searchRadius:    searchRadius,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		fetchTimeout:    fetchTimeout,
		cache:           make(map[string]*cachedStations),
		readings:        make(map[string]*cachedReadings),
		cleanupInterval: 5 * time.Minute,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// SearchRadius returns the station search radius in meters.
func (s *Service) SearchRadius() float64 {
	return s.searchRadius
}

// NearbyStations returns candidate stations around a point.
func (s *Service) NearbyStations(ctx context.Context, lat, lon float64) ([]*Station, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.recordCacheHit("fetch_stations")
		return cached.stations, nil
	}
	s.mu.RUnlock()

	s.recordCacheMiss("fetch_stations")

	// Concurrent lookups for the same cell (typical for heatmaps) share one
	// provider call.
	v, err := s.do(ctx, key, func(fctx context.Context) (interface{}, error) {
		return s.fetchStations(fctx, lat, lon, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Station), nil
}

// PointAQI resolves the nearest station to (lat, lon), loads its latest
// readings and aggregates them. It returns ErrStationNotFound when no station
// is in range.
func (s *Service) PointAQI(ctx context.Context, lat, lon float64) (*PointResult, error) {
	stations, err := s.NearbyStations(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	nearest := ResolveNearest(lat, lon, stations)
	if nearest == nil {
		return nil, ErrStationNotFound
	}

	readings, err := s.Readings(ctx, nearest)
	if err != nil {
		return nil, err
	}

	// Cached stations are shared, so attach readings to a copy.
	station := *nearest
	station.Readings = readings
	return Summarize(lat, lon, &station), nil
}

// Readings returns the latest readings of a station. Readings already
// attached by the provider are used as is.
func (s *Service) Readings(ctx context.Context, station *Station) ([]Reading, error) {
	if len(station.Readings) > 0 {
		return station.Readings, nil
	}

	key := "readings:" + s.provider.Name() + ":" + station.ID

	s.mu.RLock()
	if cached, ok := s.readings[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.recordCacheHit("fetch_readings")
		return cached.readings, nil
	}
	s.mu.RUnlock()

	s.recordCacheMiss("fetch_readings")

	v, err := s.do(ctx, key, func(fctx context.Context) (interface{}, error) {
		return s.fetchReadings(fctx, station, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Reading), nil
}

// do runs fn once per key across concurrent callers. fn gets a context that
// keeps the caller's values but not its cancellation; each caller stops
// waiting when its own ctx is done.
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

// fetchStations consults the shared cache, then the provider, and updates
// the local cache.
func (s *Service) fetchStations(ctx context.Context, lat, lon float64, key string) ([]*Station, error) {
	if s.shared != nil {
		stations, ok, err := s.shared.Get(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("shared station cache read failed")
		} else if ok {
			s.store(key, stations)
			return stations, nil
		}
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching stations from provider")

	start := time.Now()
	stations, err := s.provider.FetchStations(ctx, lat, lon, s.searchRadius)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), "fetch_stations", time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch stations")

		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale station data due to provider error")
			return cached.stations, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.store(key, stations)

	if s.shared != nil {
		if err := s.shared.Set(ctx, key, stations, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("shared station cache write failed")
		}
	}

	return stations, nil
}

func (s *Service) fetchReadings(ctx context.Context, station *Station, key string) ([]Reading, error) {
	start := time.Now()
	readings, err := s.provider.FetchReadings(ctx, station)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), "fetch_readings", time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("station_id", station.ID).
			Msg("failed to fetch station readings")

		s.mu.RLock()
		cached, ok := s.readings[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Str("station_id", station.ID).
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale readings due to provider error")
			return cached.readings, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.mu.Lock()
	now := time.Now()
	s.readings[key] = &cachedReadings{
		readings:  readings,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.mu.Unlock()

	return readings, nil
}

func (s *Service) store(key string, stations []*Station) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.cache[key] = &cachedStations{
		stations:  stations,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.cleanupIfNeeded()
}

// cacheKey groups nearby points into grid cells.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%s:%.4f:%.4f", s.provider.Name(), gridLat, gridLon)
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
	for key, cached := range s.readings {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.readings, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired station cache entries")
	}
}

func (s *Service) recordCacheHit(operation string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(s.provider.Name(), operation)
	}
}

func (s *Service) recordCacheMiss(operation string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), operation)
	}
}

// InvalidateCache clears all cached lookups.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedStations)
	s.readings = make(map[string]*cachedReadings)
}

// CacheStats returns information about the current cache state.
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

	return CacheStats{
		Entries:      len(s.cache),
		FreshEntries: fresh,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Provider     string
}
