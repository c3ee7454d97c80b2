package weather_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatch/airwatch/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu            sync.Mutex
	callCount     int
	forecastCalls int
	delay         time.Duration
	err           error
}

func newMockProvider() *mockProvider {
	return &mockProvider{}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) CurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	m.mu.Lock()
	m.callCount++
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	condition, description := weather.DescribeCode(0)
	return &weather.Observation{
		Lat:         lat,
		Lon:         lon,
		Temperature: 20.0,
		Humidity:    65.0,
		WindSpeed:   5.0,
		Condition:   condition,
		Description: description,
		ObservedAt:  time.Now(),
		FetchedAt:   time.Now(),
	}, nil
}

func (m *mockProvider) Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	m.mu.Lock()
	m.forecastCalls++
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	start := time.Now().Truncate(time.Hour)
	hours := make([]weather.HourlyForecast, 3)
	for i := range hours {
		hours[i] = weather.HourlyForecast{
			Time:        start.Add(time.Duration(i) * time.Hour),
			Temperature: 18 + float64(i),
			WindSpeed:   2,
		}
	}
	return &weather.Forecast{Lat: lat, Lon: lon, Hours: hours, FetchedAt: time.Now()}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockProvider) getForecastCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forecastCalls
}

func (m *mockProvider) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func TestService_CurrentWeather(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	obs, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 52.370, obs.Lat)
	assert.Equal(t, 4.895, obs.Lon)
	assert.Equal(t, 20.0, obs.Temperature)
	assert.Equal(t, weather.ConditionClear, obs.Condition)
	assert.Equal(t, "mock", service.ProviderName())
}

func TestService_CurrentWeather_Caching(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	_, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	_, err = service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.getCallCount())
}

func TestService_CurrentWeather_CacheGriding(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:      provider,
		Logger:        zerolog.Nop(),
		CacheTTL:      5 * time.Minute,
		CacheGridSize: 0.1, // ~11km grid
	})

	// Two nearby points in same grid cell
	_, err := service.CurrentWeather(context.Background(), 52.371, 4.891)
	require.NoError(t, err)

	_, err = service.CurrentWeather(context.Background(), 52.375, 4.895)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.getCallCount())

	// Point in different grid cell
	_, err = service.CurrentWeather(context.Background(), 52.5, 4.9)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_CurrentWeather_ConcurrentCallsShareFetch(t *testing.T) {
	provider := newMockProvider()
	provider.delay = 50 * time.Millisecond
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CurrentWeather(context.Background(), 53.43, 14.55)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.getCallCount())
}

func TestService_CurrentWeather_CancelledCallerDoesNotFailOthers(t *testing.T) {
	provider := newMockProvider()
	provider.delay = 200 * time.Millisecond
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := service.CurrentWeather(ctxA, 52.370, 4.895)
		errA <- err
	}()

	// B joins A's in-flight fetch, then A goes away.
	time.Sleep(20 * time.Millisecond)
	errB := make(chan error, 1)
	go func() {
		_, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)
	assert.NoError(t, <-errB)
	assert.Equal(t, 1, provider.getCallCount())

	// The shared fetch completed and was cached.
	assert.Equal(t, 1, service.CacheStats().FreshEntries)
}

func TestService_CurrentWeather_InvalidCoordinates(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"lat too high", 91.0, 4.895},
		{"lat too low", -91.0, 4.895},
		{"lon too high", 52.370, 181.0},
		{"lon too low", 52.370, -181.0},
		{"lat NaN", math.NaN(), 4.895},
		{"lon NaN", 52.370, math.NaN()},
		{"lat infinite", math.Inf(-1), 4.895},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CurrentWeather(context.Background(), tt.lat, tt.lon)
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
		})
	}
}

func TestService_CurrentWeather_ProviderError(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api error"))

	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_CurrentWeather_StaleOnError(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        100 * time.Millisecond,
		StaleIfErrorTTL: 1 * time.Hour,
	})

	obs1, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	require.NotNil(t, obs1)

	// Wait for cache to expire
	time.Sleep(150 * time.Millisecond)

	provider.setError(errors.New("api error"))

	obs2, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	assert.Same(t, obs1, obs2)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	_, err := service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.CurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_CacheStats(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, "mock", stats.Provider)

	_, _ = service.CurrentWeather(context.Background(), 52.370, 4.895)

	stats = service.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 1, stats.FreshEntries)
}

func TestService_Forecast(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	forecast, err := service.Forecast(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	require.Len(t, forecast.Hours, 3)
	assert.Equal(t, 18.0, forecast.Hours[0].Temperature)

	_, err = service.Forecast(context.Background(), 52.371, 4.891)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.getForecastCalls())

	// Forecast and current weather are cached separately.
	assert.Equal(t, 0, provider.getCallCount())

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 1, stats.ForecastEntries)
	assert.Equal(t, 1, stats.ForecastFreshEntries)
}

func TestService_Forecast_StaleOnError(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        50 * time.Millisecond,
		StaleIfErrorTTL: time.Hour,
	})

	first, err := service.Forecast(context.Background(), 52.370, 4.895)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	provider.setError(errors.New("api error"))

	second, err := service.Forecast(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestService_Forecast_ProviderError(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api error"))
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.Forecast(context.Background(), 52.370, 4.895)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)

	_, err = service.Forecast(context.Background(), math.NaN(), 4.895)
	assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
}
