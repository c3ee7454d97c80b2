package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/airwatch/airwatch/internal/heatmap"
	"github.com/airwatch/airwatch/internal/weather"
)

// Sampler samples the AQI over a viewport. *heatmap.Sampler implements it.
type Sampler interface {
	Sample(ctx context.Context, v heatmap.Viewport, r heatmap.Resolution) ([]heatmap.Cell, error)
}

// WeatherService provides current conditions. *weather.Service implements it.
type WeatherService interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
}

// RefreshJob samples configured regions so that later requests for them are
// served from cache.
type RefreshJob struct {
	config  RefreshConfig
	logger  zerolog.Logger
	sampler Sampler
	weather WeatherService

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRefreshes    int64
	SuccessfulRegions int64
	FailedRegions     int64
	PointsSampled     int64
	WeatherRefreshes  int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Logger  zerolog.Logger
	Sampler Sampler

	// Weather is optional.
	Weather WeatherService
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Regions) == 0 {
		config.Regions = DefaultRegions()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}

	return &RefreshJob{
		config:  config,
		logger:  cfg.Logger,
		sampler: cfg.Sampler,
		weather: cfg.Weather,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalRegions int
	Successful   int
	Failed       int

	// Points is the number of lattice points sampled, NoData how many of
	// them had no station in range.
	Points int
	NoData int

	Errors []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Region string
	Source string
	Error  string
}

type regionResult struct {
	points  int
	noData  int
	weather bool
	errors  []RefreshError
}

// Run refreshes every configured region.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.RunRegions(ctx, nil)
}

// RunRegions refreshes the named regions, or all of them when names is empty.
// A failing region does not stop the others.
func (j *RefreshJob) RunRegions(ctx context.Context, names []string) *RefreshResult {
	regions := j.config.Select(names)

	startTime := time.Now()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalRegions: len(regions),
	}

	j.logger.Info().
		Int("regions", len(regions)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting station refresh")

	results := make([]regionResult, len(regions))

	var g errgroup.Group
	g.SetLimit(j.config.Concurrency)
	for i, region := range regions {
		if ctx.Err() != nil {
			results[i].errors = []RefreshError{{Region: region.Name, Source: "airquality", Error: ctx.Err().Error()}}
			continue
		}
		g.Go(func() error {
			results[i] = j.refreshRegion(ctx, region)
			return nil
		})
	}
	_ = g.Wait()

	for _, rr := range results {
		if len(rr.errors) == 0 {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Points += rr.points
		result.NoData += rr.noData
		result.Errors = append(result.Errors, rr.errors...)
		if rr.weather {
			j.metrics.mu.Lock()
			j.metrics.WeatherRefreshes++
			j.metrics.mu.Unlock()
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("points", result.Points).
		Int("no_data", result.NoData).
		Msg("station refresh completed")

	return result
}

func (j *RefreshJob) refreshRegion(ctx context.Context, region Region) regionResult {
	var rr regionResult

	regionCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.sampler != nil {
		cells, err := j.sampler.Sample(regionCtx, region.Viewport, heatmap.Resolution{StepCount: region.Steps})
		if err != nil {
			j.logger.Warn().Err(err).Str("region", region.Name).Msg("region refresh failed")
			rr.errors = append(rr.errors, RefreshError{Region: region.Name, Source: "airquality", Error: err.Error()})
		} else {
			rr.points = len(cells)
			for _, c := range cells {
				if !c.AQI.HasData() {
					rr.noData++
				}
			}
		}
	}

	if j.config.RefreshWeather && j.weather != nil {
		lat, lon := region.Center()
		if _, err := j.weather.CurrentWeather(regionCtx, lat, lon); err != nil {
			j.logger.Warn().Err(err).Str("region", region.Name).Msg("weather refresh failed")
			rr.errors = append(rr.errors, RefreshError{Region: region.Name, Source: "weather", Error: err.Error()})
		} else {
			rr.weather = true
		}
	}

	return rr
}

// CheckHealth samples a single point at the center of the first region to
// verify provider connectivity. A point without a station counts as healthy.
func (j *RefreshJob) CheckHealth(ctx context.Context) error {
	if j.sampler == nil || len(j.config.Regions) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.sampler.Sample(ctx, j.config.Regions[0].Viewport, heatmap.Resolution{StepCount: 1})
	return err
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulRegions += int64(result.Successful)
	j.metrics.FailedRegions += int64(result.Failed)
	j.metrics.PointsSampled += int64(result.Points)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulRegions:   j.metrics.SuccessfulRegions,
		FailedRegions:       j.metrics.FailedRegions,
		PointsSampled:       j.metrics.PointsSampled,
		WeatherRefreshes:    j.metrics.WeatherRefreshes,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as strings, for
// the status endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]string {
	m := j.GetMetrics()
	snapshot := map[string]string{
		"total_refreshes":       strconv.FormatInt(m.TotalRefreshes, 10),
		"successful_regions":    strconv.FormatInt(m.SuccessfulRegions, 10),
		"failed_regions":        strconv.FormatInt(m.FailedRegions, 10),
		"points_sampled":        strconv.FormatInt(m.PointsSampled, 10),
		"weather_refreshes":     strconv.FormatInt(m.WeatherRefreshes, 10),
		"last_refresh_duration": m.LastRefreshDuration.String(),
	}
	if !m.LastRefreshAt.IsZero() {
		snapshot["last_refresh_at"] = m.LastRefreshAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}
