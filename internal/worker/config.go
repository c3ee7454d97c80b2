// Package worker keeps the station cache warm for frequently viewed regions.
package worker

import (
	"time"

	"github.com/airwatch/airwatch/internal/heatmap"
)

// Region is a named viewport sampled on every refresh.
type Region struct {
	// Name is the human-readable name of the region.
	Name string

	Viewport heatmap.Viewport

	// Steps is the lattice size; a region is sampled as Steps x Steps points.
	Steps int
}

// Center returns the middle of the region's viewport.
func (r Region) Center() (lat, lon float64) {
	return (r.Viewport.North + r.Viewport.South) / 2, (r.Viewport.East + r.Viewport.West) / 2
}

// RefreshConfig holds configuration for the refresh job.
type RefreshConfig struct {
	// Regions are the viewports to warm.
	// If empty, uses DefaultRegions.
	Regions []Region

	// Concurrency is the number of regions refreshed at once.
	// Default: 2
	Concurrency int

	// Timeout bounds the refresh of a single region.
	// Default: 2 minutes
	Timeout time.Duration

	// RefreshWeather also fetches current weather at each region center.
	RefreshWeather bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Regions:        DefaultRegions(),
		Concurrency:    2,
		Timeout:        2 * time.Minute,
		RefreshWeather: true,
	}
}

// DefaultRegions covers the cities the map opens on.
func DefaultRegions() []Region {
	return []Region{
		{
			Name:     "Szczecin",
			Viewport: heatmap.Viewport{North: 53.50, South: 53.35, East: 14.70, West: 14.45},
			Steps:    5,
		},
		{
			Name:     "Warszawa",
			Viewport: heatmap.Viewport{North: 52.35, South: 52.10, East: 21.25, West: 20.85},
			Steps:    5,
		},
	}
}

// TotalPoints returns the number of lattice points across all regions.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, r := range c.Regions {
		total += r.Steps * r.Steps
	}
	return total
}

// Select returns the regions with the given names, in configured order. An
// empty names list selects every region.
func (c RefreshConfig) Select(names []string) []Region {
	if len(names) == 0 {
		return c.Regions
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []Region
	for _, r := range c.Regions {
		if wanted[r.Name] {
			out = append(out, r)
		}
	}
	return out
}
