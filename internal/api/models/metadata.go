package models

import "github.com/airwatch/airwatch/internal/aqi"

// Enums lists the enumerations used in responses.
type Enums struct {
	Pollutants []aqi.Pollutant `json:"pollutants"`
	Categories []aqi.Category  `json:"categories"`
}

// BreakpointTable is the breakpoint rows of one pollutant.
type BreakpointTable struct {
	Pollutant aqi.Pollutant    `json:"pollutant"`
	Unit      string           `json:"unit"`
	Rows      []aqi.Breakpoint `json:"rows"`
}

// BreakpointsResponse is the full breakpoint table and index bands.
type BreakpointsResponse struct {
	MaxIndex    int               `json:"maxIndex"`
	Breakpoints []BreakpointTable `json:"breakpoints"`
	Bands       []aqi.Band        `json:"bands"`
}
