package airquality_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/aqi"
)

func stationAt(id string, lat, lon float64) *airquality.Station {
	return &airquality.Station{ID: id, Name: id, Lat: lat, Lon: lon}
}

func TestResolveNearest_Empty(t *testing.T) {
	assert.Nil(t, airquality.ResolveNearest(0, 0, nil))
	assert.Nil(t, airquality.ResolveNearest(0, 0, []*airquality.Station{}))
	assert.Nil(t, airquality.ResolveNearest(0, 0, []*airquality.Station{nil}))
}

func TestResolveNearest_OrderIndependent(t *testing.T) {
	a := stationAt("d5", 5, 0)
	b := stationAt("d1", 0, 1)
	c := stationAt("d3", 3, 0)

	orders := [][]*airquality.Station{
		{a, b, c}, {a, c, b},
		{b, a, c}, {b, c, a},
		{c, a, b}, {c, b, a},
	}

	for _, candidates := range orders {
		nearest := airquality.ResolveNearest(0, 0, candidates)
		require.NotNil(t, nearest)
		assert.Equal(t, "d1", nearest.ID)
	}
}

func TestResolveNearest_TieKeepsFirst(t *testing.T) {
	north := stationAt("north", 1, 0)
	east := stationAt("east", 0, 1)

	assert.Equal(t, "north", airquality.ResolveNearest(0, 0, []*airquality.Station{north, east}).ID)
	assert.Equal(t, "east", airquality.ResolveNearest(0, 0, []*airquality.Station{east, north}).ID)
}

func TestResolveNearest_PlanarDegrees(t *testing.T) {
	// At 60°N one degree of longitude is about half a degree of latitude in
	// meters, but selection compares raw degrees.
	lonStation := stationAt("lon", 60, 1.0)
	latStation := stationAt("lat", 60.9, 0)

	nearest := airquality.ResolveNearest(60, 0, []*airquality.Station{lonStation, latStation})
	assert.Equal(t, "lat", nearest.ID)
}

func TestLatestReadings_PicksMostRecentPerPollutant(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	station := &airquality.Station{
		ID: "s1",
		Sensors: map[string]aqi.Pollutant{
			"pm25-a": aqi.PM25,
			"pm25-b": aqi.PM25,
			"no2":    aqi.NO2,
		},
		Readings: []airquality.Reading{
			{SensorID: "pm25-a", Concentration: airquality.Float(8), ObservedAt: t0},
			{SensorID: "pm25-b", Concentration: airquality.Float(20), ObservedAt: t0.Add(time.Hour)},
			{SensorID: "no2", Concentration: airquality.Float(40), ObservedAt: t0},
		},
	}

	latest := airquality.LatestReadings(station, aqi.Pollutants)

	require.Len(t, latest, 2)
	assert.Equal(t, "pm25-b", latest[aqi.PM25].SensorID)
	assert.Equal(t, 40.0, *latest[aqi.NO2].Concentration)
	_, ok := latest[aqi.PM10]
	assert.False(t, ok)
}

func TestLatestReadings_MissingTimestampIsOldest(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	station := &airquality.Station{
		Sensors: map[string]aqi.Pollutant{"a": aqi.PM10, "b": aqi.PM10, "c": aqi.SO2, "d": aqi.SO2},
		Readings: []airquality.Reading{
			{SensorID: "a", Concentration: airquality.Float(1)},
			{SensorID: "b", Concentration: airquality.Float(2), ObservedAt: t0},
			{SensorID: "c", Concentration: airquality.Float(3)},
			{SensorID: "d", Concentration: airquality.Float(4)},
		},
	}

	latest := airquality.LatestReadings(station, aqi.Pollutants)

	assert.Equal(t, "b", latest[aqi.PM10].SensorID)
	// Neither has a timestamp, the first one wins.
	assert.Equal(t, "c", latest[aqi.SO2].SensorID)
}

func TestLatestReadings_EqualTimestampsKeepFirst(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	station := &airquality.Station{
		Sensors: map[string]aqi.Pollutant{"a": aqi.NO2, "b": aqi.NO2},
		Readings: []airquality.Reading{
			{SensorID: "a", Concentration: airquality.Float(10), ObservedAt: t0},
			{SensorID: "b", Concentration: airquality.Float(90), ObservedAt: t0},
		},
	}

	assert.Equal(t, "a", airquality.LatestReadings(station, aqi.Pollutants)[aqi.NO2].SensorID)
}

func TestLatestReadings_RespectsRequestedPollutants(t *testing.T) {
	station := &airquality.Station{
		Sensors: map[string]aqi.Pollutant{"a": aqi.NO2, "b": aqi.PM25},
		Readings: []airquality.Reading{
			{SensorID: "a", Concentration: airquality.Float(10)},
			{SensorID: "b", Concentration: airquality.Float(10)},
			{SensorID: "unknown", Concentration: airquality.Float(10)},
		},
	}

	latest := airquality.LatestReadings(station, []aqi.Pollutant{aqi.PM25})
	require.Len(t, latest, 1)
	assert.Equal(t, "b", latest[aqi.PM25].SensorID)

	assert.Empty(t, airquality.LatestReadings(nil, aqi.Pollutants))
}

func TestEvaluate(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	near := &airquality.Station{
		ID:      "near",
		Lat:     52.37,
		Lon:     4.89,
		Sensors: map[string]aqi.Pollutant{"pm": aqi.PM25, "no2": aqi.NO2},
		Readings: []airquality.Reading{
			{SensorID: "pm", Concentration: airquality.Float(10), ObservedAt: t0},
			{SensorID: "no2", Concentration: airquality.Float(500), ObservedAt: t0},
		},
	}
	far := stationAt("far", 52.5, 5.2)

	result, err := airquality.Evaluate(52.36, 4.88, []*airquality.Station{far, near})
	require.NoError(t, err)

	assert.Equal(t, "near", result.Station.ID)
	assert.Equal(t, aqi.NO2, result.AQI.Dominant)
	assert.Equal(t, aqi.CategoryUnhealthyForSensitiveGroups, result.AQI.Category)
	assert.Greater(t, result.DistanceMeters, 0.0)
	assert.Len(t, result.Concentrations(), 2)
}

func TestEvaluate_NullReadingIsAbsent(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	station := &airquality.Station{
		ID:      "s",
		Sensors: map[string]aqi.Pollutant{"old": aqi.PM25, "new": aqi.PM25},
		Readings: []airquality.Reading{
			{SensorID: "old", Concentration: airquality.Float(80), ObservedAt: t0},
			{SensorID: "new", ObservedAt: t0.Add(time.Hour)},
		},
	}

	result, err := airquality.Evaluate(0, 0, []*airquality.Station{station})
	require.NoError(t, err)

	// The most recent reading has no value, so PM2.5 has no data.
	assert.False(t, result.AQI.HasData())
	assert.Equal(t, aqi.CategoryNoData, result.AQI.Category)
}

func TestEvaluate_NoStations(t *testing.T) {
	_, err := airquality.Evaluate(0, 0, nil)
	assert.ErrorIs(t, err, airquality.ErrStationNotFound)
}

func TestHaversineDistance(t *testing.T) {
	// Amsterdam to Rotterdam is about 57 km.
	d := airquality.HaversineDistance(52.3676, 4.9041, 51.9244, 4.4777)
	assert.InDelta(t, 57000, d, 2000)
	assert.Equal(t, 0.0, airquality.HaversineDistance(1, 1, 1, 1))
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, airquality.ValidateCoordinates(0, 0))
	assert.NoError(t, airquality.ValidateCoordinates(-90, 180))
	assert.ErrorIs(t, airquality.ValidateCoordinates(91, 0), airquality.ErrInvalidCoordinates)
	assert.ErrorIs(t, airquality.ValidateCoordinates(0, -181), airquality.ErrInvalidCoordinates)
	assert.ErrorIs(t, airquality.ValidateCoordinates(math.NaN(), 0), airquality.ErrInvalidCoordinates)
	assert.ErrorIs(t, airquality.ValidateCoordinates(0, math.NaN()), airquality.ErrInvalidCoordinates)
	assert.ErrorIs(t, airquality.ValidateCoordinates(math.Inf(1), 0), airquality.ErrInvalidCoordinates)
}

func TestStation_Pollutants(t *testing.T) {
	station := &airquality.Station{
		Sensors: map[string]aqi.Pollutant{"x": aqi.SO2, "y": aqi.PM25, "z": aqi.PM25},
	}
	assert.Equal(t, []aqi.Pollutant{aqi.PM25, aqi.SO2}, station.Pollutants())
	assert.Equal(t, aqi.Pollutant(""), station.PollutantFor("missing"))
}
