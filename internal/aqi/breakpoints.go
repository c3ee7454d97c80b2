package aqi

// MaxIndex is the top of the final breakpoint band. Concentrations above a
// pollutant's table are clamped to it.
const MaxIndex = 500

// Breakpoint maps a concentration range onto an index range. Both ends are
// inclusive.
type Breakpoint struct {
	ConcentrationLow  float64 `json:"concentrationLow"`
	ConcentrationHigh float64 `json:"concentrationHigh"`
	IndexLow          int     `json:"indexLow"`
	IndexHigh         int     `json:"indexHigh"`
}

// Concentrations are µg/m³. PM rows follow the EPA 2012 table; NO2 and SO2 use
// the EPA ppb rows converted at 25 °C (x1.88 and x2.62).
var breakpoints = map[Pollutant][]Breakpoint{
	PM25: {
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 350.4, 301, 400},
		{350.5, 500.4, 401, 500},
	},
	PM10: {
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 504, 301, 400},
		{505, 604, 401, 500},
	},
	NO2: {
		{0, 100, 0, 50},
		{101, 188, 51, 100},
		{189, 677, 101, 150},
		{678, 1221, 151, 200},
		{1222, 2349, 201, 300},
		{2350, 3101, 301, 400},
		{3102, 3853, 401, 500},
	},
	SO2: {
		{0, 92, 0, 50},
		{93, 197, 51, 100},
		{198, 485, 101, 150},
		{486, 797, 151, 200},
		{798, 1583, 201, 300},
		{1584, 2107, 301, 400},
		{2108, 2631, 401, 500},
	},
}

// Breakpoints returns a copy of the table for p, or nil if p is unknown.
func Breakpoints(p Pollutant) []Breakpoint {
	rows, ok := breakpoints[p]
	if !ok {
		return nil
	}
	out := make([]Breakpoint, len(rows))
	copy(out, rows)
	return out
}
