package aqi

import "math"

// roundingSlack absorbs float noise just above an integer index so that an
// interior concentration mapping exactly onto an index is not bumped to the
// next one. It never applies at the row's IndexLow: any concentration strictly
// above ConcentrationLow reports at least IndexLow+1.
const roundingSlack = 1e-9

// SubIndex converts a concentration (µg/m³) into the pollutant's index.
//
// The result is rounded up so an index is never under-reported. Unknown
// pollutants contribute 0. Concentrations above the table return MaxIndex,
// and a value falling in the rounding gap between two rows takes the upper
// row's IndexLow.
func SubIndex(p Pollutant, concentration float64) int {
	rows, ok := breakpoints[p]
	if !ok || len(rows) == 0 {
		return 0
	}
	if concentration < 0 || math.IsNaN(concentration) {
		concentration = 0
	}

	for _, row := range rows {
		if concentration > row.ConcentrationHigh {
			continue
		}
		if concentration <= row.ConcentrationLow {
			return row.IndexLow
		}
		return interpolate(row, concentration)
	}

	return MaxIndex
}

func interpolate(row Breakpoint, c float64) int {
	indexSpan := float64(row.IndexHigh - row.IndexLow)
	concSpan := row.ConcentrationHigh - row.ConcentrationLow
	if concSpan <= 0 || c >= row.ConcentrationHigh {
		return row.IndexHigh
	}

	value := indexSpan*(c-row.ConcentrationLow)/concSpan + float64(row.IndexLow)
	index := int(math.Ceil(value))
	if floor := math.Floor(value); value-floor < roundingSlack && int(floor) > row.IndexLow {
		index = int(floor)
	}
	if index > row.IndexHigh {
		index = row.IndexHigh
	}
	return index
}
