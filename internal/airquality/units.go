package airquality

import (
	"strings"

	"github.com/airwatch/airwatch/internal/aqi"
)

// Molar volume of an ideal gas at 25 °C and 1 atm, in litres.
const molarVolume = 24.45

var molecularWeight = map[aqi.Pollutant]float64{
	aqi.NO2: 46.0055,
	aqi.SO2: 64.066,
}

// ToMicrograms converts a concentration reported in unit to µg/m³. Volume
// ratios are only convertible for gases. ok is false for unknown units.
func ToMicrograms(p aqi.Pollutant, value float64, unit string) (float64, bool) {
	switch normalizeUnit(unit) {
	case "µg/m³", "":
		return value, true
	case "mg/m³":
		return value * 1000, true
	case "ppm":
		mw, ok := molecularWeight[p]
		if !ok {
			return 0, false
		}
		return value * 1000 * mw / molarVolume, true
	case "ppb":
		mw, ok := molecularWeight[p]
		if !ok {
			return 0, false
		}
		return value * mw / molarVolume, true
	default:
		return 0, false
	}
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.ReplaceAll(u, "μ", "µ") // greek mu vs micro sign
	switch u {
	case "µg/m3", "ug/m3", "ug/m³", "µg/m³":
		return "µg/m³"
	case "mg/m3", "mg/m³":
		return "mg/m³"
	default:
		return u
	}
}
