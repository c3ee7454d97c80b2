package weather

type wmoEntry struct {
	condition   Condition
	description string
}

// WMO weather interpretation codes as used by Open-Meteo.
var wmoCodes = map[int]wmoEntry{
	0:  {ConditionClear, "Clear sky"},
	1:  {ConditionClear, "Mainly clear"},
	2:  {ConditionClouds, "Partly cloudy"},
	3:  {ConditionClouds, "Overcast"},
	45: {ConditionFog, "Fog"},
	48: {ConditionFog, "Depositing rime fog"},
	51: {ConditionDrizzle, "Light drizzle"},
	53: {ConditionDrizzle, "Moderate drizzle"},
	55: {ConditionDrizzle, "Dense drizzle"},
	56: {ConditionDrizzle, "Light freezing drizzle"},
	57: {ConditionDrizzle, "Dense freezing drizzle"},
	61: {ConditionRain, "Slight rain"},
	63: {ConditionRain, "Moderate rain"},
	65: {ConditionRain, "Heavy rain"},
	66: {ConditionRain, "Light freezing rain"},
	67: {ConditionRain, "Heavy freezing rain"},
	71: {ConditionSnow, "Slight snowfall"},
	73: {ConditionSnow, "Moderate snowfall"},
	75: {ConditionSnow, "Heavy snowfall"},
	77: {ConditionSnow, "Snow grains"},
	80: {ConditionRain, "Slight rain showers"},
	81: {ConditionRain, "Moderate rain showers"},
	82: {ConditionRain, "Violent rain showers"},
	85: {ConditionSnow, "Slight snow showers"},
	86: {ConditionSnow, "Heavy snow showers"},
	95: {ConditionThunderstorm, "Thunderstorm"},
	96: {ConditionThunderstorm, "Thunderstorm with slight hail"},
	99: {ConditionThunderstorm, "Thunderstorm with heavy hail"},
}

// DescribeCode maps a WMO weather code to a condition and a description.
// Unlisted codes are ConditionUnknown.
func DescribeCode(code int) (Condition, string) {
	if e, ok := wmoCodes[code]; ok {
		return e.condition, e.description
	}
	return ConditionUnknown, "Unknown conditions"
}
