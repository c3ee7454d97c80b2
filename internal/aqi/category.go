package aqi

// Category is the human-readable severity band of an index value.
type Category string

const (
	CategoryNoData                      Category = "no data"
	CategoryGood                        Category = "Good"
	CategoryModerate                    Category = "Moderate"
	CategoryUnhealthyForSensitiveGroups Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy                   Category = "Unhealthy"
	CategoryVeryUnhealthy               Category = "Very Unhealthy"
	CategoryHazardous                   Category = "Hazardous"
	CategoryOffScale                    Category = "Off Scale"
)

// Band is one contiguous index range and how it is presented.
type Band struct {
	Min            int      `json:"min"`
	Max            int      `json:"max"`
	Category       Category `json:"category"`
	Color          string   `json:"color"`
	Recommendation string   `json:"recommendation"`
}

var bands = []Band{
	{0, 50, CategoryGood, "#00e400",
		"Air quality is great! Perfect for outdoor activities."},
	{51, 100, CategoryModerate, "#ffff00",
		"Air quality is acceptable. Sensitive individuals should consider limiting prolonged outdoor activities."},
	{101, 150, CategoryUnhealthyForSensitiveGroups, "#ff7e00",
		"Members of sensitive groups may experience health effects. General public is less likely to be affected."},
	{151, 200, CategoryUnhealthy, "#ff0000",
		"Everyone may begin to experience health effects. Sensitive groups should avoid prolonged outdoor activities."},
	{201, 300, CategoryVeryUnhealthy, "#8f3f97",
		"Health alert! Everyone should avoid outdoor activities."},
	{301, MaxIndex, CategoryHazardous, "#7e0023",
		"Health warning of emergency conditions. Everyone should stay indoors."},
}

var offScale = Band{
	Min:            MaxIndex + 1,
	Category:       CategoryOffScale,
	Color:          "#7e0023",
	Recommendation: "Readings are beyond the index scale. Stay indoors and follow local emergency guidance.",
}

var noData = Band{
	Category:       CategoryNoData,
	Color:          "#9e9e9e",
	Recommendation: "No recent measurements are available for this location.",
}

// Bands returns the index bands in ascending order, excluding the off-scale
// fallback.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// BandFor returns the band containing index. Negative values are treated as 0
// and anything above MaxIndex is off scale.
func BandFor(index int) Band {
	if index < 0 {
		index = 0
	}
	for _, b := range bands {
		if index <= b.Max {
			return b
		}
	}
	return offScale
}

// CategoryFor maps an index value to its category.
func CategoryFor(index int) Category {
	return BandFor(index).Category
}

// Rank orders categories by severity: no data is -1, Good is 0 and
// Off Scale is the highest.
func (c Category) Rank() int {
	if c == CategoryOffScale {
		return len(bands)
	}
	for i, b := range bands {
		if b.Category == c {
			return i
		}
	}
	return -1
}
