package aqi

// Concentrations maps a pollutant to its concentration in µg/m³. A missing
// key means no data, which is different from a measured 0.
type Concentrations map[Pollutant]float64

// SubIndexValue is the index contribution of a single pollutant.
type SubIndexValue struct {
	Pollutant Pollutant `json:"pollutant"`
	Index     int       `json:"index"`
}

// Result is the aggregated AQI for one location.
type Result struct {
	Value      int
	Category   Category
	Dominant   Pollutant // "" when there is no data
	SubIndices []SubIndexValue
}

// HasData reports whether any pollutant contributed to the result.
func (r Result) HasData() bool {
	return r.Dominant != ""
}

// Band returns the presentation band for the result.
func (r Result) Band() Band {
	if !r.HasData() {
		return noData
	}
	return BandFor(r.Value)
}

// NoData is the result for a location without any usable concentration.
func NoData() Result {
	return Result{Category: CategoryNoData}
}

// Aggregate reduces concentrations to a single AQI. The dominant pollutant has
// the strictly greatest sub-index; ties go to the earliest pollutant in
// Pollutants. Keys outside the closed pollutant set are ignored.
func Aggregate(concentrations Concentrations) Result {
	result := NoData()
	best := -1

	for _, p := range Pollutants {
		c, ok := concentrations[p]
		if !ok {
			continue
		}

		idx := SubIndex(p, c)
		result.SubIndices = append(result.SubIndices, SubIndexValue{Pollutant: p, Index: idx})

		if idx > best {
			best = idx
			result.Dominant = p
		}
	}

	if best < 0 {
		return result
	}

	result.Value = best
	result.Category = CategoryFor(best)
	return result
}
