// Package handler provides HTTP handlers for the AirWatch API.
package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/airwatch/airwatch/internal/api/models"
)

// queryParams reads typed query parameters and collects field errors.
type queryParams struct {
	r      *http.Request
	errors []models.FieldError
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

// value returns the first non-empty parameter among names.
func (q *queryParams) value(names ...string) (string, bool) {
	values := q.r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

func (q *queryParams) fail(field, code, format string, args ...interface{}) {
	q.errors = append(q.errors, models.FieldError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

// float parses a required float within [min, max]. aliases are accepted in
// place of field.
func (q *queryParams) float(field string, lower, upper float64, aliases ...string) float64 {
	raw, ok := q.value(append([]string{field}, aliases...)...)
	if !ok {
		q.fail(field, models.CodeRequired, "is required")
		return 0
	}
	v, ok := q.finite(field, raw)
	if !ok {
		return 0
	}
	if v < lower || v > upper {
		q.fail(field, models.CodeOutOfRange, "must be between %g and %g", lower, upper)
		return 0
	}
	return v
}

// finite parses raw as a float, rejecting NaN and the infinities that
// strconv.ParseFloat accepts.
func (q *queryParams) finite(field, raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(field, models.CodeInvalid, "must be a number")
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		q.fail(field, models.CodeInvalid, "must be a finite number")
		return 0, false
	}
	return v, true
}

// optionalInt parses an optional positive integer. Zero means unset.
func (q *queryParams) optionalInt(field string) int {
	raw, ok := q.value(field)
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(field, models.CodeInvalid, "must be an integer")
		return 0
	}
	if v <= 0 {
		q.fail(field, models.CodeOutOfRange, "must be positive")
		return 0
	}
	return v
}

// optionalFloat parses an optional positive float. Zero means unset.
func (q *queryParams) optionalFloat(field string) float64 {
	raw, ok := q.value(field)
	if !ok {
		return 0
	}
	v, ok := q.finite(field, raw)
	if !ok {
		return 0
	}
	if v <= 0 {
		q.fail(field, models.CodeOutOfRange, "must be positive")
		return 0
	}
	return v
}

// coordinates reads the latitude/longitude pair. lat and lon are accepted as
// short forms.
func (q *queryParams) coordinates() (lat, lon float64) {
	lat = q.float("latitude", -90, 90, "lat")
	lon = q.float("longitude", -180, 180, "lon")
	return lat, lon
}

func (q *queryParams) valid() bool {
	return len(q.errors) == 0
}
