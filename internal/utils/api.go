package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of date query parameters.
const DateLayout = "2006-01-02"

// ParseDateParam parses a YYYY-MM-DD query parameter as midnight UTC.
// present is false when the parameter is missing or blank. A malformed value
// is recorded in fieldErrors.
func ParseDateParam(params url.Values, key string, fieldErrors map[string][]string) (time.Time, bool, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := strings.TrimSpace(params.Get(key))
	if val == "" {
		return time.Time{}, false, fieldErrors
	}

	if err := ValidateDate(val); err != nil {
		fieldErrors[key] = append(fieldErrors[key], err.Error())
		return time.Time{}, false, fieldErrors
	}
	d, _ := time.ParseInLocation(DateLayout, val, time.UTC)
	return d, true, fieldErrors
}

// ParseIntParam retrieves an int from the query, returning def when the key
// is absent.
func ParseIntParam(params url.Values, key string, def int, fieldErrors map[string][]string) (int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := strings.TrimSpace(params.Get(key))
	if val == "" {
		return def, fieldErrors
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
		return def, fieldErrors
	}
	return i, fieldErrors
}

// ParseListParam returns the non-blank values of a repeatable parameter and
// whether the parameter appeared at all. "payment=" yields an empty, present
// list.
func ParseListParam(params url.Values, key string) ([]string, bool) {
	raw, present := params[key]
	if !present {
		return nil, false
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = SanitizeInput(v); v != "" {
			values = append(values, v)
		}
	}
	return values, true
}
