package check

import (
	"math"
	"strconv"
	"strings"
)

// asFloat returns v as a float64 if it is a YAML number. NaN is not a
// number for this purpose.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}

	return 0, false
}

// asInt returns v as an int64 if it is a YAML integer.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}

		return int64(n), true
	}

	return 0, false
}

// validIndex reports whether v selects batches: an integer, an integer
// string, or a slice string "start:stop[:step]" whose parts are empty or
// integers and whose step is not zero.
func validIndex(v any) (bool, string) {
	if v == nil {
		return true, ""
	}
	if _, ok := asInt(v); ok {
		return true, ""
	}

	s, ok := v.(string)
	if !ok {
		return false, "must be an integer or a slice string"
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")

	if _, err := strconv.Atoi(s); err == nil {
		return true, ""
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return false, "is neither an integer nor a slice"
	}

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return false, "slice part " + strconv.Quote(part) + " is not an integer"
		}
		if i == 2 && n == 0 {
			return false, "slice step cannot be zero"
		}
	}

	return true, ""
}
