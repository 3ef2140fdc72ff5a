package loader

import (
	"math"
	"strconv"
	"strings"
)

// missing reports whether a raw cell carries no value.
func missing(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == "" || strings.EqualFold(s, "nan")
}

// ParseFloat converts a feed cell to a float. Empty, "nan" and unparseable
// cells yield nil; it never fails.
func ParseFloat(raw string) *float64 {
	if missing(raw) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseInt converts a feed cell to an int by way of a float, so "420.0"
// yields 420. Values outside the int64 range yield nil.
func ParseInt(raw string) *int {
	f := ParseFloat(raw)
	if f == nil {
		return nil
	}
	n, ok := toInt64(math.Trunc(*f))
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

// toInt64 converts an integral float, reporting false when it does not fit.
// 2^63 is exactly representable; every float below it converts safely.
func toInt64(t float64) (int64, bool) {
	if t < math.MinInt64 || t >= -math.MinInt64 {
		return 0, false
	}
	return int64(t), true
}
