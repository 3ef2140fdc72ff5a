package loader

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeURN turns a raw identifier cell into the canonical URN.
// Numeric representations collapse to their truncated integer ("123.0",
// " 123 " and "123" all yield "123"), including values beyond int64; anything
// else is trimmed. Empty and
// "nan" cells have no identifier.
func NormalizeURN(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		t := math.Trunc(f)
		if v, ok := toInt64(t); ok {
			return strconv.FormatInt(v, 10), true
		}
		return strconv.FormatFloat(t, 'f', 0, 64), true
	}
	return s, true
}
