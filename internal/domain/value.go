package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the only date format accepted anywhere in submission files.
const dateLayout = "2006-01-02"

// ParseValue parses a raw CSV cell as smartly as possible, in order: int,
// float, bool. Unparseable cells (including the "NA" sentinel and empty
// strings) return nil. It never fails — callers that need to reject a nil
// report the problem with full row context.
func ParseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return nil
}

// ParseDate parses a strict YYYY-MM-DD date cell. Callers decide which
// columns are date-typed; this never guesses.
func ParseDate(raw string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// asFloat converts a parsed cell value to float64. The second return is
// false when the value is not numeric (nil, bool, string, date).
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// isFiniteNumber reports whether a parsed cell value is a number that is
// neither NaN nor infinite.
func isFiniteNumber(v any) bool {
	f, ok := asFloat(v)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}
