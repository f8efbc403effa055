package utils

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
)

// offsetSuffix matches a trailing "+HH:MM" or "-HH:MM" zone offset.
var offsetSuffix = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)

// ParseTimestamp converts a backend timestamp into epoch milliseconds.
//
// Strings ending in "Z" or a ±HH:MM offset are parsed as absolute times.
// Any other string is a naive timestamp and is read as UTC, so a string of
// digits does not parse. Numbers are already epoch milliseconds and are
// returned as-is. Anything that cannot
// be parsed yields 0 so it sorts first instead of failing the caller.
func ParseTimestamp(v any) int64 {
	switch ts := v.(type) {
	case nil:
		return 0
	case int64:
		return ts
	case int:
		return int64(ts)
	case int32:
		return int64(ts)
	case float64:
		return floatMillis(ts)
	case float32:
		return floatMillis(float64(ts))
	case json.Number:
		if n, err := ts.Int64(); err == nil {
			return n
		}
		f, err := ts.Float64()
		if err != nil {
			return 0
		}
		return floatMillis(f)
	case time.Time:
		if ts.IsZero() {
			return 0
		}
		return ts.UnixMilli()
	case string:
		return parseTimestampString(ts)
	default:
		return 0
	}
}

func parseTimestampString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	normalized := strings.Replace(s, " ", "T", 1)
	if !strings.HasSuffix(normalized, "Z") && !offsetSuffix.MatchString(normalized) {
		normalized += "Z"
	}

	t, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

func floatMillis(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}
