package collectors

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Vendor JSON mixes numbers, numeric strings, percent strings and sentinel
// values ("-", "buy", "") inside the same field across rows. These helpers
// normalize that mess; a false second return means the field is absent or a
// sentinel and the caller decides whether to skip the record.

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(t, "%"))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" || s == "-" || s == "buy" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func floatOr(v any, fallback float64) float64 {
	if f, ok := asFloat(v); ok {
		return f
	}
	return fallback
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
