package util

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var floatPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// ToNumber coerces a decoded JSON value to a finite float.
// null, empty strings and false map to 0, true maps to 1. ok is false for
// anything that has no finite numeric reading.
func ToNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case json.Number:
		return parseStrict(string(t))
	case string:
		return parseStrict(t)
	default:
		return 0, false
	}
}

// ParseFloatPrefix reads the longest leading decimal number of s, skipping
// leading whitespace. "12.5kg" reads as 12.5; "kg" does not parse.
func ParseFloatPrefix(s string) (float64, bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

// RoundHalfUp rounds to the nearest integer with halves going towards +Inf.
func RoundHalfUp(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		return f + 1
	}
	return f
}

func parseStrict(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if !floatPrefix.MatchString(s) || floatPrefix.FindString(s) != s {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
