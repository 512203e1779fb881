package protocol

import (
	"encoding/json"
	"math"
	"strings"
)

// Bool normalises a device boolean.
//
// The firmware reports booleans as "true"/"false" strings, as 0/1 integers,
// or as JSON booleans depending on the field and firmware revision. All
// three forms map to the same result:
//   - strings (case-insensitive): "1", "true", "yes", "on" are true;
//     "0", "false", "no", "off" are false
//   - integers and whole floats: non-zero is true
//   - bool: returned as is
//
// Any other input, including "" and nil, returns ok == false. Callers must
// not treat an unrecognised value as false.
func Bool(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return boolFromString(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i != 0, true
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) {
			return false, false
		}
		return f != 0, true
	case float64:
		if t != math.Trunc(t) {
			return false, false
		}
		return t != 0, true
	case float32:
		return Bool(float64(t))
	case int:
		return t != 0, true
	case int8:
		return t != 0, true
	case int16:
		return t != 0, true
	case int32:
		return t != 0, true
	case int64:
		return t != 0, true
	case uint:
		return t != 0, true
	case uint8:
		return t != 0, true
	case uint16:
		return t != 0, true
	case uint32:
		return t != 0, true
	case uint64:
		return t != 0, true
	default:
		return false, false
	}
}

func boolFromString(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Int extracts an integer from a decoded JSON value. Numeric strings are
// accepted because some firmware revisions quote numbers.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
		return 0, false
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		return Int(json.Number(strings.TrimSpace(t)))
	default:
		return 0, false
	}
}

// String extracts a string from a decoded JSON value. Numbers are rendered
// in their JSON form.
func String(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
