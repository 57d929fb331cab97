package animation

import (
	"strings"
)

// Inputs carries the runtime values, such as switch states and vehicle speed,
// handed to every effect on each tick. Accessors never fail, an absent value or
// one of an unexpected type yields the supplied default.
type Inputs map[string]any

// Bool reads a switch style input. Numbers are true when non-zero and the
// strings "true", "on" and "1" are accepted
func (in Inputs) Bool(name string, def bool) bool {
	v, isPresent := in[name]
	if !isPresent {
		return def
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "true", "on", "1", "yes":
			return true
		case "false", "off", "0", "no", "":
			return false
		}
		return def
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return def
}

// Float reads a numeric input
func (in Inputs) Float(name string, def float64) float64 {
	v, isPresent := in[name]
	if !isPresent {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// String reads a textual input
func (in Inputs) String(name string, def string) string {
	v, isPresent := in[name]
	if !isPresent {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// Has is true when the named input was supplied at all
func (in Inputs) Has(name string) bool {
	_, isPresent := in[name]
	return isPresent
}

// Merge returns a copy of in overlaid with the values from other
func (in Inputs) Merge(other Inputs) Inputs {
	merged := make(Inputs, len(in)+len(other))
	for k, v := range in {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}
