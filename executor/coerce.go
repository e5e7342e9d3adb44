package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/types"
)

var (
	truthy = map[string]bool{"true": true, "1": true, "yes": true, "on": true, "y": true}
	falsy  = map[string]bool{"false": true, "0": true, "no": true, "off": true, "n": true}
)

// Coerce converts an untyped argument to its declared type. Integers become
// int, numbers float64, objects map[string]any and arrays []any.
func Coerce(name string, value any, t registry.ParamType) (any, error) {
	out, err := coerce(value, t)
	if err != nil {
		return nil, types.Errorf(types.ErrArgument,
			"parameter %q: cannot convert %s to %s: %v", name, describe(value), t, err)
	}
	return out, nil
}

func coerce(value any, t registry.ParamType) (any, error) {
	switch t {
	case registry.TypeString:
		return toString(value)
	case registry.TypeInteger:
		return toInteger(value)
	case registry.TypeNumber:
		return toNumber(value)
	case registry.TypeBoolean:
		return toBoolean(value)
	case registry.TypeObject:
		return toObject(value)
	case registry.TypeArray:
		return toArray(value)
	default:
		return value, nil
	}
}

func toString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return nil, fmt.Errorf("null value")
	case map[string]any, []any:
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return fmt.Sprint(s), nil
	}
}

func toInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return strconv.Atoi(fmt.Sprint(n))
	case float32:
		return wholeFloat(float64(n))
	case float64:
		return wholeFloat(n)
	case json.Number:
		return parseIntText(n.String())
	case string:
		return parseIntText(n)
	default:
		return nil, fmt.Errorf("unsupported value")
	}
}

func parseIntText(s string) (any, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer")
	}
	return wholeFloat(f)
}

func wholeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("not a whole number")
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int cannot hold
	if f >= 1<<63 || f < -(1<<63) {
		return nil, fmt.Errorf("out of range")
	}
	return int(f), nil
}

func toNumber(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return strconv.ParseFloat(fmt.Sprint(n), 64)
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number")
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value")
	}
}

func toBoolean(v any) (any, error) {
	var token string
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		token = strings.ToLower(strings.TrimSpace(b))
	case int, int64, float64, json.Number:
		token = fmt.Sprint(b)
	default:
		return nil, fmt.Errorf("unsupported value")
	}
	switch {
	case truthy[token]:
		return true, nil
	case falsy[token]:
		return false, nil
	}
	return nil, fmt.Errorf("unrecognized boolean token %q", token)
}

func toObject(v any) (any, error) {
	switch o := v.(type) {
	case map[string]any:
		return o, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(o), &out); err != nil || out == nil {
			return nil, fmt.Errorf("not a JSON object")
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("null value")
	default:
		var out map[string]any
		if err := roundTrip(o, &out); err != nil || out == nil {
			return nil, fmt.Errorf("not an object")
		}
		return out, nil
	}
}

func toArray(v any) (any, error) {
	switch a := v.(type) {
	case []any:
		return a, nil
	case string:
		var out []any
		if err := json.Unmarshal([]byte(a), &out); err != nil || out == nil {
			return nil, fmt.Errorf("not a JSON array")
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("null value")
	default:
		var out []any
		if err := roundTrip(a, &out); err != nil || out == nil {
			return nil, fmt.Errorf("not an array")
		}
		return out, nil
	}
}

func roundTrip(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		if len(s) > 40 {
			s = s[:40] + "..."
		}
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%T", v)
}
