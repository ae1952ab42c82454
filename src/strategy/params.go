package strategy

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Params is the loosely typed parameter map stored per symbol. Values come
// from JSON, so numbers usually arrive as float64.
type Params map[string]any

func (p Params) float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %s: %q is not a number", name, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parameter %s: unsupported type %T", name, v)
	}
}

func (p Params) int(name string, def int) (int, error) {
	f, err := p.float(name, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parameter %s: %v is not an integer", name, f)
	}
	return int(f), nil
}

func (p Params) bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("parameter %s: %q is not a boolean", name, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("parameter %s: unsupported type %T", name, v)
	}
}

func positiveInt(name string, v int) error {
	if v < 1 {
		return fmt.Errorf("parameter %s must be >= 1, got %d", name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if v < 0 || math.IsNaN(v) {
		return fmt.Errorf("parameter %s must be >= 0, got %v", name, v)
	}
	return nil
}

func trailingParam(p Params, def float64) (float64, error) {
	pct, err := p.float(ParamTrailingStopPct, def)
	if err != nil {
		return 0, err
	}
	if pct < 0 || pct >= 100 {
		return 0, fmt.Errorf("parameter %s must be in [0, 100), got %v", ParamTrailingStopPct, pct)
	}
	return pct, nil
}

func trailingSpec(def float64) ParamSpec {
	return ParamSpec{Name: ParamTrailingStopPct, Type: "float", Default: def, Description: "Trailing stop distance below the high-water price (%)"}
}
