package strategy

import (
	"fmt"
	"math"
)

// Parameter maps come from YAML (ints) or JSON (float64), so numeric lookups
// accept any Go numeric type.

func intParam(params map[string]any, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case float32:
		return floatToInt(key, float64(v))
	case float64:
		return floatToInt(key, v)
	default:
		return 0, fmt.Errorf("parameter %s: expected integer, got %T", key, raw)
	}
}

func floatToInt(key string, v float64) (int, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("parameter %s: expected integer, got %v", key, v)
	}
	return int(v), nil
}

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %s: expected number, got %T", key, raw)
	}
}

func stringParam(params map[string]any, key string, def string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s: expected string, got %T", key, raw)
	}
	return s, nil
}

func requirePositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, v)
	}
	return nil
}

func requireOrdered(shortName string, short int, longName string, long int) error {
	if short >= long {
		return fmt.Errorf("%s (%d) must be less than %s (%d)", shortName, short, longName, long)
	}
	return nil
}
