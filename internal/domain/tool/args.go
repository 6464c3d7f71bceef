package tool

import (
	"fmt"
	"math"
	"strings"

	"github.com/brandlens/brandlens/pkg/errors"
)

// Args wraps the raw argument map the model produced. Validators use these
// accessors to build typed argument structs.
type Args map[string]any

// String returns a required non-empty string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", errors.NewInvalidInputError(fmt.Sprintf("missing required argument %q", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewInvalidInputError(fmt.Sprintf("argument %q must be a string", key))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.NewInvalidInputError(fmt.Sprintf("argument %q must not be empty", key))
	}
	return s, nil
}

// OptionalString returns a string argument or def when absent.
func (a Args) OptionalString(key, def string) (string, error) {
	if _, ok := a[key]; !ok {
		return def, nil
	}
	return a.String(key)
}

// Int returns an integer argument clamped-checked against [min, max], or def
// when absent. The model tends to emit 10.0 for integer fields, so floats
// with integer-valued magnitudes are rounded before range validation.
func (a Args) Int(key string, min, max, def int) (int, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	n, ok := asInt(v)
	if !ok {
		return 0, errors.NewInvalidInputError(fmt.Sprintf("argument %q must be an integer", key))
	}
	if n < min || n > max {
		return 0, errors.NewInvalidInputError(
			fmt.Sprintf("argument %q must be between %d and %d", key, min, max))
	}
	return n, nil
}

// StringSlice returns an optional list-of-strings argument.
func (a Args) StringSlice(key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("argument %q must be a list of strings", key))
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("argument %q must be a list of strings", key))
		}
		out = append(out, s)
	}
	return out, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		r := math.Round(n)
		if math.Abs(n-r) < 1e-6 {
			return int(r), true
		}
		return 0, false
	case float32:
		return asInt(float64(n))
	default:
		return 0, false
	}
}
