package registry

import (
	"fmt"
	"math"
)

// Args are the inputs of one capability call: the field's options and the
// values of its context parameters for the record being generated.
// Context values shadow options of the same name.
type Args struct {
	Options map[string]any
	Context map[string]any
}

// Get returns the value of key, looking at context values first.
func (a Args) Get(key string) (any, bool) {
	if v, ok := a.Context[key]; ok {
		return v, true
	}
	v, ok := a.Options[key]
	return v, ok
}

// String returns key as a string, or def when it is absent or null.
func (a Args) String(key, def string) (string, error) {
	v, ok := a.Get(key)
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// Int returns key as an int, or def when it is absent or null. Integral
// floats are accepted since JSON decoders produce them.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a.Get(key)
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("argument %q must be an integer, got %v", key, v)
}

// List returns key as a list. It is an error for the key to be absent.
func (a Args) List(key string) ([]any, error) {
	v, ok := a.Get(key)
	if !ok {
		return nil, fmt.Errorf("argument %q is required", key)
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a list, got %T", key, v)
	}
	return l, nil
}

// OptionsOnly wraps a bare options map.
func OptionsOnly(options map[string]any) Args {
	return Args{Options: options}
}
