// Package reshape converts between the flat, per-field columns produced by
// generation and nested, per-record documents.
package reshape

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/fakegridgo/internal/schema"
)

// Nest expands dotted keys into nested maps: {"a.b": 1} becomes
// {"a": {"b": 1}}.
func Nest(flat map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	for _, key := range sortedKeys(flat) {
		parts := strings.Split(key, schema.PathSeparator)
		level := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := level[part]
			if !ok {
				m := make(map[string]any)
				level[part] = m
				level = m
				continue
			}
			m, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("key %q conflicts with value at %q", key, part)
			}
			level = m
		}
		leaf := parts[len(parts)-1]
		if _, ok := level[leaf]; ok {
			return nil, fmt.Errorf("key %q conflicts with a nested group", key)
		}
		level[leaf] = flat[key]
	}
	return out, nil
}

// Records demultiplexes columns of length num into num nested records.
func Records(columns map[string][]any, num int) ([]map[string]any, error) {
	out := make([]map[string]any, num)
	for i := range num {
		flat := make(map[string]any, len(columns))
		for id, column := range columns {
			if len(column) != num {
				return nil, fmt.Errorf("column %q has %d values, want %d", id, len(column), num)
			}
			flat[id] = column[i]
		}
		rec, err := Nest(flat)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// Flatten is the inverse of Nest. Arrays are kept as leaf values.
func Flatten(nested map[string]any) map[string]any {
	out := make(map[string]any)
	flatten(out, "", nested)
	return out
}

func flatten(out map[string]any, prefix string, level map[string]any) {
	for k, v := range level {
		key := k
		if prefix != "" {
			key = schema.Join(prefix, k)
		}
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			flatten(out, key, m)
			continue
		}
		out[key] = v
	}
}

// Columns returns the sorted keys of the flattened records, the union over
// all of them.
func Columns(records []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range Flatten(rec) {
			seen[k] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
