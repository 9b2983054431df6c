package schema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var knownKeys = map[string]struct{}{
	"type": {}, "fields": {}, "constant": {}, "options": {}, "context": {},
	"multiple": {}, "sparsity": {}, "unique": {}, "choices": {},
}

// Parse validates a declaration tree and flattens it into leaf fields,
// sorted by id. All problems found are returned together, each as a
// *ValidationError joined with errors.Join.
func Parse(decl Declaration) ([]*Field, error) {
	p := &parser{}
	p.walk(map[string]any(decl), "")

	ids := make(map[string]struct{}, len(p.fields))
	for _, f := range p.fields {
		ids[f.ID] = struct{}{}
	}
	for _, f := range p.fields {
		for _, param := range sortedKeys(f.Context) {
			parent := f.Context[param]
			if _, ok := ids[parent]; !ok {
				p.fail(invalid(f.ID, "context parameter %q references unknown field %q", param, parent))
			}
		}
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	sort.Slice(p.fields, func(i, j int) bool { return p.fields[i].ID < p.fields[j].ID })
	return p.fields, nil
}

type parser struct {
	fields []*Field
	errs   []error
}

func (p *parser) fail(err *ValidationError) {
	p.errs = append(p.errs, err)
}

func (p *parser) walk(level map[string]any, prefix string) {
	for _, name := range sortedKeys(level) {
		id := name
		if prefix != "" {
			id = Join(prefix, name)
		}
		if name == "" || strings.Contains(name, PathSeparator) {
			p.fail(invalid(id, "field names must be non-empty and must not contain %q", PathSeparator))
			continue
		}
		decl, ok := asMap(level[name])
		if !ok {
			p.fail(invalid(id, "field declaration must be a mapping, got %T", level[name]))
			continue
		}
		if nested, ok := decl["fields"]; ok {
			_, hasType := decl["type"]
			_, hasConstant := decl["constant"]
			_, hasChoices := decl["choices"]
			if hasType || hasConstant || hasChoices {
				p.fail(invalid(id, "only one of type, fields or constant may be set"))
				continue
			}
			children, ok := asMap(nested)
			if !ok {
				p.fail(invalid(id, "fields must be a mapping, got %T", nested))
				continue
			}
			p.walk(children, id)
			continue
		}
		if f := p.field(id, decl); f != nil {
			p.fields = append(p.fields, f)
		}
	}
}

func (p *parser) field(id string, decl map[string]any) *Field {
	for _, key := range sortedKeys(decl) {
		if _, ok := knownKeys[key]; !ok {
			p.fail(invalid(id, "unknown attribute %q", key))
			return nil
		}
	}

	f := &Field{ID: id, Options: map[string]any{}, Context: map[string]string{}}

	if raw, ok := decl["options"]; ok && raw != nil {
		opts, ok := asMap(raw)
		if !ok {
			p.fail(invalid(id, "options must be a mapping, got %T", raw))
			return nil
		}
		for k, v := range opts {
			f.Options[k] = v
		}
	}

	typ, hasType := decl["type"]
	constant, hasConstant := decl["constant"]
	if choices, ok := decl["choices"]; ok {
		if hasType && typ != ChoiceType {
			p.fail(invalid(id, "choices cannot be combined with type %v", typ))
			return nil
		}
		list, ok := choices.([]any)
		if !ok {
			p.fail(invalid(id, "choices must be a list, got %T", choices))
			return nil
		}
		typ, hasType = ChoiceType, true
		f.Options["choices"] = list
	}

	switch {
	case hasType && hasConstant && typ != ConstantType:
		p.fail(invalid(id, "only one of type, fields or constant may be set"))
		return nil
	case hasConstant:
		f.Type = ConstantType
		f.Options = map[string]any{"value": constant}
	case hasType:
		name, ok := typ.(string)
		if !ok || name == "" {
			p.fail(invalid(id, "type must be a non-empty string"))
			return nil
		}
		f.Type = name
	default:
		p.fail(invalid(id, "type not defined: one of type, fields, constant or choices is required"))
		return nil
	}

	if raw, ok := decl["context"]; ok && raw != nil {
		ctx, err := parseContext(raw)
		if err != nil {
			p.fail(invalid(id, "%v", err))
			return nil
		}
		f.Context = ctx
	}

	if raw, ok := decl["sparsity"]; ok && raw != nil {
		n, ok := asInt(raw)
		if !ok || n < 0 || n > 100 {
			p.fail(invalid(id, "sparsity must be a number between 0 and 100, got %v", raw))
			return nil
		}
		f.Sparsity = n
	}

	if raw, ok := decl["unique"]; ok && raw != nil && !hasConstant {
		b, ok := raw.(bool)
		if !ok {
			p.fail(invalid(id, "unique must be a boolean, got %T", raw))
			return nil
		}
		f.Unique = b
	}

	if raw, ok := decl["multiple"]; ok && raw != nil && !hasConstant {
		shape, err := parseMultiple(raw)
		if err != nil {
			p.fail(invalid(id, "%v", err))
			return nil
		}
		f.Multiple = shape
	}

	if f.Unique && f.Multiple == nil && len(f.Context) > 0 {
		p.fail(invalid(id, "unique values cannot be drawn for a field that consumes context"))
		return nil
	}
	return f
}

// parseContext accepts a single mapping or a list of mappings, which are merged.
func parseContext(raw any) (map[string]string, error) {
	var parts []map[string]any
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("context entries must be mappings, got %T", item)
			}
			parts = append(parts, m)
		}
	default:
		m, ok := asMap(raw)
		if !ok {
			return nil, fmt.Errorf("context must be a mapping of parameter to field id, got %T", raw)
		}
		parts = append(parts, m)
	}

	out := map[string]string{}
	for _, m := range parts {
		for param, target := range m {
			id, ok := target.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("context parameter %q must name a field id", param)
			}
			out[param] = id
		}
	}
	return out, nil
}

func parseMultiple(raw any) (*Shape, error) {
	if b, ok := raw.(bool); ok {
		if b {
			return nil, errors.New("multiple must be false or a shape with min and max")
		}
		return nil, nil
	}
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("multiple must be false or a mapping, got %T", raw)
	}
	for _, key := range sortedKeys(m) {
		switch key {
		case "min", "max", "mean", "variance", "duplicates":
		default:
			return nil, fmt.Errorf("unknown multiple attribute %q", key)
		}
	}

	min, okMin := asInt(m["min"])
	max, okMax := asInt(m["max"])
	if !okMin || !okMax {
		return nil, errors.New("multiple.min and multiple.max must be integers")
	}
	if min < 0 || min > max {
		return nil, fmt.Errorf("multiple bounds must satisfy 0 <= min <= max, got [%d, %d]", min, max)
	}
	shape := &Shape{Min: min, Max: max, Mean: float64(min+max) / 2, Variance: 1, Duplicates: true}
	if v, ok := m["mean"]; ok {
		if shape.Mean, ok = asFloat(v); !ok {
			return nil, fmt.Errorf("multiple.mean must be a number, got %T", v)
		}
	}
	if v, ok := m["variance"]; ok {
		if shape.Variance, ok = asFloat(v); !ok || shape.Variance < 0 {
			return nil, fmt.Errorf("multiple.variance must be a non-negative number, got %v", v)
		}
	}
	if v, ok := m["duplicates"]; ok {
		if shape.Duplicates, ok = v.(bool); !ok {
			return nil, fmt.Errorf("multiple.duplicates must be a boolean, got %T", v)
		}
	}
	return shape, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Declaration:
		return m, true
	}
	return nil, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	f, ok := v.(float64)
	return f, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
