// Package cardinality turns a capability into the function that produces a
// whole column for a batch: one slot per record, with probabilistic nulls,
// uniqueness across the batch and array-valued slots.
package cardinality

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/schema"
)

// ErrInsufficientDomain is returned when a capability cannot produce as
// many distinct values as requested.
var ErrInsufficientDomain = errors.New("not enough distinct values")

// ErrDuplicateValue is returned when a distinct-values form repeats a value.
var ErrDuplicateValue = errors.New("distinct-values form returned a duplicate")

// Spec describes how one field is generated.
type Spec struct {
	// Field is the id used in error messages.
	Field      string
	Capability string
	Num        int
	Sparsity   int
	Unique     bool
	Options    map[string]any
	Multiple   *schema.Shape
	// HasContext reports whether the field consumes context values. The
	// batch form of a capability is only used when it does not.
	HasContext bool
}

// Func produces the column of a field. inputs maps each context parameter
// to the column of the field feeding it. The result always has Num slots.
type Func func(r *rand.Rand, inputs map[string][]any) ([]any, error)

// New resolves the capability of spec and returns the column function.
// Every registry lookup happens here, so an unknown capability or a missing
// distinct-values form fails before anything is generated.
func New(reg *registry.Registry, spec Spec) (Func, error) {
	if spec.Num < 1 {
		return nil, fmt.Errorf("record count must be at least 1, got %d", spec.Num)
	}
	if spec.Sparsity < 0 || spec.Sparsity > 100 {
		return nil, &schema.ValidationError{Field: spec.Field, Reason: fmt.Sprintf("sparsity must be a number between 0 and 100, got %d", spec.Sparsity)}
	}

	capability, err := reg.Lookup(spec.Capability)
	if err != nil {
		return nil, err
	}
	f := &formatter{spec: spec, capability: capability}

	if f.needsUnique() {
		if f.unique, err = reg.LookupUnique(spec.Capability); err != nil {
			return nil, err
		}
	}

	if m := spec.Multiple; m != nil {
		if f.length, err = sampling.NewBoundedNormalVar(m.Mean, m.Variance, float64(m.Min), float64(m.Max)); err != nil {
			return nil, &schema.ValidationError{Field: spec.Field, Reason: err.Error()}
		}
		return f.multiple, nil
	}
	if spec.Num == 1 {
		return f.one, nil
	}
	if spec.Unique {
		return f.distinct, nil
	}
	return f.many, nil
}

type formatter struct {
	spec       Spec
	capability *registry.Capability
	unique     registry.UniqueFunc
	length     *sampling.NormalVar
}

// distinctArrays reports whether values inside one array must differ.
func (f *formatter) distinctArrays() bool {
	m := f.spec.Multiple
	return m != nil && (!m.Duplicates || f.spec.Unique)
}

func (f *formatter) needsUnique() bool {
	if f.spec.Multiple != nil {
		return f.distinctArrays() && f.spec.Multiple.Max >= 2
	}
	return f.spec.Unique && f.spec.Num > 1
}

func (f *formatter) args(inputs map[string][]any, record int) registry.Args {
	a := registry.Args{Options: f.spec.Options}
	if len(inputs) == 0 {
		return a
	}
	a.Context = make(map[string]any, len(inputs))
	for param, column := range inputs {
		a.Context[param] = column[record]
	}
	return a
}

func (f *formatter) single(r *rand.Rand, args registry.Args) (any, error) {
	v, err := f.capability.Single(r, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.spec.Capability, err)
	}
	return v, nil
}

func (f *formatter) one(r *rand.Rand, inputs map[string][]any) ([]any, error) {
	v, err := f.single(r, f.args(inputs, 0))
	if err != nil {
		return nil, err
	}
	return f.sparsify(r, []any{v}), nil
}

func (f *formatter) many(r *rand.Rand, inputs map[string][]any) ([]any, error) {
	n := f.spec.Num
	if f.capability.Batch != nil && !f.spec.HasContext && len(inputs) == 0 {
		out, err := f.capability.Batch(r, n, f.spec.Options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.spec.Capability, err)
		}
		if len(out) != n {
			return nil, fmt.Errorf("%s: batch form returned %d values, want %d", f.spec.Capability, len(out), n)
		}
		return f.sparsify(r, out), nil
	}

	out := make([]any, n)
	for i := range n {
		v, err := f.single(r, f.args(inputs, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return f.sparsify(r, out), nil
}

// distinct draws every value of the batch in one call, then nulls slots.
// A nulled value is not given back to the pool.
func (f *formatter) distinct(r *rand.Rand, _ map[string][]any) ([]any, error) {
	out, err := f.draw(r, f.spec.Num, registry.Args{Options: f.spec.Options})
	if err != nil {
		return nil, err
	}
	return f.sparsify(r, out), nil
}

func (f *formatter) multiple(r *rand.Rand, inputs map[string][]any) ([]any, error) {
	out := make([]any, f.spec.Num)
	for i := range out {
		size := f.length.Int(r)
		args := f.args(inputs, i)

		var values []any
		var err error
		if f.distinctArrays() && size > 1 {
			values, err = f.draw(r, size, args)
		} else {
			values = make([]any, size)
			for j := range values {
				if values[j], err = f.single(r, args); err != nil {
					break
				}
			}
		}
		if err != nil {
			return nil, err
		}
		out[i] = values
	}
	return f.sparsify(r, out), nil
}

func (f *formatter) draw(r *rand.Rand, n int, args registry.Args) ([]any, error) {
	values, err := f.unique(r, n, args)
	if err != nil {
		if errors.Is(err, sampling.ErrShortStream) {
			return nil, fmt.Errorf("%s: %w: %w", f.spec.Capability, ErrInsufficientDomain, err)
		}
		return nil, fmt.Errorf("%s: %w", f.spec.Capability, err)
	}
	if len(values) < n {
		return nil, fmt.Errorf("%s: %w: wanted %d, got %d", f.spec.Capability, ErrInsufficientDomain, n, len(values))
	}
	values = values[:n]
	seen := make(map[any]struct{}, n)
	for _, v := range values {
		k := sampling.Key(v)
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%s: %w: value %v drawn twice", f.spec.Capability, ErrDuplicateValue, v)
		}
		seen[k] = struct{}{}
	}
	return values, nil
}

func (f *formatter) sparsify(r *rand.Rand, column []any) []any {
	if f.spec.Sparsity == 0 {
		return column
	}
	for i := range column {
		if r.IntN(100) < f.spec.Sparsity {
			column[i] = nil
		}
	}
	return column
}
