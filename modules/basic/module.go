// Package basic provides general purpose capabilities: choice, constant,
// random_int and uuid4.
package basic

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/sampling"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

const (
	defaultIntMin = 0
	defaultIntMax = 9999
)

// Choice picks one element of options.choices.
func Choice(r *rand.Rand, args registry.Args) (any, error) {
	choices, err := args.List("choices")
	if err != nil {
		return nil, err
	}
	if len(choices) == 0 {
		return nil, fmt.Errorf("argument %q must not be empty", "choices")
	}
	return choices[r.IntN(len(choices))], nil
}

// ChoiceUnique picks n distinct values of options.choices. Repeated
// choices count once.
func ChoiceUnique(r *rand.Rand, n int, args registry.Args) ([]any, error) {
	choices, err := args.List("choices")
	if err != nil {
		return nil, err
	}
	return sampling.Reservoir(r, slices.Values(sampling.Distinct(choices)), n)
}

// Constant returns options.value.
func Constant(_ *rand.Rand, args registry.Args) (any, error) {
	v, _ := args.Get("value")
	return v, nil
}

// ConstantBatch repeats options.value n times.
func ConstantBatch(_ *rand.Rand, n int, options map[string]any) ([]any, error) {
	out := make([]any, n)
	for i := range out {
		out[i] = options["value"]
	}
	return out, nil
}

func intRange(args registry.Args) (int, int, error) {
	min, err := args.Int("min", defaultIntMin)
	if err != nil {
		return 0, 0, err
	}
	max, err := args.Int("max", defaultIntMax)
	if err != nil {
		return 0, 0, err
	}
	if min > max {
		return 0, 0, fmt.Errorf("min (%d) must not exceed max (%d)", min, max)
	}
	return min, max, nil
}

// RandomInt draws an integer uniformly from [options.min, options.max].
func RandomInt(r *rand.Rand, args registry.Args) (any, error) {
	min, max, err := intRange(args)
	if err != nil {
		return nil, err
	}
	return sampling.UniformInt(r, min, max), nil
}

// RandomIntBatch draws n integers at once.
func RandomIntBatch(r *rand.Rand, n int, options map[string]any) ([]any, error) {
	min, max, err := intRange(registry.OptionsOnly(options))
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	for i := range out {
		out[i] = sampling.UniformInt(r, min, max)
	}
	return out, nil
}

// streamLimit is the widest range RandomIntUnique walks with Reservoir.
const streamLimit = 1 << 20

// RandomIntUnique draws n distinct integers from the range.
func RandomIntUnique(r *rand.Rand, n int, args registry.Args) ([]any, error) {
	min, max, err := intRange(args)
	if err != nil {
		return nil, err
	}
	var vals []int
	if sampling.Wide(min, max, streamLimit) {
		vals, err = sampling.DistinctInts(r, min, max, n)
	} else {
		vals, err = sampling.Reservoir(r, sampling.Range(min, max), n)
	}
	if err != nil {
		return nil, err
	}
	return toAny(vals), nil
}

// UUID4 returns a version 4 UUID built from the field's random stream, so
// that seeded runs are reproducible.
func UUID4(r *rand.Rand, _ registry.Args) (any, error) {
	id, err := uuid.NewRandomFromReader(reader{r})
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// UUID4Unique returns n distinct UUIDs.
func UUID4Unique(r *rand.Rand, n int, _ registry.Args) ([]any, error) {
	seen := make(map[uuid.UUID]struct{}, n)
	out := make([]any, 0, n)
	for len(out) < n {
		id, err := uuid.NewRandomFromReader(reader{r})
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id.String())
	}
	return out, nil
}

// reader exposes a random stream as an io.Reader.
type reader struct{ r *rand.Rand }

func (rd reader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := rd.r.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

func toAny[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// Register registers the capabilities with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("choice", "one element of options.choices", Choice)
	r.RegisterUnique("choice", ChoiceUnique)

	r.Register("constant", "options.value, unchanged", Constant)
	r.RegisterBatch("constant", ConstantBatch)

	r.Register("random_int", "integer in [options.min, options.max], default [0, 9999]", RandomInt)
	r.RegisterBatch("random_int", RandomIntBatch)
	r.RegisterUnique("random_int", RandomIntUnique)

	r.Register("uuid4", "random version 4 UUID", UUID4)
	r.RegisterUnique("uuid4", UUID4Unique)
}
