package sampling

import (
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
)

// span returns max-min as an unsigned distance. It is exact for every
// min <= max, including ranges wider than math.MaxInt.
func span(min, max int) uint64 {
	return uint64(max) - uint64(min)
}

// UniformInt draws an integer uniformly from [min, max]. The caller
// guarantees min <= max.
func UniformInt(r *rand.Rand, min, max int) int {
	s := span(min, max)
	if s == math.MaxUint64 {
		return int(r.Uint64())
	}
	return min + int(r.Uint64N(s+1))
}

// Wide reports whether [min, max] holds at least limit integers.
func Wide(min, max int, limit uint64) bool {
	return span(min, max) >= limit
}

// DistinctInts draws n distinct integers uniformly from [min, max] using
// Floyd's algorithm. It does O(n) work whatever the width of the range, so
// it suits domains far too large to stream through Reservoir.
func DistinctInts(r *rand.Rand, min, max, n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size must not be negative, got %d", n)
	}
	if max < min {
		return nil, fmt.Errorf("empty range [%d, %d]", min, max)
	}
	s := span(min, max)
	// size wraps to 0 for the full 64-bit range, which holds any n.
	size := s + 1
	if s != math.MaxUint64 && uint64(n) > size {
		return nil, fmt.Errorf("%w: wanted %d, range holds %d", ErrShortStream, n, size)
	}

	chosen := make(map[uint64]struct{}, n)
	out := make([]int, 0, n)
	for k := range uint64(n) {
		j := size - uint64(n) + k
		var t uint64
		if j+1 == 0 {
			t = r.Uint64()
		} else {
			t = r.Uint64N(j + 1)
		}
		if _, ok := chosen[t]; ok {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, min+int(t))
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

// Distinct returns values with repeats removed, keeping first occurrences.
// Values that cannot be compared with == are compared by their printed form.
func Distinct(values []any) []any {
	seen := make(map[any]struct{}, len(values))
	out := make([]any, 0, len(values))
	for _, v := range values {
		k := Key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Key returns a map key identifying v by value.
func Key(v any) any {
	if v == nil || reflect.ValueOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}
