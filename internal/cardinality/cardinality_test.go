package cardinality

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/schema"
	"github.com/vk/fakegridgo/modules/basic"
)

// fixture registers capabilities whose calls can be counted.
type fixture struct {
	singleCalls atomic.Int32
	batchCalls  atomic.Int32
	uniqueCalls atomic.Int32
}

func (fx *fixture) Register(r *registry.Registry) {
	r.Register("num", "random int", func(r *rand.Rand, _ registry.Args) (any, error) {
		fx.singleCalls.Add(1)
		return r.IntN(1_000_000), nil
	})
	r.RegisterBatch("num", func(r *rand.Rand, n int, _ map[string]any) ([]any, error) {
		fx.batchCalls.Add(1)
		out := make([]any, n)
		for i := range out {
			out[i] = r.IntN(1_000_000)
		}
		return out, nil
	})
	r.RegisterUnique("num", func(r *rand.Rand, n int, _ registry.Args) ([]any, error) {
		fx.uniqueCalls.Add(1)
		vals, err := sampling.Reservoir(r, sampling.Range(0, 999_999), n)
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i, v := range vals {
			out[i] = v
		}
		return out, nil
	})

	r.Register("letter", "one of three letters", func(r *rand.Rand, _ registry.Args) (any, error) {
		return []string{"a", "b", "c"}[r.IntN(3)], nil
	})
	r.RegisterUnique("letter", func(r *rand.Rand, n int, _ registry.Args) ([]any, error) {
		return sampling.Reservoir(r, slices.Values([]any{"a", "b", "c"}), n)
	})

	r.Register("stutter", "repeats itself", func(*rand.Rand, registry.Args) (any, error) {
		return "s", nil
	})
	r.RegisterUnique("stutter", func(_ *rand.Rand, n int, _ registry.Args) ([]any, error) {
		out := make([]any, n)
		for i := range out {
			out[i] = "s"
		}
		return out, nil
	})

	r.Register("echo", "returns its context", func(_ *rand.Rand, a registry.Args) (any, error) {
		v, _ := a.Get("p")
		return fmt.Sprintf("echo:%v", v), nil
	})
	r.Register("fail", "always fails", func(*rand.Rand, registry.Args) (any, error) {
		return nil, errors.New("nope")
	})
}

func newRegistry() (*registry.Registry, *fixture) {
	fx := &fixture{}
	return registry.New(fx), fx
}

func rng(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, 1)) }

func mustNew(t *testing.T, reg *registry.Registry, spec Spec) Func {
	t.Helper()
	fn, err := New(reg, spec)
	require.NoError(t, err)
	return fn
}

func countNil(col []any) int {
	n := 0
	for _, v := range col {
		if v == nil {
			n++
		}
	}
	return n
}

func TestColumnLengthIsAlwaysNum(t *testing.T) {
	reg, _ := newRegistry()
	shapes := map[string]Spec{
		"scalar":   {Capability: "num"},
		"unique":   {Capability: "num", Unique: true},
		"sparse":   {Capability: "num", Sparsity: 40},
		"multiple": {Capability: "num", Multiple: &schema.Shape{Min: 0, Max: 3, Mean: 1.5, Variance: 1, Duplicates: true}},
	}
	for name, spec := range shapes {
		for _, n := range []int{1, 2, 7, 250} {
			t.Run(fmt.Sprintf("%s/%d", name, n), func(t *testing.T) {
				spec.Num = n
				col, err := mustNew(t, reg, spec)(rng(uint64(n)), nil)
				require.NoError(t, err)
				assert.Len(t, col, n)
			})
		}
	}
}

func TestSparsity(t *testing.T) {
	reg, _ := newRegistry()

	t.Run("zero never nulls", func(t *testing.T) {
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 1000})(rng(1), nil)
		require.NoError(t, err)
		assert.Zero(t, countNil(col))
	})

	t.Run("hundred nulls every slot", func(t *testing.T) {
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 1000, Sparsity: 100})(rng(1), nil)
		require.NoError(t, err)
		assert.Equal(t, 1000, countNil(col))
	})

	t.Run("single record is nulled too", func(t *testing.T) {
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 1, Sparsity: 100})(rng(1), nil)
		require.NoError(t, err)
		assert.Equal(t, []any{nil}, col)
	})

	t.Run("null fraction converges", func(t *testing.T) {
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 20000, Sparsity: 30})(rng(2), nil)
		require.NoError(t, err)
		assert.InDelta(t, 0.30, float64(countNil(col))/20000, 0.02)
	})
}

func TestUnique(t *testing.T) {
	t.Run("values are pairwise distinct and drawn once", func(t *testing.T) {
		reg, fx := newRegistry()
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 500, Unique: true})(rng(3), nil)
		require.NoError(t, err)

		seen := map[any]bool{}
		for _, v := range col {
			assert.False(t, seen[v], "duplicate %v", v)
			seen[v] = true
		}
		assert.Equal(t, int32(1), fx.uniqueCalls.Load())
		assert.Zero(t, fx.singleCalls.Load())
	})

	t.Run("nulled slots are not refilled", func(t *testing.T) {
		reg, fx := newRegistry()
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 200, Unique: true, Sparsity: 50})(rng(4), nil)
		require.NoError(t, err)

		assert.Equal(t, int32(1), fx.uniqueCalls.Load())
		assert.Greater(t, countNil(col), 0)
		assert.Less(t, countNil(col), 200)

		var kept []any
		for _, v := range col {
			if v != nil {
				kept = append(kept, v)
			}
		}
		assert.Len(t, kept, 200-countNil(col))
		seen := map[any]bool{}
		for _, v := range kept {
			assert.False(t, seen[v])
			seen[v] = true
		}
	})

	t.Run("single record uses the single form", func(t *testing.T) {
		reg, fx := newRegistry()
		col, err := mustNew(t, reg, Spec{Capability: "num", Num: 1, Unique: true})(rng(5), nil)
		require.NoError(t, err)
		assert.Len(t, col, 1)
		assert.Equal(t, int32(1), fx.singleCalls.Load())
		assert.Zero(t, fx.uniqueCalls.Load())
	})

	t.Run("short domain fails", func(t *testing.T) {
		reg, _ := newRegistry()
		_, err := mustNew(t, reg, Spec{Capability: "letter", Num: 4, Unique: true})(rng(6), nil)
		assert.ErrorIs(t, err, ErrInsufficientDomain)
		assert.ErrorIs(t, err, sampling.ErrShortStream)
	})

	t.Run("exact domain succeeds", func(t *testing.T) {
		reg, _ := newRegistry()
		col, err := mustNew(t, reg, Spec{Capability: "letter", Num: 3, Unique: true})(rng(6), nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"a", "b", "c"}, col)
	})

	t.Run("repeated values from the distinct form are rejected", func(t *testing.T) {
		reg, _ := newRegistry()
		_, err := mustNew(t, reg, Spec{Capability: "stutter", Num: 3, Unique: true})(rng(7), nil)
		assert.ErrorIs(t, err, ErrDuplicateValue)
	})

	t.Run("repeated choices count once", func(t *testing.T) {
		reg := registry.New(&basic.Module{})
		spec := Spec{Capability: "choice", Num: 3, Unique: true, Options: map[string]any{"choices": []any{"x", "x", "y"}}}
		_, err := mustNew(t, reg, spec)(rng(8), nil)
		assert.ErrorIs(t, err, ErrInsufficientDomain)

		spec.Num = 2
		col, err := mustNew(t, reg, spec)(rng(8), nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"x", "y"}, col)
	})
}

func TestBatchForm(t *testing.T) {
	t.Run("used without context", func(t *testing.T) {
		reg, fx := newRegistry()
		_, err := mustNew(t, reg, Spec{Capability: "num", Num: 10})(rng(7), nil)
		require.NoError(t, err)
		assert.Equal(t, int32(1), fx.batchCalls.Load())
		assert.Zero(t, fx.singleCalls.Load())
	})

	t.Run("skipped when the field consumes context", func(t *testing.T) {
		reg, fx := newRegistry()
		inputs := map[string][]any{"p": make([]any, 10)}
		_, err := mustNew(t, reg, Spec{Capability: "num", Num: 10, HasContext: true})(rng(7), inputs)
		require.NoError(t, err)
		assert.Zero(t, fx.batchCalls.Load())
		assert.Equal(t, int32(10), fx.singleCalls.Load())
	})
}

func TestContextIsPerRecord(t *testing.T) {
	reg, _ := newRegistry()
	fn := mustNew(t, reg, Spec{Capability: "echo", Num: 3, HasContext: true})
	col, err := fn(rng(8), map[string][]any{"p": {"x", nil, 3}})
	require.NoError(t, err)
	assert.Equal(t, []any{"echo:x", "echo:<nil>", "echo:3"}, col)
}

func TestMultiple(t *testing.T) {
	t.Run("lengths stay within bounds", func(t *testing.T) {
		reg, _ := newRegistry()
		fn := mustNew(t, reg, Spec{Capability: "num", Num: 500,
			Multiple: &schema.Shape{Min: 2, Max: 4, Mean: 3, Variance: 4, Duplicates: true}})
		col, err := fn(rng(9), nil)
		require.NoError(t, err)
		for _, slot := range col {
			arr, ok := slot.([]any)
			require.True(t, ok)
			assert.GreaterOrEqual(t, len(arr), 2)
			assert.LessOrEqual(t, len(arr), 4)
		}
	})

	t.Run("no duplicates within an array", func(t *testing.T) {
		reg, fx := newRegistry()
		fn := mustNew(t, reg, Spec{Capability: "letter", Num: 200,
			Multiple: &schema.Shape{Min: 3, Max: 3, Mean: 3, Variance: 1, Duplicates: false}})
		col, err := fn(rng(10), nil)
		require.NoError(t, err)
		for _, slot := range col {
			assert.ElementsMatch(t, []any{"a", "b", "c"}, slot)
		}
		assert.Zero(t, fx.uniqueCalls.Load())
	})

	t.Run("context applies to every element", func(t *testing.T) {
		reg, _ := newRegistry()
		fn := mustNew(t, reg, Spec{Capability: "echo", Num: 2, HasContext: true,
			Multiple: &schema.Shape{Min: 2, Max: 2, Mean: 2, Variance: 0, Duplicates: true}})
		col, err := fn(rng(11), map[string][]any{"p": {"x", "y"}})
		require.NoError(t, err)
		assert.Equal(t, []any{[]any{"echo:x", "echo:x"}, []any{"echo:y", "echo:y"}}, col)
	})

	t.Run("whole slot is nulled", func(t *testing.T) {
		reg, _ := newRegistry()
		fn := mustNew(t, reg, Spec{Capability: "num", Num: 5, Sparsity: 100,
			Multiple: &schema.Shape{Min: 1, Max: 2, Mean: 1.5, Variance: 1, Duplicates: true}})
		col, err := fn(rng(12), nil)
		require.NoError(t, err)
		assert.Equal(t, []any{nil, nil, nil, nil, nil}, col)
	})
}

func TestNew_Errors(t *testing.T) {
	reg, _ := newRegistry()

	_, err := New(reg, Spec{Capability: "missing", Num: 1})
	var nf *registry.NameNotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = New(reg, Spec{Capability: "echo", Num: 2, Unique: true})
	var nu *registry.NoUniqueFormError
	assert.True(t, errors.As(err, &nu))

	_, err = New(reg, Spec{Capability: "echo", Num: 1,
		Multiple: &schema.Shape{Min: 1, Max: 3, Mean: 2, Variance: 1, Duplicates: false}})
	assert.True(t, errors.As(err, &nu))

	_, err = New(reg, Spec{Field: "f", Capability: "num", Num: 1, Sparsity: 101})
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "f", verr.Field)

	_, err = New(reg, Spec{Capability: "num", Num: 0})
	assert.ErrorContains(t, err, "at least 1")
}

func TestCapabilityErrorsPropagate(t *testing.T) {
	reg, _ := newRegistry()
	_, err := mustNew(t, reg, Spec{Capability: "fail", Num: 3})(rng(1), nil)
	assert.ErrorContains(t, err, "fail: nope")
}
