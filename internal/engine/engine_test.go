package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/fakegridgo/internal/cardinality"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/dag"
	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/schema"
	"github.com/vk/fakegridgo/internal/testutil"
	"github.com/vk/fakegridgo/modules/basic"
	"github.com/vk/fakegridgo/modules/medical"
	"github.com/vk/fakegridgo/modules/person"
)

func testContext(t *testing.T) context.Context {
	return ctxlog.WithLogger(context.Background(), testutil.NewTestLogger(t))
}

func newEngine(seed uint64, modules ...registry.Module) *Engine {
	modules = append([]registry.Module{&basic.Module{}, &person.Module{}, &medical.Module{}}, modules...)
	return New(registry.New(modules...), sampling.NewSource(seed, sampling.ModeDerived))
}

// echo returns the value of its "x" context parameter.
var echo = &testutil.SimpleModule{
	Name: "echo",
	Single: func(_ *rand.Rand, args registry.Args) (any, error) {
		v, _ := args.Get("x")
		return v, nil
	},
}

var fail = &testutil.SimpleModule{
	Name: "fail",
	Single: func(*rand.Rand, registry.Args) (any, error) {
		return nil, errors.New("boom failed")
	},
}

func TestGenerate_SingleRecord(t *testing.T) {
	decl := schema.Declaration{
		"a":    map[string]any{"type": "choice", "options": map[string]any{"choices": []any{1, 2}}},
		"b":    map[string]any{"type": "constant", "constant": "x", "context": map[string]any{"dep": "a"}},
		"addr": map[string]any{"fields": map[string]any{
			"city": map[string]any{"constant": "X"},
		}},
	}

	out, err := newEngine(1).Generate(testContext(t), decl, 1)
	require.NoError(t, err)

	rec, ok := out.(map[string]any)
	require.True(t, ok, "a single record is returned as a map, got %T", out)
	assert.Contains(t, []any{1, 2}, rec["a"])
	assert.Equal(t, "x", rec["b"])
	assert.Equal(t, map[string]any{"city": "X"}, rec["addr"])
}

func TestGenerate_Batch(t *testing.T) {
	decl := schema.Declaration{
		"n": map[string]any{"type": "random_int", "options": map[string]any{"min": 1, "max": 5}, "unique": true},
	}

	out, err := newEngine(1).Generate(testContext(t), decl, 5)
	require.NoError(t, err)

	recs, ok := out.([]map[string]any)
	require.True(t, ok, "a batch is returned as a slice, got %T", out)
	require.Len(t, recs, 5)
	var got []any
	for _, r := range recs {
		got = append(got, r["n"])
	}
	assert.ElementsMatch(t, []any{1, 2, 3, 4, 5}, got)
}

func TestRecords_ContextValuesFollowTheirRecord(t *testing.T) {
	decl := schema.Declaration{
		"src":  map[string]any{"type": "random_int", "sparsity": 30},
		"copy": map[string]any{"type": "echo", "context": map[string]any{"x": "src"}},
	}

	recs, err := newEngine(3, echo).Records(testContext(t), decl, 50)
	require.NoError(t, err)
	require.Len(t, recs, 50)
	for i, r := range recs {
		assert.Equal(t, r["src"], r["copy"], "record %d", i)
	}
}

func TestRecords_Nested(t *testing.T) {
	decl := schema.Declaration{
		"gender": map[string]any{"type": "gender"},
		"person": map[string]any{"fields": map[string]any{
			"first": map[string]any{"type": "first_name", "context": map[string]any{"gender": "gender"}},
			"last":  map[string]any{"type": "last_name"},
		}},
		"visits": map[string]any{"type": "icd9", "multiple": map[string]any{"min": 1, "max": 3}},
	}

	recs, err := newEngine(5).Records(testContext(t), decl, 10)
	require.NoError(t, err)
	for _, r := range recs {
		p, ok := r["person"].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, p["first"])
		assert.NotEmpty(t, p["last"])

		visits, ok := r["visits"].([]any)
		require.True(t, ok)
		assert.GreaterOrEqual(t, len(visits), 1)
		assert.LessOrEqual(t, len(visits), 3)
	}
}

func TestRecords_DerivedSeedIsReproducible(t *testing.T) {
	decl := schema.Declaration{
		"id":     map[string]any{"type": "uuid4"},
		"first":  map[string]any{"type": "first_name", "context": map[string]any{"gender": "gender"}},
		"gender": map[string]any{"type": "gender"},
		"code":   map[string]any{"type": "icd9", "unique": true},
	}
	ctx := testContext(t)

	a, err := newEngine(42).Records(ctx, decl, 20)
	require.NoError(t, err)
	b, err := newEngine(42).Records(ctx, decl, 20)
	require.NoError(t, err)
	c, err := newEngine(43).Records(ctx, decl, 20)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRecords_DerivedColumnsIgnoreOtherFields(t *testing.T) {
	decl := schema.Declaration{"code": map[string]any{"type": "icd9"}}
	wider := schema.Declaration{
		"code":  map[string]any{"type": "icd9"},
		"noise": map[string]any{"type": "random_int"},
	}
	ctx := testContext(t)

	a, err := newEngine(7).Records(ctx, decl, 10)
	require.NoError(t, err)
	b, err := newEngine(7).Records(ctx, wider, 10)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i]["code"], b[i]["code"], "record %d", i)
	}
}

func TestRecords_SharedStream(t *testing.T) {
	decl := schema.Declaration{
		"gender": map[string]any{"type": "gender"},
		"first":  map[string]any{"type": "first_name", "context": map[string]any{"gender": "gender"}},
		"copy":   map[string]any{"type": "echo", "context": map[string]any{"x": "n0"}},
		"id":     map[string]any{"type": "uuid4", "unique": true},
		"mrn":    map[string]any{"type": "mrn", "unique": true},
	}
	for i := range 8 {
		decl[fmt.Sprintf("n%d", i)] = map[string]any{"type": "random_int", "options": map[string]any{"min": 0, "max": 99}}
	}

	eng := New(
		registry.New(&basic.Module{}, &person.Module{}, &medical.Module{}, echo),
		sampling.NewSource(42, sampling.ModeShared),
	)
	for range 5 {
		recs, err := eng.Records(testContext(t), decl, 40)
		require.NoError(t, err)
		require.Len(t, recs, 40)

		ids, mrns := map[any]bool{}, map[any]bool{}
		for i, r := range recs {
			assert.Equal(t, r["n0"], r["copy"], "record %d", i)
			assert.False(t, ids[r["id"]], "duplicate id %v", r["id"])
			assert.False(t, mrns[r["mrn"]], "duplicate mrn %v", r["mrn"])
			ids[r["id"]], mrns[r["mrn"]] = true, true
			for j := range 8 {
				v := r[fmt.Sprintf("n%d", j)].(int)
				assert.GreaterOrEqual(t, v, 0)
				assert.LessOrEqual(t, v, 99)
			}
		}
	}
}

func TestPlan_Errors(t *testing.T) {
	ctx := testContext(t)

	t.Run("cycle", func(t *testing.T) {
		decl := schema.Declaration{
			"a": map[string]any{"type": "echo", "context": map[string]any{"x": "b"}},
			"b": map[string]any{"type": "echo", "context": map[string]any{"x": "a"}},
			"c": map[string]any{"type": "gender"},
		}
		_, err := newEngine(1, echo).Plan(ctx, decl, 3)
		var cycle *dag.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "b"}, cycle.IDs)
	})

	t.Run("unknown capabilities are all reported", func(t *testing.T) {
		decl := schema.Declaration{
			"a": map[string]any{"type": "nope"},
			"b": map[string]any{"type": "nada"},
		}
		_, err := newEngine(1).Plan(ctx, decl, 1)
		var nf *registry.NameNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.ErrorContains(t, err, `field "a": unknown capability "nope"`)
		assert.ErrorContains(t, err, `field "b": unknown capability "nada"`)
	})

	t.Run("unique without distinct-values form", func(t *testing.T) {
		decl := schema.Declaration{"g": map[string]any{"type": "gender", "unique": true}}
		_, err := newEngine(1).Plan(ctx, decl, 2)
		var nu *registry.NoUniqueFormError
		assert.ErrorAs(t, err, &nu)
	})

	t.Run("invalid declaration", func(t *testing.T) {
		decl := schema.Declaration{"a": map[string]any{"type": "gender", "context": map[string]any{"x": "missing"}}}
		_, err := newEngine(1).Plan(ctx, decl, 1)
		var ve *schema.ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("count", func(t *testing.T) {
		_, err := newEngine(1).Plan(ctx, schema.Declaration{}, 0)
		assert.ErrorContains(t, err, "record count must be at least 1")
	})
}

func TestRecords_InsufficientDomain(t *testing.T) {
	decl := schema.Declaration{
		"n": map[string]any{"type": "random_int", "options": map[string]any{"min": 1, "max": 3}, "unique": true},
	}
	_, err := newEngine(1).Records(testContext(t), decl, 5)
	assert.ErrorIs(t, err, cardinality.ErrInsufficientDomain)
	assert.ErrorIs(t, err, sampling.ErrShortStream)
	assert.ErrorContains(t, err, `field "n"`)
}

func TestRecords_DependencyOrder(t *testing.T) {
	sleeper := testutil.NewMockSleeperModule(nil, 10*time.Millisecond)
	field := func(id string, ctx map[string]any) map[string]any {
		spec := map[string]any{"type": "sleeper", "options": map[string]any{"id": id}}
		if ctx != nil {
			spec["context"] = ctx
		}
		return spec
	}
	decl := schema.Declaration{
		"a": field("a", nil),
		"b": field("b", map[string]any{"x": "a"}),
		"c": field("c", map[string]any{"x": "b", "y": "a"}),
		"d": field("d", nil),
	}

	recs, err := newEngine(1, sleeper).Records(testContext(t), decl, 1)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": "a", "b": "b", "c": "c", "d": "d"}}, recs)

	a, _ := sleeper.Record("a")
	b, _ := sleeper.Record("b")
	c, _ := sleeper.Record("c")
	d, _ := sleeper.Record("d")
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	require.NotNil(t, d)

	assert.False(t, b.Start.Before(a.End), "b started before a finished")
	assert.False(t, c.Start.Before(b.End), "c started before b finished")
	// d has no dependencies and runs alongside a
	assert.True(t, d.Start.Before(a.End) && a.Start.Before(d.End), "a and d did not overlap")
}

func TestRecords_FailFast(t *testing.T) {
	sleeper := testutil.NewMockSleeperModule(nil, time.Millisecond)
	decl := schema.Declaration{
		"boom":  map[string]any{"type": "fail"},
		"after": map[string]any{"type": "sleeper", "options": map[string]any{"id": "after"}, "context": map[string]any{"x": "boom"}},
	}

	recs, err := newEngine(1, sleeper, fail).Records(testContext(t), decl, 3)
	require.Error(t, err)
	assert.Nil(t, recs)
	assert.ErrorContains(t, err, `field "boom"`)
	assert.ErrorContains(t, err, "boom failed")

	_, ran := sleeper.Record("after")
	assert.False(t, ran, "a dependent of a failed field must not run")
}

func TestValidate(t *testing.T) {
	e := newEngine(1)
	assert.NoError(t, e.Validate(testContext(t), schema.Declaration{"g": map[string]any{"type": "gender"}}, 10))
	assert.Error(t, e.Validate(testContext(t), schema.Declaration{"g": map[string]any{"type": "gender", "sparsity": 101}}, 10))
}
