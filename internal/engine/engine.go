package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/fakegridgo/internal/cardinality"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/dag"
	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/reshape"
	"github.com/vk/fakegridgo/internal/resultstore"
	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/scheduler"
	"github.com/vk/fakegridgo/internal/schema"
)

// Engine generates records from declarations. It is safe to use from
// several goroutines; every call builds its own graph and store.
type Engine struct {
	registry *registry.Registry
	source   *sampling.Source
}

// New creates an engine over the capabilities of reg, drawing randomness
// from source.
func New(reg *registry.Registry, source *sampling.Source) *Engine {
	return &Engine{registry: reg, source: source}
}

// Plan is a validated declaration, ready to be scheduled.
type Plan struct {
	Num        int
	Fields     []*schema.Field
	Graph      *dag.Graph
	formatters map[string]cardinality.Func
}

// Plan validates decl for a batch of num records. Every error it can detect
// statically is reported here, before any task starts.
func (e *Engine) Plan(ctx context.Context, decl schema.Declaration, num int) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	if num < 1 {
		return nil, fmt.Errorf("record count must be at least 1, got %d", num)
	}

	fields, err := schema.Parse(decl)
	if err != nil {
		return nil, err
	}
	logger.Debug("Declaration parsed.", "fields", len(fields))

	graph, err := dag.FromFields(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	formatters := make(map[string]cardinality.Func, len(fields))
	var errs []error
	for _, f := range fields {
		fn, err := cardinality.New(e.registry, cardinality.Spec{
			Field:      f.ID,
			Capability: f.Type,
			Num:        num,
			Sparsity:   f.Sparsity,
			Unique:     f.Unique,
			Options:    f.Options,
			Multiple:   f.Multiple,
			HasContext: len(f.Context) > 0,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", f.ID, err))
			continue
		}
		formatters[f.ID] = fn
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Dependency graph validated.", "nodes", graph.Len())

	return &Plan{Num: num, Fields: fields, Graph: graph, formatters: formatters}, nil
}

// Validate reports whether decl can be generated for a batch of num records.
func (e *Engine) Validate(ctx context.Context, decl schema.Declaration, num int) error {
	_, err := e.Plan(ctx, decl, num)
	return err
}

// Columns runs a plan and returns one column per field id.
func (e *Engine) Columns(ctx context.Context, plan *Plan) (map[string][]any, error) {
	store := resultstore.New(plan.Num)
	sched, err := scheduler.New(plan.Graph, store)
	if err != nil {
		return nil, err
	}
	for _, f := range plan.Fields {
		fn := plan.formatters[f.ID]
		r := e.source.For(f.ID)
		runnable := scheduler.RunnableFunc(func(ctx context.Context, inputs map[string][]any) ([]any, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return fn(r, inputs)
		})
		if err := sched.Bind(f.ID, runnable); err != nil {
			return nil, err
		}
	}

	if err := sched.Run(ctx); err != nil {
		return nil, err
	}
	return store.Snapshot(), nil
}

// Records generates num nested records from decl.
func (e *Engine) Records(ctx context.Context, decl schema.Declaration, num int) ([]map[string]any, error) {
	logger := ctxlog.FromContext(ctx)
	plan, err := e.Plan(ctx, decl, num)
	if err != nil {
		return nil, err
	}

	columns, err := e.Columns(ctx, plan)
	if err != nil {
		return nil, err
	}
	records, err := reshape.Records(columns, num)
	if err != nil {
		return nil, err
	}
	logger.Debug("Records generated.", "count", len(records), "seed", e.source.Seed(), "rng_mode", e.source.Mode())
	return records, nil
}

// Generate returns a single nested record when num is 1 and a slice of num
// records otherwise.
func (e *Engine) Generate(ctx context.Context, decl schema.Declaration, num int) (any, error) {
	records, err := e.Records(ctx, decl, num)
	if err != nil {
		return nil, err
	}
	if num == 1 {
		return records[0], nil
	}
	return records, nil
}
