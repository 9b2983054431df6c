package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/dag"
	"github.com/vk/fakegridgo/internal/resultstore"
	"golang.org/x/sync/errgroup"
)

// Runnable produces the column of one field. inputs maps each context
// parameter to the column of the parent feeding it.
type Runnable interface {
	Run(ctx context.Context, inputs map[string][]any) ([]any, error)
}

// RunnableFunc adapts a plain function to Runnable.
type RunnableFunc func(ctx context.Context, inputs map[string][]any) ([]any, error)

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context, inputs map[string][]any) ([]any, error) {
	return f(ctx, inputs)
}

// task is the arena entry of one node.
type task struct {
	node       *dag.Node
	run        Runnable
	done       *Signal
	parents    map[string]int // param -> arena index of the parent
	waits      []int          // distinct parents, by arena index
	dependents []string
}

// Scheduler drives the tasks of a graph. A Scheduler runs once.
type Scheduler struct {
	store *resultstore.Store
	tasks []*task
	index map[string]int
}

// New prepares one task per node of g. The graph must already be validated.
// Arena indexes are the graph's insertion indexes.
func New(g *dag.Graph, store *resultstore.Store) (*Scheduler, error) {
	nodes := g.Nodes()
	s := &Scheduler{
		store: store,
		tasks: make([]*task, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		s.tasks[i] = &task{node: n, done: NewSignal(), parents: make(map[string]int, len(n.Parents))}
		s.index[n.ID] = i
	}
	for _, t := range s.tasks {
		id := t.node.ID
		for param, parentID := range t.node.Parents {
			i, ok := g.Index(parentID)
			if !ok {
				return nil, fmt.Errorf("field %q depends on unknown field %q", id, parentID)
			}
			t.parents[param] = i
		}

		deps, err := g.Dependencies(id)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			i, _ := g.Index(dep)
			t.waits = append(t.waits, i)
		}
		if t.dependents, err = g.Dependents(id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Bind attaches the runnable that produces the column of field id.
func (s *Scheduler) Bind(id string, r Runnable) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("no field %q in graph", id)
	}
	if s.tasks[i].run != nil {
		return fmt.Errorf("field %q is already bound", id)
	}
	s.tasks[i].run = r
	return nil
}

// Signal returns the completion signal of field id.
func (s *Scheduler) Signal(id string) (*Signal, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.tasks[i].done, true
}

// Run starts every task and waits for all of them. It returns the first
// task error, wrapped with the id of the failing field.
func (s *Scheduler) Run(ctx context.Context) error {
	var unbound []string
	for _, t := range s.tasks {
		if t.run == nil {
			unbound = append(unbound, t.node.ID)
		}
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		return fmt.Errorf("fields without a runnable: %v", unbound)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting field tasks.", "count", len(s.tasks))

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		g.Go(func() error {
			return s.execute(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Debug("All field tasks completed.")
	return nil
}

func (s *Scheduler) execute(ctx context.Context, t *task) error {
	logger := ctxlog.FromContext(ctx).With("field", t.node.ID)

	for _, i := range t.waits {
		if err := s.tasks[i].done.Wait(ctx); err != nil {
			logger.Debug("Field task abandoned while waiting.", "waiting_on", s.tasks[i].node.ID)
			return err
		}
	}

	inputs := make(map[string][]any, len(t.parents))
	for param, i := range t.parents {
		parentID := s.tasks[i].node.ID
		column, ok := s.store.Get(parentID)
		if !ok {
			return fmt.Errorf("field %q: parent %q signalled without a result", t.node.ID, parentID)
		}
		inputs[param] = column
	}

	logger.Debug("Running field task.")
	column, err := t.run.Run(ctx, inputs)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Debug("Field task failed.", "error", err)
		}
		return fmt.Errorf("field %q: %w", t.node.ID, err)
	}
	if err := s.store.Put(t.node.ID, column); err != nil {
		return err
	}
	t.done.Set()
	if len(t.dependents) > 0 {
		logger.Debug("Field task completed, releasing dependents.", "dependents", t.dependents)
	}
	return nil
}
