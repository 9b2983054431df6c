package dag

import (
	"fmt"
	"slices"
	"sort"

	"github.com/vk/fakegridgo/internal/schema"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
	}
}

// FromFields builds the graph for a parsed declaration. Nodes are added in
// the order of fields.
func FromFields(fields []*schema.Field) (*Graph, error) {
	g := New()
	for _, f := range fields {
		g.AddNode(f.ID)
	}
	for _, f := range fields {
		params := make([]string, 0, len(f.Context))
		for param := range f.Context {
			params = append(params, param)
		}
		sort.Strings(params)
		for _, param := range params {
			if err := g.AddEdge(param, f.Context[param], f.ID); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, &Node{ID: id, Parents: make(map[string]string)})
}

// AddEdge records that the context parameter param of toID is fed by fromID.
// A node may feed several parameters of the same child; it is listed among
// the child's parents once per parameter but among the parent's children
// only once. A self edge is accepted and reported by Validate as a cycle.
func (g *Graph) AddEdge(param, fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.index[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.index[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	child := g.nodes[to]
	if prev, ok := child.Parents[param]; ok && prev != fromID {
		return fmt.Errorf("parameter %q of %s is already fed by %s", param, toID, prev)
	}
	child.Parents[param] = fromID

	parent := g.nodes[from]
	if !slices.Contains(parent.Children, toID) {
		parent.Children = append(parent.Children, toID)
	}
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns the nodes in insertion order. The returned nodes are shared
// with the graph and must not be modified.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Clone(g.nodes)
}

// Index returns the insertion position of the node with the given id.
func (g *Graph) Index(id string) (int, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	i, ok := g.index[id]
	return i, ok
}

// Dependencies returns the sorted, distinct ids the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	deps := make([]string, 0, len(g.nodes[i].Parents))
	for _, parent := range g.nodes[i].Parents {
		if !slices.Contains(deps, parent) {
			deps = append(deps, parent)
		}
	}
	sort.Strings(deps)
	return deps, nil
}

// Dependents returns the ids of nodes that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return slices.Clone(g.nodes[i].Children), nil
}

// Clone returns a deep copy sharing no maps or slices with g.
func (g *Graph) Clone() *Graph {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	c := &Graph{
		nodes: make([]*Node, len(g.nodes)),
		index: make(map[string]int, len(g.index)),
	}
	for i, n := range g.nodes {
		parents := make(map[string]string, len(n.Parents))
		for k, v := range n.Parents {
			parents[k] = v
		}
		c.nodes[i] = &Node{ID: n.ID, Parents: parents, Children: slices.Clone(n.Children)}
		c.index[n.ID] = i
	}
	return c
}

// Validate checks that every node can eventually run. It reduces a private
// copy of the graph: nodes without parents are removed one by one, taking
// their edges with them. Whatever cannot be removed sits on, or behind, a
// cycle and is reported in a *CycleError.
func (g *Graph) Validate() error {
	work := g.Clone()

	remaining := make(map[string]*Node, len(work.nodes))
	var queue []*Node
	for _, n := range work.nodes {
		remaining[n.ID] = n
		if len(n.Parents) == 0 {
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		orphan := queue[0]
		queue = queue[1:]

		for _, childID := range orphan.Children {
			child, ok := remaining[childID]
			if !ok {
				continue
			}
			for param, parent := range child.Parents {
				if parent == orphan.ID {
					delete(child.Parents, param)
				}
			}
			if len(child.Parents) == 0 {
				queue = append(queue, child)
			}
		}
		delete(remaining, orphan.ID)
	}

	if len(remaining) == 0 {
		return nil
	}
	ids := make([]string, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &CycleError{IDs: ids}
}
