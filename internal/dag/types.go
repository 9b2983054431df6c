package dag

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a set of field nodes and their context edges. All operations on
// the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes and index.
	mutex sync.RWMutex
	// nodes keeps insertion order, which the scheduler uses as task index.
	nodes []*Node
	index map[string]int
}

// Node is a single field of the declaration.
type Node struct {
	// ID is the dotted field id.
	ID string
	// Parents maps a context parameter name to the id of the field feeding it.
	Parents map[string]string
	// Children are the distinct ids of fields consuming this one.
	Children []string
}

// CycleError is returned by Validate when some fields can never become
// ready. IDs lists every field left unresolved, which is a superset of the
// fields actually on a cycle.
type CycleError struct {
	IDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in field dependencies: %s", strings.Join(e.IDs, ", "))
}
